// Package server hosts the HTTP API. Feature packages mount their routes on
// Router; the server itself only owns middleware and the health check.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	// Timeout bounds each request. Zero disables it.
	Timeout time.Duration
	Version string
}

// PaperCounter reports how many papers are registered.
type PaperCounter interface {
	Count(ctx context.Context) (int, error)
}

// VectorCounter reports how many vectors are indexed.
type VectorCounter interface {
	Count() int
}

// Server is the paperrag HTTP server.
type Server struct {
	cfg        Config
	papers     PaperCounter
	vectors    VectorCounter
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. Either counter may be nil, which reports the
// service as degraded.
func New(cfg Config, papers PaperCounter, vectors VectorCounter) *Server {
	s := &Server{
		cfg:     cfg,
		papers:  papers,
		vectors: vectors,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.Timeout > 0 {
		r.Use(middleware.Timeout(s.cfg.Timeout))
	}

	// CORS
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	return r
}

type healthResponse struct {
	Status  string `json:"status"`
	Papers  int    `json:"papers"`
	Vectors int    `json:"vectors"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.cfg.Version}

	if s.papers == nil {
		resp.Status = "degraded"
	} else if n, err := s.papers.Count(r.Context()); err != nil {
		log.Warn().Err(err).Msg("health: counting papers")
		resp.Status = "degraded"
	} else {
		resp.Papers = n
	}

	if s.vectors == nil {
		resp.Status = "degraded"
	} else {
		resp.Vectors = s.vectors.Count()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RequestLogger logs one line per request through zerolog.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := log.Info()
			if status >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", s.Addr()).Msg("paperrag server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
