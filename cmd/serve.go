package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/paper-rag/internal/answer"
	"github.com/ziadkadry99/paper-rag/internal/dashboard"
	"github.com/ziadkadry99/paper-rag/internal/history"
	"github.com/ziadkadry99/paper-rag/internal/ingest"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the paperrag HTTP API: paper upload and management, question
answering (with WebSocket streaming) and query history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		svc, err := openServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		synth, err := svc.synthesizer()
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			Version:        Version,
		}, svc.papers, svc.index)

		r := srv.Router()
		papers.RegisterRoutes(r, svc.papers, svc.index)
		ingest.RegisterRoutes(r, svc.papers, ingest.NewBatcher(cfg.Ingest.Concurrency, svc.pipeline(), nil), ingest.UploadOptions{
			Dir:      cfg.UploadPath(),
			MaxBytes: cfg.Ingest.MaxUploadBytes,
		})
		answer.RegisterRoutes(r, synth, cfg.Retrieval.MaxTopK)
		history.RegisterRoutes(r, svc.history)
		dashboard.New(svc.papers, svc.index, svc.history).RegisterRoutes(r)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.Info().
			Str("version", Version).
			Str("database", cfg.DBPath()).
			Int("vectors", svc.index.Count()).
			Bool("rerank", cfg.Rerank.Enabled).
			Msg("starting paperrag server")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
