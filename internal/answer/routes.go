package answer

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// queryRequest is the body of POST /api/query and of each WebSocket
// message. TopK is a pointer so that an explicit 0 is rejected.
type queryRequest struct {
	Question   string  `json:"question"`
	TopK       *int    `json:"top_k"`
	PaperIDs   []int64 `json:"paper_ids"`
	Model      string  `json:"model"`
	RenderHTML bool    `json:"render_html"`
}

// streamFrame is the outgoing WebSocket message format.
type streamFrame struct {
	Type    string  `json:"type"` // "delta", "result" or "error"
	Content string  `json:"content,omitempty"`
	Result  *Result `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// RegisterRoutes mounts the query API. maxTopK bounds the top_k parameter.
func RegisterRoutes(r chi.Router, s *Synthesizer, maxTopK int) {
	r.Post("/api/query", handleQuery(s, maxTopK))
	r.Get("/api/query/ws", handleQueryWS(s, maxTopK))
}

func (q queryRequest) toRequest(maxTopK int) (Request, error) {
	if strings.TrimSpace(q.Question) == "" {
		return Request{}, errors.New("question is required")
	}
	req := Request{
		Question:   q.Question,
		PaperIDs:   q.PaperIDs,
		Model:      q.Model,
		RenderHTML: q.RenderHTML,
	}
	if q.TopK != nil {
		if *q.TopK < 1 || *q.TopK > maxTopK {
			return Request{}, fmt.Errorf("top_k must be between 1 and %d", maxTopK)
		}
		req.TopK = *q.TopK
	}
	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleQuery(s *Synthesizer, maxTopK int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body queryRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req, err := body.toRequest(maxTopK)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		res, err := s.Answer(r.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrGeneration) {
				status = http.StatusBadGateway
			}
			log.Error().Err(err).Msg("answering question")
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleQueryWS(s *Synthesizer, maxTopK int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade")
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("websocket read")
				}
				return
			}

			var body queryRequest
			if err := json.Unmarshal(msg, &body); err != nil {
				sendFrame(conn, streamFrame{Type: "error", Error: "invalid message format"})
				continue
			}
			req, err := body.toRequest(maxTopK)
			if err != nil {
				sendFrame(conn, streamFrame{Type: "error", Error: err.Error()})
				continue
			}

			res, err := s.Stream(r.Context(), req, func(delta string) error {
				return conn.WriteJSON(streamFrame{Type: "delta", Content: delta})
			})
			if err != nil {
				log.Error().Err(err).Msg("streaming answer")
				sendFrame(conn, streamFrame{Type: "error", Error: err.Error()})
				continue
			}
			sendFrame(conn, streamFrame{Type: "result", Result: res})
		}
	}
}

func sendFrame(conn *websocket.Conn, f streamFrame) {
	if err := conn.WriteJSON(f); err != nil {
		log.Warn().Err(err).Msg("websocket write")
	}
}
