// Package dashboard serves a single-page library overview with a chat box
// that streams answers from the query WebSocket.
package dashboard

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/paper-rag/internal/history"
	"github.com/ziadkadry99/paper-rag/internal/papers"
)

// PaperSource lists the library.
type PaperSource interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]papers.Paper, error)
}

// VectorCounter reports the index size.
type VectorCounter interface {
	Count() int
}

// QuerySource exposes recorded questions.
type QuerySource interface {
	ListRecent(ctx context.Context, limit int) ([]history.Query, error)
	Summary(ctx context.Context) (*history.Summary, error)
}

// Dashboard provides the chat-first dashboard.
type Dashboard struct {
	papers  PaperSource
	vectors VectorCounter
	queries QuerySource
}

// New creates a new Dashboard. queries may be nil when history is off.
func New(papers PaperSource, vectors VectorCounter, queries QuerySource) *Dashboard {
	return &Dashboard{
		papers:  papers,
		vectors: vectors,
		queries: queries,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
}
