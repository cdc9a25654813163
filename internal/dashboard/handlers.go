package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/paper-rag/internal/history"
	"github.com/ziadkadry99/paper-rag/internal/papers"
)

const recentLimit = 10

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Papers            int     `json:"papers"`
	Vectors           int     `json:"vectors"`
	Queries           int     `json:"queries"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Papers  []papers.Paper  `json:"papers"`
	Queries []history.Query `json:"queries"`
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := d.papers.Count(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	resp := statsResponse{Papers: count}
	if d.vectors != nil {
		resp.Vectors = d.vectors.Count()
	}

	if d.queries != nil {
		sum, err := d.queries.Summary(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Queries = sum.TotalQueries
		resp.AvgConfidence = sum.AvgConfidence
		resp.AvgResponseTimeMs = sum.AvgResponseTimeMs
	}

	writeJSON(w, http.StatusOK, resp)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// List is newest first.
	list, err := d.papers.List(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(list) > recentLimit {
		list = list[:recentLimit]
	}

	var queries []history.Query
	if d.queries != nil {
		queries, err = d.queries.ListRecent(ctx, recentLimit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	if list == nil {
		list = []papers.Paper{}
	}
	if queries == nil {
		queries = []history.Query{}
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Papers:  list,
		Queries: queries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
