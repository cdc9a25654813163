package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the query history API routes.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/history", func(r chi.Router) {
		r.Get("/", handleRecent(store))
		r.Get("/topics", handleTopics(store))
		r.Get("/summary", handleSummary(store))
		r.Post("/{id}/rating", handleRate(store))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func limitParam(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func handleRecent(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queries, err := store.ListRecent(r.Context(), limitParam(r, DefaultRecentLimit))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if queries == nil {
			queries = []Query{}
		}
		writeJSON(w, http.StatusOK, queries)
	}
}

func handleTopics(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics, err := store.PopularTopics(r.Context(), limitParam(r, DefaultTopicLimit))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, topics)
	}
}

func handleSummary(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := store.Summary(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

func handleRate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid query id")
			return
		}
		var req ratingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		switch err := store.Rate(r.Context(), id, req.Rating); {
		case errors.Is(err, ErrInvalidRating):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "query not found")
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": id, "rating": req.Rating})
		}
	}
}
