package papers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// VectorRemover deletes a paper's vectors from the index.
type VectorRemover interface {
	DeleteByPaper(ctx context.Context, paperID int64) error
	Persist(ctx context.Context) error
}

// RegisterRoutes mounts the paper management API. The upload endpoint is
// registered by the ingest package.
func RegisterRoutes(r chi.Router, store *Store, vectors VectorRemover) {
	r.Get("/api/papers", handleList(store))
	r.Get("/api/papers/{id}", handleGet(store))
	r.Get("/api/papers/{id}/stats", handleStats(store))
	r.Delete("/api/papers/{id}", handleDelete(store, vectors))
}

type listResponse struct {
	Total  int     `json:"total"`
	Papers []Paper `json:"papers"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func paperID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if list == nil {
			list = []Paper{}
		}
		writeJSON(w, http.StatusOK, listResponse{Total: len(list), Papers: list})
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paperID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid paper id")
			return
		}
		p, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if p == nil {
			writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleStats(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paperID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid paper id")
			return
		}
		st, err := store.Stats(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if st == nil {
			writeError(w, http.StatusNotFound, "paper not found")
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleDelete(store *Store, vectors VectorRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := paperID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid paper id")
			return
		}
		if err := Remove(r.Context(), store, vectors, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "paper not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
	}
}

// Remove deletes a paper's vectors and then its rows. A paper that does
// not exist yields ErrNotFound without touching the index.
func Remove(ctx context.Context, store *Store, vectors VectorRemover, id int64) error {
	p, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrNotFound
	}

	if vectors != nil {
		if err := vectors.DeleteByPaper(ctx, id); err != nil {
			return err
		}
	}
	if err := store.Delete(ctx, id); err != nil {
		return err
	}
	if vectors != nil {
		if err := vectors.Persist(ctx); err != nil {
			log.Warn().Err(err).Int64("paper_id", id).Msg("persisting vector index after delete")
		}
	}
	log.Info().Int64("paper_id", id).Str("file", p.Filename).Msg("paper deleted")
	return nil
}
