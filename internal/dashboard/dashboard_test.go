package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/paper-rag/internal/db"
	"github.com/ziadkadry99/paper-rag/internal/history"
	"github.com/ziadkadry99/paper-rag/internal/papers"
)

type fixedVectors int

func (f fixedVectors) Count() int { return int(f) }

func setupTest(t *testing.T) (*papers.Store, *history.Store) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return papers.NewStore(database), history.NewStore(database)
}

func setupRouter(d *Dashboard) chi.Router {
	r := chi.NewRouter()
	d.RegisterRoutes(r)
	return r
}

func TestStatsEndpoint(t *testing.T) {
	pStore, hStore := setupTest(t)
	ctx := t.Context()

	// Add test data.
	if _, err := pStore.Create(ctx, papers.Paper{Title: "Attention Is All You Need", Filename: "attention.pdf"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, c := range []float64{0.8, 0.6} {
		if _, err := hStore.Append(ctx, history.Entry{Question: "What is attention?", Confidence: c, ResponseTimeMs: 100}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	r := setupRouter(New(pStore, fixedVectors(7), hStore))
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Papers != 1 || resp.Vectors != 7 || resp.Queries != 2 {
		t.Errorf("unexpected counts: %+v", resp)
	}
	if resp.AvgConfidence < 0.69 || resp.AvgConfidence > 0.71 {
		t.Errorf("expected avg confidence 0.7, got %f", resp.AvgConfidence)
	}
}

func TestStatsWithoutHistory(t *testing.T) {
	pStore, _ := setupTest(t)
	r := setupRouter(New(pStore, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRecentEndpointLimits(t *testing.T) {
	pStore, hStore := setupTest(t)
	ctx := t.Context()

	for i := 0; i < 15; i++ {
		name := "paper" + string(rune('a'+i)) + ".pdf"
		if _, err := pStore.Create(ctx, papers.Paper{Filename: name}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := hStore.Append(ctx, history.Entry{Question: "How does BERT pretrain?"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	r := setupRouter(New(pStore, fixedVectors(0), hStore))
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/recent", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp recentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Papers) != recentLimit {
		t.Errorf("expected %d papers, got %d", recentLimit, len(resp.Papers))
	}
	if resp.Papers[0].Filename != "papero.pdf" {
		t.Errorf("expected newest paper first, got %q", resp.Papers[0].Filename)
	}
	if len(resp.Queries) != 1 {
		t.Errorf("expected 1 query, got %d", len(resp.Queries))
	}
}

func TestRecentEndpointEmpty(t *testing.T) {
	pStore, _ := setupTest(t)
	r := setupRouter(New(pStore, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/recent", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"papers":[]`) || !strings.Contains(w.Body.String(), `"queries":[]`) {
		t.Errorf("expected empty arrays, got %s", w.Body.String())
	}
}

func TestServeIndex(t *testing.T) {
	pStore, _ := setupTest(t)
	r := setupRouter(New(pStore, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "/api/query/ws") {
		t.Error("expected the page to use the query WebSocket")
	}
}
