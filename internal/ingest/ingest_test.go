package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/paper-rag/internal/chunker"
	"github.com/ziadkadry99/paper-rag/internal/db"
	"github.com/ziadkadry99/paper-rag/internal/extract"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/vectordb"
)

type fakeEmbedder struct{ dims int }

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		for j := range v {
			v[j] = float32(len(t)%7+j) + 1
		}
		out[i] = v
	}
	return out, nil
}

func (f fakeEmbedder) Dimensions() int { return f.dims }
func (f fakeEmbedder) Name() string    { return "fake" }

var paperPages = []string{
	"Attention Is All You Need\nAshish Vaswani, Noam Shazeer\n2017\nAbstract\n" +
		"The dominant sequence transduction models are based on recurrent networks. " +
		"We propose the Transformer, based solely on attention mechanisms.",
	"1 Introduction\nRecurrent models factor computation along symbol positions. " +
		"Attention mechanisms have become an integral part of sequence modeling.",
}

// fakeExtract serves canned pages for any path except ones named empty.pdf
// (no text) and broken.pdf (read error).
func fakeExtract(path string) (*extract.Document, error) {
	switch filepath.Base(path) {
	case "broken.pdf":
		return nil, errors.New("malformed xref table")
	case "empty.pdf":
		return extract.FromPages("empty.pdf", []string{""}, extract.Metadata{}), nil
	}
	return extract.FromPages(filepath.Base(path), paperPages, extract.Metadata{Title: "Attention Is All You Need"}), nil
}

type env struct {
	store *papers.Store
	index *vectordb.ChromemIndex
	pipe  *Pipeline
	dir   string
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	emb := fakeEmbedder{dims: 4}
	index, err := vectordb.OpenChromem("", emb)
	require.NoError(t, err)
	require.NoError(t, index.EnsureCollection(emb.Dimensions()))

	dir := t.TempDir()
	store := papers.NewStore(database)
	pipe := NewPipeline(store, index, emb, Options{
		Chunking:    chunker.Options{MaxChars: 200, OverlapChars: 40},
		ArtifactDir: filepath.Join(dir, "artifacts"),
		Extract:     fakeExtract,
	})
	return &env{store: store, index: index, pipe: pipe, dir: dir}
}

func TestIngestFile(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	out, err := e.pipe.IngestFile(ctx, "/papers/attention.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", out.Title)
	assert.Equal(t, 2, out.Pages)
	assert.Positive(t, out.Chunks)

	p, err := e.store.Get(ctx, out.PaperID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "attention.pdf", p.Filename)
	assert.Equal(t, out.Chunks, p.ChunkCount)
	assert.Equal(t, out.Chunks, e.index.Count())
	assert.Equal(t, out.Chunks, e.index.PaperCount(out.PaperID))

	raw, err := os.ReadFile(ArtifactPath(filepath.Join(e.dir, "artifacts"), out.PaperID))
	require.NoError(t, err)
	var art artifact
	require.NoError(t, json.Unmarshal(raw, &art))
	assert.Equal(t, "attention.pdf", art.Filename)
	assert.Len(t, art.Chunks, out.Chunks)
}

func TestIngestDuplicateFilename(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	_, err := e.pipe.IngestFile(ctx, "/a/attention.pdf")
	require.NoError(t, err)

	_, err = e.pipe.IngestFile(ctx, "/b/attention.pdf")
	assert.ErrorIs(t, err, papers.ErrDuplicate)

	n, err := e.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReplacingPipeline(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	first, err := e.pipe.IngestFile(ctx, "/a/attention.pdf")
	require.NoError(t, err)

	second, err := e.pipe.Replacing().IngestFile(ctx, "/a/attention.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, first.PaperID, second.PaperID)

	old, err := e.store.Get(ctx, first.PaperID)
	require.NoError(t, err)
	assert.Nil(t, old)
	assert.Equal(t, second.Chunks, e.index.Count())
	assert.Zero(t, e.index.PaperCount(first.PaperID))
}

func TestReplacingKeepsOldVersionOnFailure(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	first, err := e.pipe.IngestFile(ctx, "/a/attention.pdf")
	require.NoError(t, err)

	replacing := e.pipe.Replacing()
	replacing.opts.Extract = func(string) (*extract.Document, error) {
		return nil, errors.New("truncated file")
	}
	_, err = replacing.IngestFile(ctx, "/a/attention.pdf")
	require.Error(t, err)

	old, err := e.store.Get(ctx, first.PaperID)
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, first.Chunks, e.index.PaperCount(first.PaperID))
}

func TestIngestNoText(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	_, err := e.pipe.IngestFile(ctx, "/a/empty.pdf")
	assert.ErrorIs(t, err, ErrNoText)

	n, err := e.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestRollsBackOnIndexFailure(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	// Vectors of the wrong size make Upsert fail after the paper row exists.
	e.pipe.embedder = fakeEmbedder{dims: 3}

	_, err := e.pipe.IngestFile(ctx, "/a/attention.pdf")
	require.ErrorIs(t, err, vectordb.ErrDimensionMismatch)

	n, err := e.store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "paper row must be rolled back")
	assert.Zero(t, e.index.Count())
}

type fakeIngester struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	outcome map[string]error
	delay   time.Duration
}

func (f *fakeIngester) IngestFile(_ context.Context, path string) (*Outcome, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.mu.Unlock()
	time.Sleep(f.delay)

	if err := f.outcome[path]; err != nil {
		return nil, err
	}
	return &Outcome{PaperID: int64(len(path)), Title: path, Chunks: 3}, nil
}

func TestBatcherIsolatesFailures(t *testing.T) {
	ing := &fakeIngester{outcome: map[string]error{
		"b.pdf": errors.New("boom"),
		"c.pdf": papers.ErrDuplicate,
	}}

	var calls int32
	b := NewBatcher(2, ing, func(current, total int, _ string) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 4, total)
	})

	res := b.Run(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"})
	require.Len(t, res.Results, 4)
	assert.NotEmpty(t, res.JobID)

	assert.Equal(t, "a.pdf", res.Results[0].File)
	assert.Equal(t, StatusOK, res.Results[0].Status)
	assert.Equal(t, StatusFailed, res.Results[1].Status)
	assert.Equal(t, "boom", res.Results[1].Error)
	assert.Equal(t, StatusSkipped, res.Results[2].Status)
	assert.Equal(t, StatusOK, res.Results[3].Status)

	assert.Equal(t, Summary{Succeeded: 2, Failed: 1, Skipped: 1}, res.Summary)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestBatcherRespectsConcurrency(t *testing.T) {
	ing := &fakeIngester{delay: 20 * time.Millisecond}
	b := NewBatcher(2, ing, nil)

	res := b.Run(context.Background(), []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf", "5.pdf", "6.pdf"})
	assert.Equal(t, 6, res.Summary.Succeeded)
	assert.LessOrEqual(t, ing.peak, int32(2))
}

func TestBatcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatcher(1, &fakeIngester{}, nil)
	res := b.Run(ctx, []string{"a.pdf"})
	require.Len(t, res.Results, 1)
	// The slot and the cancellation race; either way nothing succeeds silently.
	if res.Results[0].Status == StatusFailed {
		assert.Equal(t, context.Canceled.Error(), res.Results[0].Error)
	}
}

func TestBatcherEmpty(t *testing.T) {
	res := NewBatcher(3, &fakeIngester{}, nil).Run(context.Background(), nil)
	assert.Empty(t, res.Results)
	assert.Equal(t, Summary{}, res.Summary)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pdf"))
	touch(t, filepath.Join(root, "nested", "b.PDF"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".git", "c.pdf"))
	touch(t, filepath.Join(root, "drafts", "d.pdf"))

	files, err := Collect(root, []string{"**/*.pdf", "**/*.PDF"}, []string{".git/**", "drafts/**"})
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a.pdf", "nested/b.PDF"}, rel)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("paper.pdf", nil, nil))
	assert.False(t, Matches("paper.txt", nil, nil))
	assert.False(t, Matches("draft-paper.pdf", nil, []string{"draft-*"}))
	assert.True(t, Matches("x/y/paper.pdf", []string{"**/*.pdf"}, nil))
	assert.False(t, Matches("x/paper.pdf", []string{"y/**"}, nil))
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	single := filepath.Join(root, "single.txt")
	touch(t, single)
	touch(t, filepath.Join(root, "dir", "a.pdf"))

	files, err := Resolve([]string{single, filepath.Join(root, "dir")}, nil, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, single, files[0])
	assert.Equal(t, "a.pdf", filepath.Base(files[1]))

	_, err = Resolve([]string{filepath.Join(root, "missing")}, nil, nil)
	assert.Error(t, err)
}

func uploadRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/papers/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newUploadRouter(e *env, maxBytes int64) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, e.store, NewBatcher(2, e.pipe, nil), UploadOptions{
		Dir:      filepath.Join(e.dir, "uploads"),
		MaxBytes: maxBytes,
	})
	return r
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func TestUploadIngestsPDF(t *testing.T) {
	e := setupEnv(t)
	router := newUploadRouter(e, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"attention.pdf": pdfBytes}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Results, 1)
	assert.Equal(t, StatusOK, res.Results[0].Status)
	assert.FileExists(t, filepath.Join(e.dir, "uploads", "attention.pdf"))

	// Same name again is a conflict and writes nothing.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"attention.pdf": pdfBytes}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	e := setupEnv(t)
	router := newUploadRouter(e, 1<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, map[string][]byte{"notes.pdf": []byte("just some plain text")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	n, err := e.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoDirExists(t, filepath.Join(e.dir, "uploads"))
}

func TestUploadRequiresFile(t *testing.T) {
	e := setupEnv(t)
	rec := httptest.NewRecorder()
	newUploadRouter(e, 1<<20).ServeHTTP(rec, uploadRequest(t, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadSizeLimit(t *testing.T) {
	e := setupEnv(t)
	big := append(append([]byte{}, pdfBytes...), bytes.Repeat([]byte("x"), 4096)...)

	rec := httptest.NewRecorder()
	newUploadRouter(e, 512).ServeHTTP(rec, uploadRequest(t, map[string][]byte{"big.pdf": big}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	e := setupEnv(t)
	dir := filepath.Join(e.dir, "inbox")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	w := NewWatcher(dir, nil, nil, NewBatcher(1, e.pipe.Replacing(), nil), 100*time.Millisecond)
	batches := make(chan *BatchResult, 4)
	w.OnBatch = func(res *BatchResult) { batches <- res }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register before the file appears.
	time.Sleep(200 * time.Millisecond)
	touch(t, filepath.Join(dir, "attention.pdf"))
	touch(t, filepath.Join(dir, "ignored.txt"))

	select {
	case res := <-batches:
		require.Len(t, res.Results, 1)
		assert.Equal(t, "attention.pdf", filepath.Base(res.Results[0].File))
		assert.Equal(t, StatusOK, res.Results[0].Status)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not ingest the new file")
	}
}
