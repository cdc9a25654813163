package vectordb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/paper-rag/internal/embeddings"
)

const (
	collectionName = "paper_chunks"
	dataFile       = "chromem.gob.gz"
	manifestFile   = "manifest.yml"
)

// manifest records what chromem itself does not expose: the vector
// dimensionality and how many records each paper owns.
type manifest struct {
	Collection  string        `yaml:"collection"`
	Dimensions  int           `yaml:"dimensions"`
	PaperChunks map[int64]int `yaml:"paper_chunks"`
}

// ChromemIndex implements Index using chromem-go. Vectors are supplied by
// the caller; the embedding function is only used if chromem needs to
// embed text itself.
type ChromemIndex struct {
	dir        string
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc

	mu       sync.RWMutex
	manifest manifest

	// persistMu serializes exports; concurrent ingests all persist.
	persistMu sync.Mutex
}

// OpenChromem opens the index persisted in dir, or creates an empty one.
// An empty dir gives a purely in-memory index.
func OpenChromem(dir string, embedder embeddings.Embedder) (*ChromemIndex, error) {
	idx := &ChromemIndex{
		dir:       dir,
		db:        chromem.NewDB(),
		embedFunc: embeddings.ToChromemFunc(embedder),
		manifest:  manifest{Collection: collectionName, PaperChunks: map[int64]int{}},
	}

	if dir != "" {
		if err := idx.load(); err != nil {
			return nil, err
		}
	}

	if idx.collection == nil {
		col, err := idx.db.GetOrCreateCollection(collectionName, nil, idx.embedFunc)
		if err != nil {
			return nil, fmt.Errorf("create collection: %w", err)
		}
		idx.collection = col
	}
	return idx, nil
}

func (s *ChromemIndex) load() error {
	data := filepath.Join(s.dir, dataFile)
	if _, err := os.Stat(data); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("stat vector index: %w", err)
	}

	if err := s.db.ImportFromFile(data, ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	s.collection = s.db.GetCollection(collectionName, s.embedFunc)
	if s.collection == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.manifest); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if s.manifest.PaperChunks == nil {
		s.manifest.PaperChunks = map[int64]int{}
	}
	return nil
}

func (s *ChromemIndex) EnsureCollection(dim int) error {
	if dim <= 0 {
		return fmt.Errorf("vectordb: dimension must be positive, got %d", dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.manifest.Dimensions != 0 && s.manifest.Dimensions != dim {
		return fmt.Errorf("%w: index has %d, embedding model produces %d; re-ingest papers or change embedding.dimensions",
			ErrDimensionMismatch, s.manifest.Dimensions, dim)
	}
	s.manifest.Dimensions = dim
	return nil
}

// Dimensions returns the dimensionality fixed by EnsureCollection, or 0.
func (s *ChromemIndex) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest.Dimensions
}

func (s *ChromemIndex) checkDim(v []float32) error {
	if dim := s.Dimensions(); dim != 0 && len(v) != dim {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(v), dim)
	}
	return nil
}

func (s *ChromemIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if err := s.checkDim(r.Vector); err != nil {
			return err
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   r.Payload.Text,
			Metadata:  payloadToMap(r.Payload),
			Embedding: normalize(r.Vector),
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}

	s.mu.Lock()
	for _, r := range records {
		s.manifest.PaperChunks[r.Payload.PaperID]++
	}
	s.mu.Unlock()
	return nil
}

func (s *ChromemIndex) Search(ctx context.Context, vector []float32, limit int, filter *Filter, threshold float32) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	if err := s.checkDim(vector); err != nil {
		return nil, err
	}
	vector = normalize(vector)

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	var hits []Hit
	if filter.empty() {
		res, err := s.query(ctx, vector, min(limit, count), nil)
		if err != nil {
			return nil, err
		}
		hits = res
	} else {
		// chromem's where clause is a conjunction, so a paper_id IN (...)
		// filter runs one query per paper and merges.
		seen := make(map[int64]bool, len(filter.PaperIDs))
		for _, id := range filter.PaperIDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			n := min(limit, count, s.paperChunks(id))
			if n == 0 {
				continue
			}
			res, err := s.query(ctx, vector, n, map[string]string{"paper_id": strconv.FormatInt(id, 10)})
			if err != nil {
				return nil, err
			}
			hits = append(hits, res...)
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	}

	out := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ChromemIndex) query(ctx context.Context, vector []float32, n int, where map[string]string) ([]Hit, error) {
	results, err := s.collection.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ID:      r.ID,
			Score:   r.Similarity,
			Payload: mapToPayload(r.Metadata, r.Content),
		}
	}
	return hits, nil
}

func (s *ChromemIndex) paperChunks(id int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest.PaperChunks[id]
}

func (s *ChromemIndex) DeleteByPaper(ctx context.Context, paperID int64) error {
	where := map[string]string{"paper_id": strconv.FormatInt(paperID, 10)}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("chromem delete paper %d: %w", paperID, err)
	}

	s.mu.Lock()
	delete(s.manifest.PaperChunks, paperID)
	s.mu.Unlock()
	return nil
}

func (s *ChromemIndex) Count() int {
	return s.collection.Count()
}

// PaperCount returns the number of records stored for a paper.
func (s *ChromemIndex) PaperCount(paperID int64) int {
	return s.paperChunks(paperID)
}

func (s *ChromemIndex) Persist(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create vector dir: %w", err)
	}

	if err := s.db.ExportToFile(filepath.Join(s.dir, dataFile), true, ""); err != nil {
		return fmt.Errorf("export to file: %w", err)
	}

	s.mu.RLock()
	raw, err := yaml.Marshal(s.manifest)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, manifestFile), raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// normalize returns v scaled to unit length so chromem's dot product is a
// cosine similarity. Zero vectors are returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.Abs(norm-1) < 1e-6 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
