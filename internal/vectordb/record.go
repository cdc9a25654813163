package vectordb

import (
	"context"
	"errors"
	"strconv"
)

// ErrDimensionMismatch means a vector does not have the dimensionality the
// index was created with. It is a configuration error: the embedding model
// changed without re-ingesting the papers.
var ErrDimensionMismatch = errors.New("vectordb: embedding dimension mismatch")

// Index stores chunk vectors and answers filtered similarity queries.
type Index interface {
	// EnsureCollection fixes the dimensionality of the index, failing with
	// ErrDimensionMismatch if it was previously created with another one.
	EnsureCollection(dim int) error

	// Upsert adds records. Records without an ID get a random UUID.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to limit hits scoring at least threshold, best first.
	Search(ctx context.Context, vector []float32, limit int, filter *Filter, threshold float32) ([]Hit, error)

	// DeleteByPaper removes every record of the given paper.
	DeleteByPaper(ctx context.Context, paperID int64) error

	// Count returns the total number of records.
	Count() int

	// Persist flushes the index to its directory.
	Persist(ctx context.Context) error
}

// Payload is the chunk metadata stored alongside each vector.
type Payload struct {
	PaperID    int64  `json:"paper_id"`
	PaperTitle string `json:"paper_title"`
	Section    string `json:"section"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Record is one chunk vector.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Hit is a search result.
type Hit struct {
	ID      string
	Score   float32
	Payload Payload
}

// Filter restricts a search to records whose paper is in PaperIDs. An
// empty filter matches everything.
type Filter struct {
	PaperIDs []int64
}

func (f *Filter) empty() bool {
	return f == nil || len(f.PaperIDs) == 0
}

// payloadToMap flattens a Payload for chromem. Text is stored as the
// document content, not metadata.
func payloadToMap(p Payload) map[string]string {
	return map[string]string{
		"paper_id":    strconv.FormatInt(p.PaperID, 10),
		"paper_title": p.PaperTitle,
		"section":     p.Section,
		"page_start":  strconv.Itoa(p.PageStart),
		"page_end":    strconv.Itoa(p.PageEnd),
		"chunk_index": strconv.Itoa(p.ChunkIndex),
	}
}

func mapToPayload(m map[string]string, content string) Payload {
	paperID, _ := strconv.ParseInt(m["paper_id"], 10, 64)
	pageStart, _ := strconv.Atoi(m["page_start"])
	pageEnd, _ := strconv.Atoi(m["page_end"])
	chunkIndex, _ := strconv.Atoi(m["chunk_index"])

	return Payload{
		PaperID:    paperID,
		PaperTitle: m["paper_title"],
		Section:    m["section"],
		PageStart:  pageStart,
		PageEnd:    pageEnd,
		ChunkIndex: chunkIndex,
		Text:       content,
	}
}
