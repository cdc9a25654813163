package papers

import (
	"errors"
	"time"
)

var (
	// ErrDuplicate is returned when a paper with the same filename exists.
	ErrDuplicate = errors.New("papers: duplicate filename")
	// ErrNotFound is returned by mutations on a paper id that does not exist.
	ErrNotFound = errors.New("papers: not found")
)

// Paper is an ingested document.
type Paper struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Authors    string    `json:"authors,omitempty"`
	Year       string    `json:"year,omitempty"`
	Filename   string    `json:"filename"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayTitle falls back to the filename when no title was extracted.
func (p *Paper) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Filename
}

// Ref is the minimal view of a paper used for scope detection.
type Ref struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// ChunkRow is the relational record of one chunk. Its ID matches the
// vector record ID in the index.
type ChunkRow struct {
	ID         string `json:"id"`
	ChunkIndex int    `json:"chunk_index"`
	Section    string `json:"section"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	CharLen    int    `json:"char_len"`
}

// Stats summarizes the chunks of one paper.
type Stats struct {
	PaperID        int64          `json:"paper_id"`
	TotalChunks    int            `json:"total_chunks"`
	AvgChunkLength float64        `json:"avg_chunk_length"`
	Sections       map[string]int `json:"sections"`
}
