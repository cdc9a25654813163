// Package ingest turns PDF files into registered papers with indexed chunk
// vectors, one document at a time or in bounded concurrent batches.
package ingest

import "errors"

// ErrNoText means extraction produced no sentences, e.g. a scanned PDF.
var ErrNoText = errors.New("ingest: no text extracted")

// Status is the outcome of ingesting one document.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ProgressFunc is called after each document finishes.
type ProgressFunc func(current, total int, message string)

// Outcome describes a successfully ingested paper.
type Outcome struct {
	PaperID int64  `json:"paper_id"`
	Title   string `json:"title"`
	Pages   int    `json:"pages"`
	Chunks  int    `json:"chunks"`
}

// DocResult is the per-document record of a batch.
type DocResult struct {
	File    string `json:"file"`
	Status  Status `json:"status"`
	PaperID int64  `json:"paper_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Chunks  int    `json:"chunks,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Summary counts batch outcomes.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// BatchResult holds every document's result in input order.
type BatchResult struct {
	JobID   string      `json:"job_id"`
	Results []DocResult `json:"results"`
	Summary Summary     `json:"summary"`
}
