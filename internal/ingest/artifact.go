package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ziadkadry99/paper-rag/internal/chunker"
	"github.com/ziadkadry99/paper-rag/internal/extract"
	"github.com/ziadkadry99/paper-rag/internal/papers"
)

// artifact is the on-disk record of what ingestion produced for a paper,
// kept for inspecting extraction and chunking quality.
type artifact struct {
	PaperID    int64            `json:"paper_id"`
	Filename   string           `json:"filename"`
	Metadata   extract.Metadata `json:"metadata"`
	Sentences  int              `json:"sentences"`
	Chunks     []chunker.Chunk  `json:"chunks"`
	IngestedAt time.Time        `json:"ingested_at"`
}

// ArtifactPath returns where the artifact of paperID is written.
func ArtifactPath(dir string, paperID int64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.json", paperID))
}

func writeArtifact(dir string, paper *papers.Paper, doc *extract.Document, chunks []chunker.Chunk) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(artifact{
		PaperID:    paper.ID,
		Filename:   paper.Filename,
		Metadata:   doc.Metadata,
		Sentences:  len(doc.Sentences),
		Chunks:     chunks,
		IngestedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling artifact: %w", err)
	}
	return os.WriteFile(ArtifactPath(dir, paper.ID), data, 0o644)
}
