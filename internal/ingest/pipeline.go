package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/chunker"
	"github.com/ziadkadry99/paper-rag/internal/embeddings"
	"github.com/ziadkadry99/paper-rag/internal/extract"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/vectordb"
)

// ExtractFunc reads a document from disk.
type ExtractFunc func(path string) (*extract.Document, error)

// Options configures a Pipeline.
type Options struct {
	Chunking chunker.Options
	// ArtifactDir receives one JSON inspection file per paper. Empty
	// disables artifacts.
	ArtifactDir string
	// Extract defaults to extract.Extract.
	Extract ExtractFunc
}

// Pipeline ingests one document: extract, chunk, embed, register the paper
// and its chunks, index the vectors and write the inspection artifact.
type Pipeline struct {
	store    *papers.Store
	index    vectordb.Index
	embedder embeddings.Embedder
	opts     Options
	replace  bool
}

// NewPipeline creates a new Pipeline.
func NewPipeline(store *papers.Store, index vectordb.Index, embedder embeddings.Embedder, opts Options) *Pipeline {
	if opts.Extract == nil {
		opts.Extract = extract.Extract
	}
	return &Pipeline{store: store, index: index, embedder: embedder, opts: opts}
}

// Replacing returns a pipeline that re-ingests files whose name is already
// registered instead of skipping them.
func (p *Pipeline) Replacing() *Pipeline {
	cp := *p
	cp.replace = true
	return &cp
}

// IngestFile ingests the PDF at path. A filename that is already
// registered yields papers.ErrDuplicate unless the pipeline is replacing.
// A replaced paper is only removed once the new version is extracted and
// embedded. If anything fails after the paper row exists, the row and any
// vectors are removed again.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Outcome, error) {
	name := filepath.Base(path)

	existing, err := p.store.GetByFilename(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil && !p.replace {
		return nil, fmt.Errorf("%w: %s", papers.ErrDuplicate, name)
	}

	doc, err := p.opts.Extract(path)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", name, err)
	}

	chunks, err := chunker.Split(doc.Sentences, p.opts.Chunking)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoText, name)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", name, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding %s: got %d vectors for %d chunks", name, len(vectors), len(chunks))
	}

	// The previous version stays in place until the new one is ready.
	if existing != nil {
		if err := papers.Remove(ctx, p.store, p.index, existing.ID); err != nil {
			return nil, fmt.Errorf("removing previous version: %w", err)
		}
	}

	paper, err := p.store.Create(ctx, papers.Paper{
		Title:    doc.Metadata.Title,
		Authors:  doc.Metadata.Authors,
		Year:     doc.Metadata.Year,
		Filename: name,
		Pages:    doc.Metadata.Pages,
	})
	if err != nil {
		return nil, err
	}

	if err := p.persistChunks(ctx, paper, chunks, vectors); err != nil {
		p.rollback(paper.ID)
		return nil, err
	}

	if p.opts.ArtifactDir != "" {
		if err := writeArtifact(p.opts.ArtifactDir, paper, doc, chunks); err != nil {
			log.Warn().Err(err).Int64("paper_id", paper.ID).Msg("writing ingest artifact")
		}
	}

	if err := p.index.Persist(ctx); err != nil {
		log.Warn().Err(err).Int64("paper_id", paper.ID).Msg("persisting vector index")
	}

	log.Info().
		Int64("paper_id", paper.ID).
		Str("file", name).
		Int("pages", paper.Pages).
		Int("chunks", len(chunks)).
		Msg("paper ingested")

	return &Outcome{
		PaperID: paper.ID,
		Title:   paper.DisplayTitle(),
		Pages:   paper.Pages,
		Chunks:  len(chunks),
	}, nil
}

// persistChunks writes chunk rows and vectors sharing one uuid per chunk.
func (p *Pipeline) persistChunks(ctx context.Context, paper *papers.Paper, chunks []chunker.Chunk, vectors [][]float32) error {
	rows := make([]papers.ChunkRow, len(chunks))
	records := make([]vectordb.Record, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		rows[i] = papers.ChunkRow{
			ID:         id,
			ChunkIndex: c.ChunkIndex,
			Section:    c.Section,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
			CharLen:    len(c.Text),
		}
		records[i] = vectordb.Record{
			ID:     id,
			Vector: vectors[i],
			Payload: vectordb.Payload{
				PaperID:    paper.ID,
				PaperTitle: paper.DisplayTitle(),
				Section:    c.Section,
				PageStart:  c.PageStart,
				PageEnd:    c.PageEnd,
				ChunkIndex: c.ChunkIndex,
				Text:       c.Text,
			},
		}
	}

	if err := p.store.AddChunks(ctx, paper.ID, rows); err != nil {
		return err
	}
	if err := p.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("indexing chunks: %w", err)
	}
	return nil
}

// rollback runs on a fresh context so a cancelled request still cleans up.
func (p *Pipeline) rollback(paperID int64) {
	ctx := context.Background()
	if err := p.index.DeleteByPaper(ctx, paperID); err != nil {
		log.Error().Err(err).Int64("paper_id", paperID).Msg("rollback: deleting vectors")
	}
	if err := p.store.Delete(ctx, paperID); err != nil && !errors.Is(err, papers.ErrNotFound) {
		log.Error().Err(err).Int64("paper_id", paperID).Msg("rollback: deleting paper")
	}
}
