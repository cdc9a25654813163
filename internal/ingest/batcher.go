package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/papers"
)

// Ingester ingests a single file.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*Outcome, error)
}

// Batcher ingests files concurrently with a fixed admission limit. A
// failing document never affects its siblings.
type Batcher struct {
	concurrency int
	ingester    Ingester
	onProgress  ProgressFunc
}

// NewBatcher creates a new Batcher with the given concurrency limit.
func NewBatcher(concurrency int, ingester Ingester, onProgress ProgressFunc) *Batcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batcher{
		concurrency: concurrency,
		ingester:    ingester,
		onProgress:  onProgress,
	}
}

// Run ingests paths and returns one result per path, in input order.
// Files whose name is already registered are reported as skipped.
func (b *Batcher) Run(ctx context.Context, paths []string) *BatchResult {
	result := &BatchResult{
		JobID:   uuid.NewString(),
		Results: make([]DocResult, len(paths)),
	}
	total := len(paths)
	if total == 0 {
		return result
	}

	sem := make(chan struct{}, b.concurrency)
	var processed int64
	done := func(name string) {
		count := atomic.AddInt64(&processed, 1)
		if b.onProgress != nil {
			b.onProgress(int(count), total, name)
		}
	}

	var wg sync.WaitGroup
	for i, path := range paths {
		select {
		case <-ctx.Done():
			result.Results[i] = DocResult{File: path, Status: StatusFailed, Error: ctx.Err().Error()}
			done(path)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			// Each slot is written by exactly one goroutine.
			result.Results[i] = b.ingestOne(ctx, path)
			done(path)
		}(i, path)
	}
	wg.Wait()

	for _, r := range result.Results {
		switch r.Status {
		case StatusOK:
			result.Summary.Succeeded++
		case StatusSkipped:
			result.Summary.Skipped++
		default:
			result.Summary.Failed++
		}
	}

	log.Info().
		Str("job_id", result.JobID).
		Int("succeeded", result.Summary.Succeeded).
		Int("failed", result.Summary.Failed).
		Int("skipped", result.Summary.Skipped).
		Msg("ingest batch finished")
	return result
}

func (b *Batcher) ingestOne(ctx context.Context, path string) DocResult {
	res := DocResult{File: path}
	out, err := b.ingester.IngestFile(ctx, path)
	switch {
	case errors.Is(err, papers.ErrDuplicate):
		res.Status = StatusSkipped
		res.Error = err.Error()
	case err != nil:
		log.Warn().Err(err).Str("file", path).Msg("ingest failed")
		res.Status = StatusFailed
		res.Error = err.Error()
	default:
		res.Status = StatusOK
		res.PaperID = out.PaperID
		res.Title = out.Title
		res.Chunks = out.Chunks
	}
	return res
}
