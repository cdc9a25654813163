package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultSettle is how long a file must stay quiet before it is ingested.
const DefaultSettle = 2 * time.Second

// Watcher ingests PDFs that appear or change in a directory.
type Watcher struct {
	dir     string
	include []string
	exclude []string
	batcher *Batcher
	settle  time.Duration

	// OnBatch, when set, receives every batch result.
	OnBatch func(*BatchResult)
}

// NewWatcher watches dir (not recursively). The batcher should wrap a
// replacing pipeline so modified files are re-ingested.
func NewWatcher(dir string, include, exclude []string, batcher *Batcher, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{dir: dir, include: include, exclude: exclude, batcher: batcher, settle: settle}
}

// Run blocks until ctx is done. Writes arrive in bursts while a file is
// copied, so a path is only ingested once no event has touched it for the
// settle period.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	log.Info().Str("dir", w.dir).Msg("watching for papers")

	pending := map[string]time.Time{}
	ticker := time.NewTicker(w.settle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !Matches(filepath.Base(ev.Name), w.include, w.exclude) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")

		case now := <-ticker.C:
			var ready []string
			for path, last := range pending {
				if now.Sub(last) >= w.settle {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			if len(ready) == 0 {
				continue
			}
			sort.Strings(ready)
			res := w.batcher.Run(ctx, ready)
			if w.OnBatch != nil {
				w.OnBatch(res)
			}
		}
	}
}
