package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/config"
	"github.com/ziadkadry99/paper-rag/internal/embeddings"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/vectordb"
)

// Searcher is the read side of the vector index.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int, filter *vectordb.Filter, threshold float32) ([]vectordb.Hit, error)
}

// PaperLookup batch-fetches paper rows by id.
type PaperLookup interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]*papers.Paper, error)
}

// Options tunes thresholds and the keyword boost.
type Options struct {
	ScopedThreshold   float64
	UnscopedThreshold float64
	BoostTerms        []string
	ChunkBoost        float64
	TitleBoost        float64
}

// OptionsFromConfig maps the retrieval config section onto Options.
func OptionsFromConfig(c config.RetrievalConfig) Options {
	return Options{
		ScopedThreshold:   c.ScopedThreshold,
		UnscopedThreshold: c.UnscopedThreshold,
		BoostTerms:        c.BoostTerms,
		ChunkBoost:        c.ChunkBoost,
		TitleBoost:        c.TitleBoost,
	}
}

// Retriever embeds a query and returns the nearest chunks as Contexts.
type Retriever struct {
	embedder embeddings.Embedder
	index    Searcher
	papers   PaperLookup
	opts     Options
}

// NewRetriever wires a retriever. The embedder is usually a CachedEmbedder.
func NewRetriever(embedder embeddings.Embedder, index Searcher, lookup PaperLookup, opts Options) *Retriever {
	return &Retriever{embedder: embedder, index: index, papers: lookup, opts: opts}
}

// Retrieve returns up to topK contexts for query, restricted to paperIDs
// when it is non-empty. No hits is an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, paperIDs []int64) ([]Context, error) {
	if topK <= 0 {
		return []Context{}, nil
	}

	vec, err := embeddings.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filter *vectordb.Filter
	threshold := r.opts.UnscopedThreshold
	if len(paperIDs) > 0 {
		filter = &vectordb.Filter{PaperIDs: paperIDs}
		threshold = r.opts.ScopedThreshold
	}

	hits, err := r.index.Search(ctx, vec, topK, filter, float32(threshold))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if len(hits) == 0 {
		return []Context{}, nil
	}

	meta, err := r.papers.GetMany(ctx, distinctPaperIDs(hits))
	if err != nil {
		return nil, fmt.Errorf("loading paper metadata: %w", err)
	}

	out := make([]Context, 0, len(hits))
	for _, h := range hits {
		c := Context{
			Text:       h.Payload.Text,
			Section:    h.Payload.Section,
			PageStart:  h.Payload.PageStart,
			PageEnd:    h.Payload.PageEnd,
			PaperID:    h.Payload.PaperID,
			PaperTitle: h.Payload.PaperTitle,
			Score:      float64(h.Score),
		}
		if p, ok := meta[h.Payload.PaperID]; ok {
			c.PaperTitle = p.DisplayTitle()
			c.PaperFilename = p.Filename
		} else {
			log.Debug().Int64("paper_id", h.Payload.PaperID).Msg("hit without paper row")
		}
		out = append(out, c)
	}

	r.boost(query, out)
	return out, nil
}

func distinctPaperIDs(hits []vectordb.Hit) []int64 {
	seen := make(map[int64]bool, len(hits))
	var ids []int64
	for _, h := range hits {
		if !seen[h.Payload.PaperID] {
			seen[h.Payload.PaperID] = true
			ids = append(ids, h.Payload.PaperID)
		}
	}
	return ids
}

// boost adds fixed bonuses for cue terms that appear literally in the
// query, then re-sorts. Without a cue term the vector order is kept.
func (r *Retriever) boost(query string, contexts []Context) {
	q := strings.ToLower(query)
	var cues []string
	for _, t := range r.opts.BoostTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(q, t) {
			cues = append(cues, t)
		}
	}
	if len(cues) == 0 {
		return
	}

	for i := range contexts {
		text := strings.ToLower(contexts[i].Text)
		title := strings.ToLower(contexts[i].PaperTitle)
		for _, cue := range cues {
			if strings.Contains(text, cue) {
				contexts[i].Score += r.opts.ChunkBoost
			}
			if strings.Contains(title, cue) {
				contexts[i].Score += r.opts.TitleBoost
			}
		}
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].Score > contexts[j].Score
	})
}
