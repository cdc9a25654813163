// Package rerank re-scores retrieved passages with a cross-encoder.
package rerank

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

// Pair is one (query, passage) input to a cross-encoder.
type Pair struct {
	Query   string
	Passage string
}

// CrossEncoder scores pairs jointly. The result has one score per pair,
// in input order.
type CrossEncoder interface {
	Score(ctx context.Context, pairs []Pair) ([]float64, error)
}

// Reranker reorders contexts by cross-encoder relevance. It never fails:
// when scoring is unavailable the input is returned unchanged.
type Reranker struct {
	encoder CrossEncoder
	enabled bool
}

// New returns a Reranker. A nil encoder disables re-ranking.
func New(encoder CrossEncoder, enabled bool) *Reranker {
	return &Reranker{encoder: encoder, enabled: enabled && encoder != nil}
}

// Enabled reports whether Rerank will call the cross-encoder.
func (r *Reranker) Enabled() bool {
	return r != nil && r.enabled
}

// Rerank scores every context against query, sorts by the new score and
// keeps the best topK (all when topK <= 0). Each returned context carries
// its previous score in OriginalScore.
func (r *Reranker) Rerank(ctx context.Context, query string, contexts []retrieval.Context, topK int) []retrieval.Context {
	if !r.Enabled() || len(contexts) == 0 {
		return contexts
	}

	pairs := make([]Pair, len(contexts))
	for i, c := range contexts {
		pairs[i] = Pair{Query: query, Passage: c.Text}
	}

	scores, err := r.encoder.Score(ctx, pairs)
	if err != nil {
		log.Warn().Err(err).Int("candidates", len(contexts)).Msg("re-ranking failed, keeping retrieval order")
		return contexts
	}
	if len(scores) != len(contexts) {
		log.Warn().Int("scores", len(scores)).Int("candidates", len(contexts)).Msg("cross-encoder returned wrong number of scores, keeping retrieval order")
		return contexts
	}

	out := make([]retrieval.Context, len(contexts))
	for i, c := range contexts {
		orig := c.Score
		c.OriginalScore = &orig
		c.Score = scores[i]
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
