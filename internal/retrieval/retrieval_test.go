package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/paper-rag/internal/config"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/vectordb"
)

type stubEmbedder struct{ calls int }

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (e *stubEmbedder) Dimensions() int { return 3 }
func (e *stubEmbedder) Name() string    { return "stub" }

type stubSearcher struct {
	hits      []vectordb.Hit
	err       error
	filter    *vectordb.Filter
	threshold float32
	limit     int
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, limit int, filter *vectordb.Filter, threshold float32) ([]vectordb.Hit, error) {
	s.limit, s.filter, s.threshold = limit, filter, threshold
	return s.hits, s.err
}

type stubLookup struct {
	rows  map[int64]*papers.Paper
	asked [][]int64
}

func (l *stubLookup) GetMany(_ context.Context, ids []int64) (map[int64]*papers.Paper, error) {
	l.asked = append(l.asked, ids)
	out := map[int64]*papers.Paper{}
	for _, id := range ids {
		if p, ok := l.rows[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func hit(paperID int64, score float32, text, title string) vectordb.Hit {
	return vectordb.Hit{
		ID:    "id",
		Score: score,
		Payload: vectordb.Payload{
			PaperID: paperID, PaperTitle: title, Section: "Introduction",
			PageStart: 1, PageEnd: 2, Text: text,
		},
	}
}

func testOptions() Options {
	return OptionsFromConfig(config.DefaultConfig().Retrieval)
}

func TestRetrieveUnscoped(t *testing.T) {
	search := &stubSearcher{hits: []vectordb.Hit{
		hit(1, 0.8, "first chunk", "stale title"),
		hit(2, 0.6, "second chunk", "Payload Title"),
		hit(1, 0.4, "third chunk", "stale title"),
	}}
	lookup := &stubLookup{rows: map[int64]*papers.Paper{
		1: {ID: 1, Title: "Attention Is All You Need", Filename: "attention.pdf"},
	}}
	r := NewRetriever(&stubEmbedder{}, search, lookup, testOptions())

	got, err := r.Retrieve(context.Background(), "what is new here", 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Nil(t, search.filter)
	assert.InDelta(t, 0.15, search.threshold, 1e-6)
	assert.Equal(t, 5, search.limit)

	require.Len(t, lookup.asked, 1, "metadata must be fetched in one batch")
	assert.ElementsMatch(t, []int64{1, 2}, lookup.asked[0])

	assert.Equal(t, "Attention Is All You Need", got[0].PaperTitle)
	assert.Equal(t, "attention.pdf", got[0].PaperFilename)
	assert.Equal(t, "Payload Title", got[1].PaperTitle, "falls back to payload title")
	assert.Empty(t, got[1].PaperFilename)
	assert.Equal(t, "1-2", got[0].Pages())
	assert.InDelta(t, 0.8, got[0].Score, 1e-6)
}

func TestRetrieveScopedUsesLowerThreshold(t *testing.T) {
	search := &stubSearcher{}
	r := NewRetriever(&stubEmbedder{}, search, &stubLookup{}, testOptions())

	got, err := r.Retrieve(context.Background(), "q", 4, []int64{3, 7})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NotNil(t, search.filter)
	assert.Equal(t, []int64{3, 7}, search.filter.PaperIDs)
	assert.InDelta(t, 0.05, search.threshold, 1e-6)
}

func TestRetrieveKeywordBoost(t *testing.T) {
	search := &stubSearcher{hits: []vectordb.Hit{
		hit(1, 0.50, "convolutions everywhere", ""),
		hit(2, 0.45, "the attention mechanism", ""),
		hit(3, 0.44, "plain text", ""),
	}}
	lookup := &stubLookup{rows: map[int64]*papers.Paper{
		1: {ID: 1, Title: "Deep Residual Learning", Filename: "resnet.pdf"},
		2: {ID: 2, Title: "Attention Is All You Need", Filename: "attention.pdf"},
		3: {ID: 3, Title: "Bitcoin", Filename: "bitcoin.pdf"},
	}}
	r := NewRetriever(&stubEmbedder{}, search, lookup, testOptions())

	got, err := r.Retrieve(context.Background(), "How does ATTENTION work?", 3, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, int64(2), got[0].PaperID)
	assert.InDelta(t, 0.45+0.05+0.1, got[0].Score, 1e-6)
	assert.Equal(t, int64(1), got[1].PaperID)
	assert.Equal(t, int64(3), got[2].PaperID)
}

func TestRetrieveNoCueKeepsOrder(t *testing.T) {
	search := &stubSearcher{hits: []vectordb.Hit{
		hit(1, 0.50, "a", ""),
		hit(2, 0.45, "attention", ""),
	}}
	r := NewRetriever(&stubEmbedder{}, search, &stubLookup{}, testOptions())

	got, err := r.Retrieve(context.Background(), "explain residual connections", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got[0].PaperID)
	assert.InDelta(t, 0.45, got[1].Score, 1e-6)
}

func TestRetrieveSearchError(t *testing.T) {
	search := &stubSearcher{err: errors.New("index offline")}
	r := NewRetriever(&stubEmbedder{}, search, &stubLookup{}, testOptions())

	_, err := r.Retrieve(context.Background(), "q", 2, nil)
	assert.ErrorContains(t, err, "index offline")
}

type stubCatalog struct {
	refs  []papers.Ref
	err   error
	calls int
}

func (c *stubCatalog) ListRefs(context.Context) ([]papers.Ref, error) {
	c.calls++
	return c.refs, c.err
}

func catalog() *stubCatalog {
	return &stubCatalog{refs: []papers.Ref{
		{ID: 1, Title: "Attention Is All You Need", Filename: "attention_is_all_you_need.pdf"},
		{ID: 2, Title: "BERT: Pre-training of Deep Bidirectional Transformers", Filename: "bert.pdf"},
		{ID: 3, Title: "Bitcoin: A Peer-to-Peer Electronic Cash System", Filename: "bitcoin.pdf"},
		{ID: 4, Title: "Deep Residual Learning for Image Recognition", Filename: "resnet.pdf"},
	}}
}

func scopeConfig() config.ScopeConfig {
	return config.DefaultConfig().Scope
}

func TestExtractQuotedTitles(t *testing.T) {
	assert.Equal(t, []string{"Deep Learning", "Neural Networks"},
		ExtractQuotedTitles(`Compare 'Deep Learning' and "Neural Networks"`))
	assert.Empty(t, ExtractQuotedTitles("What's the main idea? I don't know"))
	assert.Equal(t, []string{"BERT"}, ExtractQuotedTitles("What's new in 'BERT'?"))
	assert.Empty(t, ExtractQuotedTitles("no quotes at all"))
}

func TestDetectStrongMatch(t *testing.T) {
	d := NewScopeDetector(catalog(), scopeConfig())
	got := d.Detect(context.Background(), `What does "Attention Is All You Need" propose?`)
	assert.Equal(t, []int64{1}, got)
}

func TestDetectShortQuoteIsNotStrong(t *testing.T) {
	d := NewScopeDetector(catalog(), scopeConfig())
	assert.Empty(t, d.Detect(context.Background(), `Summarize 'BERT'`))
}

func TestDetectMediumMatchesNeedTwoPapers(t *testing.T) {
	cat := catalog()
	d := NewScopeDetector(cat, scopeConfig())

	// Only the BERT paper has two transformer-cluster terms in its title.
	assert.Empty(t, d.Detect(context.Background(), "How do transformer encoders work?"))

	cat.refs = append(cat.refs, papers.Ref{ID: 5, Title: "Improving Language Understanding with GPT decoders", Filename: "gpt.pdf"})
	assert.Equal(t, []int64{2, 5}, d.Detect(context.Background(), "How do transformer encoders work?"))
}

func TestDetectFallbackWithoutSignals(t *testing.T) {
	cat := catalog()
	d := NewScopeDetector(cat, scopeConfig())
	assert.Empty(t, d.Detect(context.Background(), "What is the capital of France?"))
	assert.Zero(t, cat.calls)
}

func TestDetectFailsOpen(t *testing.T) {
	cat := &stubCatalog{err: errors.New("database locked")}
	d := NewScopeDetector(cat, scopeConfig())
	assert.Empty(t, d.Detect(context.Background(), `Explain "Attention Is All You Need"`))
	assert.Equal(t, 1, cat.calls)
}

func TestKeywordsFromClusters(t *testing.T) {
	d := NewScopeDetector(catalog(), config.ScopeConfig{
		Clusters: []config.KeywordCluster{
			{Name: "chain", Terms: []string{"Blockchain", "ledger"}},
			{Name: "vision", Terms: []string{"image"}},
		},
	})
	assert.Equal(t, []string{"blockchain", "ledger"}, d.Keywords("Is a LEDGER secure?"))
	assert.Empty(t, d.Keywords("nothing relevant"))
}
