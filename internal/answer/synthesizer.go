package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/paper-rag/internal/config"
	"github.com/ziadkadry99/paper-rag/internal/history"
	"github.com/ziadkadry99/paper-rag/internal/llm"
	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

// ScopeDetector picks the papers a question is about.
type ScopeDetector interface {
	Detect(ctx context.Context, question string) []int64
}

// Retriever fetches candidate contexts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, paperIDs []int64) ([]retrieval.Context, error)
}

// Reranker reorders and truncates candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, contexts []retrieval.Context, topK int) []retrieval.Context
}

// Options configures a Synthesizer.
type Options struct {
	Model          string
	MaxTokens      int
	TopK           int
	Multiplier     int
	MinQuestionLen int
	Greetings      []string
	Confidence     ConfidenceOptions
}

// OptionsFromConfig collects the settings the synthesizer reads from
// several config sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		TopK:           cfg.Retrieval.TopK,
		Multiplier:     cfg.Retrieval.Multiplier,
		MinQuestionLen: cfg.Answer.MinQuestionLen,
		Greetings:      cfg.Answer.Greetings,
		Confidence: ConfidenceOptions{
			CitationBonus:      cfg.Answer.CitationBonus,
			UncertaintyPenalty: cfg.Answer.UncertaintyPenalty,
			UncertaintyPhrases: cfg.Answer.UncertaintyPhrases,
		},
	}
}

// Synthesizer runs the question answering pipeline: guard, scope,
// retrieve, rerank, generate, then extract citations and confidence.
type Synthesizer struct {
	scope     ScopeDetector
	retriever Retriever
	reranker  Reranker
	provider  llm.Provider
	recorder  history.Recorder
	opts      Options
}

// NewSynthesizer wires the pipeline. scope and recorder may be nil.
func NewSynthesizer(scope ScopeDetector, retriever Retriever, reranker Reranker, provider llm.Provider, recorder history.Recorder, opts Options) *Synthesizer {
	if recorder == nil {
		recorder = history.NopRecorder{}
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 1
	}
	return &Synthesizer{
		scope:     scope,
		retriever: retriever,
		reranker:  reranker,
		provider:  provider,
		recorder:  recorder,
		opts:      opts,
	}
}

// Answer answers a question with a single generation call.
func (s *Synthesizer) Answer(ctx context.Context, req Request) (*Result, error) {
	return s.run(ctx, req, nil)
}

// Stream answers a question, passing generated text to onDelta as it
// arrives. Canned answers are delivered as a single fragment.
func (s *Synthesizer) Stream(ctx context.Context, req Request, onDelta func(string) error) (*Result, error) {
	return s.run(ctx, req, onDelta)
}

func (s *Synthesizer) run(ctx context.Context, req Request, onDelta func(string) error) (*Result, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)

	if IsTrivial(question, s.opts.MinQuestionLen, s.opts.Greetings) {
		return s.canned(GuardAnswer, onDelta)
	}

	topK := req.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}

	scope := s.resolveScope(ctx, question, req.PaperIDs)

	candidates, err := s.retriever.Retrieve(ctx, question, topK*s.opts.Multiplier, scope)
	if err != nil {
		return nil, fmt.Errorf("retrieving contexts: %w", err)
	}

	contexts := candidates
	if s.reranker != nil {
		contexts = s.reranker.Rerank(ctx, question, candidates, topK)
	}
	if len(contexts) > topK {
		contexts = contexts[:topK]
	}

	if len(contexts) == 0 {
		res, err := s.canned(NoContextAnswer, onDelta)
		if err != nil {
			return nil, err
		}
		res.ResponseTimeMs = time.Since(start).Milliseconds()
		s.record(ctx, question, res)
		return res, nil
	}

	text, err := s.generate(ctx, req.Model, AssemblePrompt(question, contexts), onDelta)
	if err != nil {
		return nil, err
	}

	res := build(text, contexts, s.opts.Confidence)
	if req.RenderHTML {
		html, err := RenderHTML(res.Answer)
		if err != nil {
			log.Warn().Err(err).Msg("rendering answer markdown")
		}
		res.AnswerHTML = html
	}
	res.ResponseTimeMs = time.Since(start).Milliseconds()

	log.Info().
		Int("contexts", len(contexts)).
		Int("citations", len(res.Citations)).
		Float64("confidence", res.Confidence).
		Int64("ms", res.ResponseTimeMs).
		Msg("question answered")

	s.record(ctx, question, res)
	return res, nil
}

// resolveScope unions caller supplied paper ids with detected ones.
func (s *Synthesizer) resolveScope(ctx context.Context, question string, callerIDs []int64) []int64 {
	var detected []int64
	if s.scope != nil {
		detected = s.scope.Detect(ctx, question)
	}
	if len(callerIDs) == 0 {
		return detected
	}
	return union(callerIDs, detected)
}

func (s *Synthesizer) generate(ctx context.Context, model, prompt string, onDelta func(string) error) (string, error) {
	if model == "" {
		model = s.opts.Model
	}
	creq := llm.CompletionRequest{
		Model:       model,
		Messages:    llm.UserPrompt(prompt),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: 0,
	}

	var resp *llm.CompletionResponse
	var err error
	if onDelta != nil {
		resp, err = llm.Stream(ctx, s.provider, creq, onDelta)
	} else {
		resp, err = s.provider.Complete(ctx, creq)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return resp.Content, nil
}

func (s *Synthesizer) canned(text string, onDelta func(string) error) (*Result, error) {
	if onDelta != nil {
		if err := onDelta(text); err != nil {
			return nil, err
		}
	}
	return cannedResult(text), nil
}

// record hands the result to the history recorder. Its error never
// reaches the caller.
func (s *Synthesizer) record(ctx context.Context, question string, res *Result) {
	err := s.recorder.Record(ctx, history.Entry{
		Question:       question,
		ResponseTimeMs: res.ResponseTimeMs,
		Confidence:     res.Confidence,
		PaperIDs:       res.PaperIDsUsed,
	})
	if err != nil {
		log.Warn().Err(err).Msg("recording query history")
	}
}

func build(text string, contexts []retrieval.Context, opts ConfidenceOptions) *Result {
	res := &Result{
		Answer:       strings.TrimSpace(text),
		Citations:    ExtractCitations(text, contexts),
		SourcesUsed:  []string{},
		PaperIDsUsed: []int64{},
		Confidence:   Confidence(text, contexts, opts),
		Contexts:     contexts,
	}

	seenFile := map[string]bool{}
	seenID := map[int64]bool{}
	for _, c := range contexts {
		if c.PaperFilename != "" && !seenFile[c.PaperFilename] {
			seenFile[c.PaperFilename] = true
			res.SourcesUsed = append(res.SourcesUsed, c.PaperFilename)
		}
		if !seenID[c.PaperID] {
			seenID[c.PaperID] = true
			res.PaperIDsUsed = append(res.PaperIDsUsed, c.PaperID)
		}
	}
	return res
}

func union(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, ids := range [][]int64{a, b} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
