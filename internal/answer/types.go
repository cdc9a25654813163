package answer

import (
	"errors"

	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

// ErrGeneration wraps failures of the text generation backend. Callers
// surface it as an upstream error.
var ErrGeneration = errors.New("answer: generation failed")

const (
	// GuardAnswer is returned for empty, very short or small-talk input.
	GuardAnswer = "Hi! Ask me a question about the ingested research papers, for example " +
		`"What problem does the Transformer architecture solve?" or "How does Bitcoin prevent double spending?"`

	// NoContextAnswer is returned when retrieval finds nothing relevant.
	NoContextAnswer = "I couldn't find relevant information in the ingested papers to answer this question. " +
		"Try rephrasing it or ingest a paper that covers the topic."
)

// Request is one question to answer.
type Request struct {
	Question   string  `json:"question"`
	Model      string  `json:"model,omitempty"`
	TopK       int     `json:"top_k,omitempty"`
	PaperIDs   []int64 `json:"paper_ids,omitempty"`
	RenderHTML bool    `json:"render_html,omitempty"`
}

// Citation maps a "(Source N)" marker in the answer back to its context.
type Citation struct {
	PaperTitle     string  `json:"paper_title"`
	PaperFilename  string  `json:"paper_filename"`
	PaperID        int64   `json:"paper_id"`
	SourceIndex    int     `json:"source_index"`
	Section        string  `json:"section"`
	Page           string  `json:"page"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Result is the answer to one Request.
type Result struct {
	Answer         string              `json:"answer"`
	AnswerHTML     string              `json:"answer_html,omitempty"`
	Citations      []Citation          `json:"citations"`
	SourcesUsed    []string            `json:"sources_used"`
	PaperIDsUsed   []int64             `json:"paper_ids_used"`
	Confidence     float64             `json:"confidence"`
	Contexts       []retrieval.Context `json:"contexts"`
	ResponseTimeMs int64               `json:"response_time_ms"`
}

func cannedResult(text string) *Result {
	return &Result{
		Answer:       text,
		Citations:    []Citation{},
		SourcesUsed:  []string{},
		PaperIDsUsed: []int64{},
		Contexts:     []retrieval.Context{},
	}
}
