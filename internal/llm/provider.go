package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a backend answers with no content.
var ErrEmptyResponse = errors.New("llm: empty response")

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// Streamer is implemented by providers that can deliver a completion
// incrementally. onDelta receives text fragments in order; returning an
// error from it aborts the stream. The returned response holds the full
// concatenated text.
type Streamer interface {
	Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (*CompletionResponse, error)
}

// Stream uses p's streaming variant when it has one. Otherwise it runs a
// normal completion and delivers the whole text as a single fragment.
func Stream(ctx context.Context, p Provider, req CompletionRequest, onDelta func(string) error) (*CompletionResponse, error) {
	if s, ok := p.(Streamer); ok {
		return s.Stream(ctx, req, onDelta)
	}

	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content != "" {
		if err := onDelta(resp.Content); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// UserPrompt builds a single-message conversation from a rendered prompt.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}
