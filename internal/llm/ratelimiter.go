package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider spaces generation calls so that at most rpm start
// in any minute. Up to rpm calls may burst after an idle period.
type RateLimitedProvider struct {
	provider Provider
	rpm      int

	mu     sync.Mutex
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewRateLimitedProvider wraps provider with a limit of rpm requests per
// minute. The wrapper streams when the wrapped provider does.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		rpm:      rpm,
		tokens:   float64(rpm),
		last:     time.Now(),
		now:      time.Now,
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// Stream waits for a slot and then streams through the wrapped provider,
// falling back to a single-fragment completion when it cannot stream.
func (r *RateLimitedProvider) Stream(ctx context.Context, req CompletionRequest, onDelta func(string) error) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return Stream(ctx, r.provider, req, onDelta)
}

// reserve takes a token if one is available and otherwise reports how long
// until the next one accrues.
func (r *RateLimitedProvider) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	perToken := time.Minute / time.Duration(r.rpm)
	r.tokens += float64(now.Sub(r.last)) / float64(perToken)
	if limit := float64(r.rpm); r.tokens > limit {
		r.tokens = limit
	}
	r.last = now

	if r.tokens >= 1 {
		r.tokens--
		return 0
	}
	return time.Duration((1 - r.tokens) * float64(perToken))
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	for {
		delay := r.reserve()
		if delay == 0 {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
