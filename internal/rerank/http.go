package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPCrossEncoder calls a /rerank endpoint of the kind served by
// text-embeddings-inference, Jina, Cohere-compatible and llama.cpp servers.
type HTTPCrossEncoder struct {
	url    string
	model  string
	client *http.Client
}

// NewHTTPCrossEncoder creates a client for the rerank endpoint at url.
func NewHTTPCrossEncoder(url, model string, timeout time.Duration) *HTTPCrossEncoder {
	return &HTTPCrossEncoder{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score sends one request per distinct query and maps the results back
// to pair order.
func (e *HTTPCrossEncoder) Score(ctx context.Context, pairs []Pair) ([]float64, error) {
	scores := make([]float64, len(pairs))
	if len(pairs) == 0 {
		return scores, nil
	}

	groups := map[string][]int{}
	var order []string
	for i, p := range pairs {
		if _, ok := groups[p.Query]; !ok {
			order = append(order, p.Query)
		}
		groups[p.Query] = append(groups[p.Query], i)
	}

	for _, q := range order {
		idx := groups[q]
		docs := make([]string, len(idx))
		for j, i := range idx {
			docs[j] = pairs[i].Passage
		}

		results, err := e.post(ctx, rerankRequest{Model: e.model, Query: q, Documents: docs, TopN: len(docs)})
		if err != nil {
			return nil, err
		}

		seen := make([]bool, len(docs))
		for _, r := range results.Results {
			if r.Index < 0 || r.Index >= len(docs) {
				return nil, fmt.Errorf("rerank: result index %d out of range", r.Index)
			}
			scores[idx[r.Index]] = r.RelevanceScore
			seen[r.Index] = true
		}
		for j, ok := range seen {
			if !ok {
				return nil, fmt.Errorf("rerank: no score for document %d", j)
			}
		}
	}
	return scores, nil
}

func (e *HTTPCrossEncoder) post(ctx context.Context, req rerankRequest) (*rerankResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating rerank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}
	return &out, nil
}
