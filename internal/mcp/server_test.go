package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/paper-rag/internal/answer"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

type mockAnswerer struct {
	last answer.Request
	err  error
}

func (m *mockAnswerer) Answer(_ context.Context, req answer.Request) (*answer.Result, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &answer.Result{
		Answer: "The Transformer relies on attention (Source 1).",
		Citations: []answer.Citation{{
			PaperTitle: "Attention Is All You Need", SourceIndex: 1, Section: "Abstract", Page: "1-1",
		}},
		Confidence: 0.82,
	}, nil
}

type mockLister struct{ list []papers.Paper }

func (m *mockLister) List(context.Context) ([]papers.Paper, error) { return m.list, nil }

type mockSearcher struct {
	contexts []retrieval.Context
	lastK    int
}

func (m *mockSearcher) Retrieve(_ context.Context, _ string, topK int, _ []int64) ([]retrieval.Context, error) {
	m.lastK = topK
	if len(m.contexts) > topK {
		return m.contexts[:topK], nil
	}
	return m.contexts, nil
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
	}{
		{askPapersTool, "ask_papers"},
		{listPapersTool, "list_papers"},
		{searchPassagesTool, "search_passages"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(&mockAnswerer{}, &mockLister{}, &mockSearcher{}, 20)
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleAskPapers(t *testing.T) {
	ctx := context.Background()

	t.Run("answers with sources", func(t *testing.T) {
		a := &mockAnswerer{}
		srv := NewServer(a, &mockLister{}, &mockSearcher{}, 20)

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"question":  "What does the Transformer rely on?",
			"top_k":     float64(50),
			"paper_ids": []any{float64(3), float64(7)},
		}
		res, err := srv.handleAskPapers(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected tool error: %v", res.Content)
		}

		text := resultText(t, res)
		if !strings.Contains(text, "(Source 1) Attention Is All You Need") {
			t.Errorf("missing source line in %q", text)
		}
		if !strings.Contains(text, "Confidence: 82%") {
			t.Errorf("missing confidence in %q", text)
		}
		if a.last.TopK != 20 {
			t.Errorf("top_k = %d, want clamp to 20", a.last.TopK)
		}
		if len(a.last.PaperIDs) != 2 || a.last.PaperIDs[0] != 3 || a.last.PaperIDs[1] != 7 {
			t.Errorf("paper ids = %v", a.last.PaperIDs)
		}
	})

	t.Run("missing question", func(t *testing.T) {
		srv := NewServer(&mockAnswerer{}, &mockLister{}, &mockSearcher{}, 20)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		res, err := srv.handleAskPapers(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsError {
			t.Error("expected error for missing question")
		}
	})

	t.Run("generation failure", func(t *testing.T) {
		srv := NewServer(&mockAnswerer{err: errors.New("ollama unreachable")}, &mockLister{}, &mockSearcher{}, 20)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"question": "What is attention?"}

		res, err := srv.handleAskPapers(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsError {
			t.Error("expected tool error")
		}
	})
}

func TestHandleListPapers(t *testing.T) {
	ctx := context.Background()

	srv := NewServer(&mockAnswerer{}, &mockLister{list: []papers.Paper{
		{ID: 1, Title: "Attention Is All You Need", Authors: "Vaswani et al.", Year: "2017", Filename: "attention.pdf", Pages: 15, ChunkCount: 42},
		{ID: 2, Filename: "untitled.pdf"},
	}}, &mockSearcher{}, 20)

	res, err := srv.handleListPapers(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, res)
	for _, want := range []string{"2 paper(s)", "[1] Attention Is All You Need", "Year: 2017", "42 chunks", "[2] untitled.pdf"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	empty := NewServer(&mockAnswerer{}, &mockLister{}, &mockSearcher{}, 20)
	res, err = empty.handleListPapers(ctx, mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError || !strings.Contains(resultText(t, res), "No papers") {
		t.Error("empty library should produce a hint, not an error")
	}
}

func TestHandleSearchPassages(t *testing.T) {
	ctx := context.Background()
	searcher := &mockSearcher{contexts: []retrieval.Context{
		{Text: "Self-attention relates positions of a sequence.", Section: "Model Architecture", PageStart: 3, PageEnd: 4,
			PaperID: 1, PaperTitle: "Attention Is All You Need", Score: 0.91},
		{Text: "BERT is pre-trained bidirectionally.", Section: "Introduction", PageStart: 1, PageEnd: 1,
			PaperID: 2, PaperTitle: "BERT", Score: 0.5},
	}}
	srv := NewServer(&mockAnswerer{}, &mockLister{}, searcher, 20)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "self-attention", "top_k": float64(1)}
	res, err := srv.handleSearchPassages(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "Found 1 passage(s)") || !strings.Contains(text, "Pages: 3-4") {
		t.Errorf("unexpected output:\n%s", text)
	}
	if searcher.lastK != 1 {
		t.Errorf("top_k = %d, want 1", searcher.lastK)
	}

	req.Params.Arguments = map[string]any{}
	res, err = srv.handleSearchPassages(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Error("expected error for missing query")
	}
}
