package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/paper-rag/internal/answer"
	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

const defaultTopK = 5

// topK reads the top_k argument, clamped to 1..maxTopK.
func (s *Server) topK(request mcp.CallToolRequest) int {
	k := request.GetInt("top_k", defaultTopK)
	if k <= 0 {
		k = defaultTopK
	}
	if s.maxTopK > 0 && k > s.maxTopK {
		k = s.maxTopK
	}
	return k
}

// paperIDs reads the optional paper_ids array. JSON numbers arrive as float64.
func paperIDs(request mcp.CallToolRequest) []int64 {
	raw, ok := request.GetArguments()["paper_ids"].([]any)
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			ids = append(ids, int64(n))
		case int:
			ids = append(ids, int64(n))
		case int64:
			ids = append(ids, n)
		}
	}
	return ids
}

// handleAskPapers runs the full question answering pipeline.
func (s *Server) handleAskPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	res, err := s.answerer.Answer(ctx, answer.Request{
		Question: question,
		TopK:     s.topK(request),
		PaperIDs: paperIDs(request),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatAnswer(res)), nil
}

// handleListPapers lists the library.
func (s *Server) handleListPapers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.papers.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing papers failed: %v", err)), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No papers ingested yet. Run `paperrag ingest <dir>` to add some."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d paper(s):\n", len(list)))
	for _, p := range list {
		sb.WriteString(fmt.Sprintf("\n[%d] %s\n", p.ID, p.DisplayTitle()))
		if p.Authors != "" {
			sb.WriteString(fmt.Sprintf("Authors: %s\n", p.Authors))
		}
		if p.Year != "" {
			sb.WriteString(fmt.Sprintf("Year: %s\n", p.Year))
		}
		sb.WriteString(fmt.Sprintf("File: %s (%d pages, %d chunks)\n", p.Filename, p.Pages, p.ChunkCount))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchPassages returns retrieved passages without generation.
func (s *Server) handleSearchPassages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	contexts, err := s.searcher.Retrieve(ctx, query, s.topK(request), nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(contexts) == 0 {
		return mcp.NewToolResultText("No relevant passages found. The library may be empty."), nil
	}

	return mcp.NewToolResultText(formatPassages(contexts)), nil
}

// formatAnswer renders an answer with its numbered sources for AI agent
// consumption.
func formatAnswer(res *answer.Result) string {
	var sb strings.Builder
	sb.WriteString(res.Answer)
	sb.WriteString("\n")

	if len(res.Citations) > 0 {
		sb.WriteString("\nSources:\n")
		for _, c := range res.Citations {
			sb.WriteString(fmt.Sprintf("(Source %d) %s, %s, pages %s\n", c.SourceIndex, c.PaperTitle, c.Section, c.Page))
		}
	}
	sb.WriteString(fmt.Sprintf("\nConfidence: %.0f%%\n", res.Confidence*100))
	return sb.String()
}

func formatPassages(contexts []retrieval.Context) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d passage(s):\n", len(contexts)))

	for i, c := range contexts {
		sb.WriteString(fmt.Sprintf("\n--- Passage %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Paper: %s [%d]\n", c.PaperTitle, c.PaperID))
		sb.WriteString(fmt.Sprintf("Section: %s\n", c.Section))
		sb.WriteString(fmt.Sprintf("Pages: %s\n", c.Pages()))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", c.Score*100))
		sb.WriteString("\n")
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}
