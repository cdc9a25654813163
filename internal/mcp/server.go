// Package mcp exposes the paper library to MCP clients over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/paper-rag/internal/answer"
	"github.com/ziadkadry99/paper-rag/internal/papers"
	"github.com/ziadkadry99/paper-rag/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Answerer answers questions over the library.
type Answerer interface {
	Answer(ctx context.Context, req answer.Request) (*answer.Result, error)
}

// PaperLister lists registered papers.
type PaperLister interface {
	List(ctx context.Context) ([]papers.Paper, error)
}

// PassageSearcher finds passages relevant to a query.
type PassageSearcher interface {
	Retrieve(ctx context.Context, query string, topK int, paperIDs []int64) ([]retrieval.Context, error)
}

// Server wraps an MCP server that exposes the paper tools.
type Server struct {
	answerer Answerer
	papers   PaperLister
	searcher PassageSearcher
	maxTopK  int
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(answerer Answerer, papers PaperLister, searcher PassageSearcher, maxTopK int) *Server {
	s := &Server{
		answerer: answerer,
		papers:   papers,
		searcher: searcher,
		maxTopK:  maxTopK,
	}

	s.mcp = server.NewMCPServer(
		"paperrag",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askPapersTool, s.handleAskPapers)
	s.mcp.AddTool(listPapersTool, s.handleListPapers)
	s.mcp.AddTool(searchPassagesTool, s.handleSearchPassages)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
