package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askPapersTool defines the ask_papers MCP tool.
var askPapersTool = mcp.NewTool("ask_papers",
	mcp.WithDescription("Answer a question from the ingested research papers. The answer cites its sources as (Source N)."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of passages to answer from (default 5)"),
	),
	mcp.WithArray("paper_ids",
		mcp.Description("Restrict the answer to these paper ids"),
		mcp.Items(map[string]any{"type": "integer"}),
	),
)

// listPapersTool defines the list_papers MCP tool.
var listPapersTool = mcp.NewTool("list_papers",
	mcp.WithDescription("List the ingested papers with their ids, titles and chunk counts."),
)

// searchPassagesTool defines the search_passages MCP tool.
var searchPassagesTool = mcp.NewTool("search_passages",
	mcp.WithDescription("Search the papers semantically and return the most relevant passages without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
)
