// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Cortex retrieval tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jacobmentalconstruct/neocortex/internal/ingest"
	"github.com/jacobmentalconstruct/neocortex/internal/retrieval"
	"github.com/jacobmentalconstruct/neocortex/internal/storage"
)

// Server wraps the MCP server with Cortex tools.
type Server struct {
	mcp      *server.MCPServer
	manager  *storage.Manager
	engine   *retrieval.Engine
	pipeline *ingest.Pipeline
}

// New creates a new MCP server with all Cortex tools registered.
func New(manager *storage.Manager, engine *retrieval.Engine, pipeline *ingest.Pipeline) *Server {
	s := &Server{manager: manager, engine: engine, pipeline: pipeline}

	s.mcp = server.NewMCPServer(
		"Cortex",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_knowledge_bases",
		mcp.WithDescription("List the available knowledge bases."),
	), s.listKnowledgeBases)

	s.mcp.AddTool(mcp.NewTool("search_knowledge",
		mcp.WithDescription("Hybrid semantic + phrase search over a knowledge base. "+
			"Returns chunk snippets ranked by fused relevance."),
		mcp.WithString("db_name", mcp.Required(), mcp.Description("Knowledge base to search (see list_knowledge_bases)")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return (default 10)")),
	), s.searchKnowledge)

	s.mcp.AddTool(mcp.NewTool("ingestion_status",
		mcp.WithDescription("Report the progress of the current or last ingestion job."),
	), s.ingestionStatus)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listKnowledgeBases(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.manager.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string][]string{"databases": names}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchKnowledge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dbName, err := req.RequireString("db_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 0)

	results, err := s.engine.Search(ctx, dbName, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) ingestionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.pipeline.Status().Snapshot(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
