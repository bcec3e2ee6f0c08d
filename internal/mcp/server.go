// Package mcp exposes the assistant to MCP clients over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/amtly/amtly/internal/router"
	"github.com/amtly/amtly/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes form help and document search.
type Server struct {
	engine *router.Engine
	store  vectordb.VectorStore
	logger *zap.Logger
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. store may be nil when no documents
// are indexed; search_documents then reports that.
func NewServer(engine *router.Engine, store vectordb.VectorStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		store:  store,
		logger: logger,
	}

	s.mcp = server.NewMCPServer(
		"amtly",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(lookupFormFieldTool, s.handleLookupFormField)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(listFormsTool, s.handleListForms)
	s.mcp.AddTool(suggestFormsTool, s.handleSuggestForms)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
