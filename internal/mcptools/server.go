// Package mcptools exposes the gnosis domain — search, the link graph,
// and collection management — as a Model Context Protocol tool server for
// AI agent clients, built on the official modelcontextprotocol/go-sdk.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gnosis-index/gnosis/internal/app"
	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/pkg/version"
)

// Server bridges an *app.App to MCP clients over the tools registered in
// registerTools. Read tools are always available; write tools are gated
// behind Capabilities.AllowWrites.
type Server struct {
	mcp          *mcp.Server
	app          *app.App
	logger       *slog.Logger
	capabilities Capabilities
}

var (
	emptyQueryErr error = errorcode.Validation("query parameter is required", nil)
	emptyURIErr   error = errorcode.Validation("uri parameter is required", nil)
)

// New builds a Server over a with the given capabilities and registers
// every tool.
func New(a *app.App, logger *slog.Logger, capabilities Capabilities) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcp:          mcp.NewServer(&mcp.Implementation{Name: "gno", Version: version.Version}, nil),
		app:          a,
		logger:       logger,
		capabilities: capabilities,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Full-text lexical search over every ingested document. Fast, exact-match oriented; use query or ask for meaning-based search.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query",
		Description: "Hybrid lexical + semantic search, fused by reciprocal rank and optionally reranked. The default way to find relevant documents by meaning.",
	}, s.handleQuery)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Runs hybrid search and assembles a grounded answer with citations back to the source documents. Falls back to returning plain results if no generation model is configured.",
	}, s.handleAsk)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "similar",
		Description: "Finds documents whose embeddings resemble a given source document.",
	}, s.handleSimilar)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "links",
		Description: "Lists the outgoing wiki-style and Markdown links found in a document.",
	}, s.handleLinks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "backlinks",
		Description: "Lists the documents that link to a given document.",
	}, s.handleBacklinks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: "Reports per-collection document counts, embedding backlog, and recent ingestion error counts.",
	}, s.handleStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tags",
		Description: "Lists tags and their document counts, optionally scoped to a collection or filtered by prefix.",
	}, s.handleTags)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "graph",
		Description: "Returns the link graph: document nodes plus parsed-link and (optionally) similarity edges.",
	}, s.handleGraph)

	if !s.capabilities.AllowWrites {
		s.logger.Debug("MCP write tools disabled", slog.Bool("allowWrites", false))
		return
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "document_capture",
		Description: "Writes a new document into a registered collection and ingests it immediately. Rejects relative paths that escape the collection root or target a sensitive directory.",
	}, s.handleDocumentCapture)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workspace_add_collection",
		Description: "Registers a new collection to scan and ingest.",
	}, s.handleWorkspaceAddCollection)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_sync",
		Description: "Starts a background job that rescans and re-ingests every configured collection.",
	}, s.handleIndexSync)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "workspace_remove_collection",
		Description: "Removes a registered collection. Its already-ingested documents are not deactivated and stay in the index; reset does not remove them either.",
	}, s.handleWorkspaceRemoveCollection)

	s.logger.Info("MCP write tools registered")
}

// Serve runs the MCP server over the given transport until ctx is
// canceled. Only "stdio" is supported: the tool server is spawned
// per-client by the MCP host, reading and writing JSON-RPC over its
// stdin/stdout.
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown MCP transport %q (supported: stdio)", transport)
	}
}

func toConfigCollection(in workspaceAddCollectionInput) config.Collection {
	col := config.Collection{
		Name:         in.Name,
		Path:         in.Path,
		Pattern:      in.Pattern,
		Include:      in.Include,
		Exclude:      in.Exclude,
		UpdateCmd:    in.UpdateCmd,
		LanguageHint: in.LanguageHint,
	}
	if col.Pattern == "" {
		col.Pattern = "**/*"
	}
	return col
}
