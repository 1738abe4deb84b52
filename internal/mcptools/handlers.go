package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gnosis-index/gnosis/internal/app"
	"github.com/gnosis-index/gnosis/internal/jobtracker"
	"github.com/gnosis-index/gnosis/internal/search"
	"github.com/gnosis-index/gnosis/internal/store"
)

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if in.Query == "" {
		return nil, SearchOutput{}, mapError(emptyQueryErr)
	}
	results, err := s.app.Search.Lexical(ctx, in.Query, search.Options{
		Collection: in.Collection,
		TagsAll:    in.TagsAll,
		TagsAny:    in.TagsAny,
		Limit:      in.Limit,
		Snippet:    true,
	})
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}
	return nil, SearchOutput{Results: results}, nil
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	if in.Query == "" {
		return nil, QueryOutput{}, mapError(emptyQueryErr)
	}
	results, meta, err := s.app.Search.Hybrid(ctx, in.Query, search.Options{
		Collection: in.Collection,
		TagsAll:    in.TagsAll,
		TagsAny:    in.TagsAny,
		Limit:      in.Limit,
		Snippet:    true,
		NoExpand:   in.NoExpand,
		NoRerank:   in.NoRerank,
	})
	if err != nil {
		return nil, QueryOutput{}, mapError(err)
	}
	return nil, QueryOutput{Results: results, Meta: meta}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
	if in.Query == "" {
		return nil, AskOutput{}, mapError(emptyQueryErr)
	}
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = search.DefaultAskMaxTokens
	}
	result, err := s.app.Search.Ask(ctx, in.Query, search.Options{
		Collection: in.Collection,
		TagsAll:    in.TagsAll,
		TagsAny:    in.TagsAny,
		Limit:      in.Limit,
		Snippet:    true,
	}, maxTokens)
	if err != nil {
		return nil, AskOutput{}, mapError(err)
	}
	return nil, AskOutput{
		Answer:    result.Answer,
		Citations: result.Citations,
		Results:   result.Results,
		Meta:      result.Meta,
	}, nil
}

func (s *Server) handleSimilar(ctx context.Context, _ *mcp.CallToolRequest, in SimilarInput) (*mcp.CallToolResult, SimilarOutput, error) {
	if in.URI == "" {
		return nil, SimilarOutput{}, mapError(emptyURIErr)
	}
	opts := search.SimilarOptions{
		Limit:           in.Limit,
		Threshold:       in.Threshold,
		CrossCollection: in.CrossCollection,
	}
	if opts.Limit <= 0 {
		opts.Limit = search.DefaultSimilarLimit
	}
	if opts.Threshold <= 0 {
		opts.Threshold = search.DefaultSimilarThreshold
	}
	results, err := s.app.Search.Similar(ctx, in.URI, opts)
	if err != nil {
		return nil, SimilarOutput{}, mapError(err)
	}
	return nil, SimilarOutput{Results: results}, nil
}

func (s *Server) docByURI(ctx context.Context, uri string) (*store.Document, error) {
	if uri == "" {
		return nil, emptyURIErr
	}
	return s.app.Store.GetDocumentByURI(ctx, uri)
}

func (s *Server) handleLinks(ctx context.Context, _ *mcp.CallToolRequest, in LinksInput) (*mcp.CallToolResult, LinksOutput, error) {
	doc, err := s.docByURI(ctx, in.URI)
	if err != nil {
		return nil, LinksOutput{}, mapError(err)
	}
	links, err := s.app.Store.GetLinksForDoc(ctx, doc.ID)
	if err != nil {
		return nil, LinksOutput{}, mapError(err)
	}
	return nil, LinksOutput{Links: links}, nil
}

func (s *Server) handleBacklinks(ctx context.Context, _ *mcp.CallToolRequest, in BacklinksInput) (*mcp.CallToolResult, BacklinksOutput, error) {
	doc, err := s.docByURI(ctx, in.URI)
	if err != nil {
		return nil, BacklinksOutput{}, mapError(err)
	}
	backlinks, err := s.app.Store.GetBacklinksForDoc(ctx, doc.ID, in.Collection)
	if err != nil {
		return nil, BacklinksOutput{}, mapError(err)
	}
	return nil, BacklinksOutput{Backlinks: backlinks}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, store.Status, error) {
	status, err := s.app.Store.GetStatus(ctx, s.app.Embed.ModelName())
	if err != nil {
		return nil, store.Status{}, mapError(err)
	}
	return nil, *status, nil
}

func (s *Server) handleTags(ctx context.Context, _ *mcp.CallToolRequest, in TagsInput) (*mcp.CallToolResult, TagsOutput, error) {
	tags, err := s.app.Store.GetTagCounts(ctx, in.Collection, in.Prefix)
	if err != nil {
		return nil, TagsOutput{}, mapError(err)
	}
	return nil, TagsOutput{Tags: tags}, nil
}

func (s *Server) handleGraph(ctx context.Context, _ *mcp.CallToolRequest, in GraphInput) (*mcp.CallToolResult, store.Graph, error) {
	graph, err := s.app.Store.GetGraph(ctx, store.GraphOptions{
		Collection:     in.Collection,
		LimitNodes:     in.Limit,
		IncludeSimilar: in.IncludeSimilar,
		Threshold:      in.Threshold,
		SimilarTopK:    in.SimilarTopK,
		Model:          s.app.Embed.ModelName(),
	}, s.app.Vector)
	if err != nil {
		return nil, store.Graph{}, mapError(err)
	}
	return nil, *graph, nil
}

// --- write tools, registered only when Capabilities.AllowWrites is set ---

func (s *Server) handleDocumentCapture(ctx context.Context, _ *mcp.CallToolRequest, in documentCaptureInput) (*mcp.CallToolResult, documentCaptureOutput, error) {
	doc, err := s.app.CaptureDocument(ctx, app.CaptureRequest{
		Collection: in.Collection,
		RelPath:    in.RelPath,
		Title:      in.Title,
		Body:       in.Body,
	})
	if err != nil {
		return nil, documentCaptureOutput{}, mapError(err)
	}
	return nil, documentCaptureOutput{Document: doc}, nil
}

func (s *Server) handleWorkspaceAddCollection(ctx context.Context, _ *mcp.CallToolRequest, in workspaceAddCollectionInput) (*mcp.CallToolResult, workspaceAddCollectionOutput, error) {
	col := toConfigCollection(in)
	if err := s.app.AddCollection(ctx, col); err != nil {
		return nil, workspaceAddCollectionOutput{}, mapError(err)
	}
	return nil, workspaceAddCollectionOutput{Collection: col}, nil
}

func (s *Server) handleIndexSync(ctx context.Context, _ *mcp.CallToolRequest, in indexSyncInput) (*mcp.CallToolResult, indexSyncOutput, error) {
	id, err := s.app.Jobs.StartJob(jobtracker.JobSync, func(ctx context.Context, _ *jobtracker.ProgressReporter) (any, error) {
		return s.app.SyncAll(ctx, in.GitPull)
	})
	if err != nil {
		return nil, indexSyncOutput{}, mapError(err)
	}
	return nil, indexSyncOutput{JobID: id}, nil
}

func (s *Server) handleWorkspaceRemoveCollection(ctx context.Context, _ *mcp.CallToolRequest, in workspaceRemoveCollectionInput) (*mcp.CallToolResult, workspaceRemoveCollectionOutput, error) {
	if err := s.app.RemoveCollection(ctx, in.Name); err != nil {
		return nil, workspaceRemoveCollectionOutput{}, mapError(err)
	}
	return nil, workspaceRemoveCollectionOutput{Name: in.Name}, nil
}
