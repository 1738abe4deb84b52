package mcptools

import (
	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/search"
	"github.com/gnosis-index/gnosis/internal/store"
)

// SearchInput is the input schema for the search tool: lexical-only
// full-text search.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the full-text query to run"`
	Collection string   `json:"collection,omitempty" jsonschema:"restrict results to one collection"`
	TagsAll    []string `json:"tagsAll,omitempty" jsonschema:"require every one of these tags"`
	TagsAny    []string `json:"tagsAny,omitempty" jsonschema:"require at least one of these tags"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []search.Result `json:"results"`
}

// QueryInput is the input schema for the query tool: hybrid lexical +
// semantic search with optional rerank.
type QueryInput struct {
	Query      string   `json:"query" jsonschema:"the query to run"`
	Collection string   `json:"collection,omitempty" jsonschema:"restrict results to one collection"`
	TagsAll    []string `json:"tagsAll,omitempty" jsonschema:"require every one of these tags"`
	TagsAny    []string `json:"tagsAny,omitempty" jsonschema:"require at least one of these tags"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	NoExpand   bool     `json:"noExpand,omitempty" jsonschema:"skip query paraphrase expansion"`
	NoRerank   bool     `json:"noRerank,omitempty" jsonschema:"skip the cross-encoder rerank pass"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Results []search.Result `json:"results"`
	Meta    search.AskMeta  `json:"meta"`
}

// AskInput is the input schema for the ask tool: a grounded, cited answer.
type AskInput struct {
	Query      string   `json:"query" jsonschema:"the question to answer"`
	Collection string   `json:"collection,omitempty" jsonschema:"restrict grounding documents to one collection"`
	TagsAll    []string `json:"tagsAll,omitempty" jsonschema:"require every one of these tags"`
	TagsAny    []string `json:"tagsAny,omitempty" jsonschema:"require at least one of these tags"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of grounding documents considered"`
	MaxTokens  int      `json:"maxTokens,omitempty" jsonschema:"maximum answer length in tokens, default 512"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string            `json:"answer"`
	Citations []search.Citation `json:"citations"`
	Results   []search.Result   `json:"results"`
	Meta      search.AskMeta    `json:"meta"`
}

// SimilarInput is the input schema for the similar tool.
type SimilarInput struct {
	URI             string  `json:"uri" jsonschema:"the source document URI (gno://collection/path)"`
	Limit           int     `json:"limit,omitempty" jsonschema:"maximum number of neighbors, default 10"`
	Threshold       float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity, default 0.6"`
	CrossCollection bool    `json:"crossCollection,omitempty" jsonschema:"allow matches outside the source document's collection"`
}

// SimilarOutput is the output schema for the similar tool.
type SimilarOutput struct {
	Results []search.Result `json:"results"`
}

// LinksInput is the input schema for the links tool.
type LinksInput struct {
	URI string `json:"uri" jsonschema:"the document URI to list outgoing links for"`
}

// LinksOutput is the output schema for the links tool.
type LinksOutput struct {
	Links []store.Link `json:"links"`
}

// BacklinksInput is the input schema for the backlinks tool.
type BacklinksInput struct {
	URI        string `json:"uri" jsonschema:"the document URI to find backlinks to"`
	Collection string `json:"collection,omitempty" jsonschema:"restrict backlinks to one originating collection"`
}

// BacklinksOutput is the output schema for the backlinks tool.
type BacklinksOutput struct {
	Backlinks []store.Backlink `json:"backlinks"`
}

// StatusInput is the input schema for the status tool (no parameters).
type StatusInput struct{}

// TagsInput is the input schema for the tags tool.
type TagsInput struct {
	Collection string `json:"collection,omitempty" jsonschema:"restrict tags to one collection"`
	Prefix     string `json:"prefix,omitempty" jsonschema:"only tags starting with this prefix"`
}

// TagsOutput is the output schema for the tags tool.
type TagsOutput struct {
	Tags []store.TagCount `json:"tags"`
}

// GraphInput is the input schema for the graph tool.
type GraphInput struct {
	Collection     string  `json:"collection,omitempty" jsonschema:"restrict the graph to one collection"`
	Limit          int     `json:"limit,omitempty" jsonschema:"maximum number of nodes"`
	IncludeSimilar bool    `json:"includeSimilar,omitempty" jsonschema:"include similarity edges alongside parsed links"`
	Threshold      float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity for similarity edges"`
	SimilarTopK    int     `json:"similarTopK,omitempty" jsonschema:"neighbors considered per node for similarity edges"`
}

// documentCaptureInput is the input schema for the document_capture tool.
type documentCaptureInput struct {
	Collection string `json:"collection" jsonschema:"the registered collection to write into"`
	RelPath    string `json:"relPath,omitempty" jsonschema:"path relative to the collection root; derived from title if omitted"`
	Title      string `json:"title,omitempty" jsonschema:"document title, prepended as a heading if the body has none"`
	Body       string `json:"body" jsonschema:"the document's Markdown or text content"`
}

// documentCaptureOutput is the output schema for the document_capture tool.
type documentCaptureOutput struct {
	Document *store.Document `json:"document"`
}

// workspaceAddCollectionInput is the input schema for the
// workspace_add_collection tool.
type workspaceAddCollectionInput struct {
	Name         string   `json:"name" jsonschema:"unique collection name"`
	Path         string   `json:"path" jsonschema:"absolute path to the collection root on disk"`
	Pattern      string   `json:"pattern,omitempty" jsonschema:"glob pattern of files to ingest, default **/*"`
	Include      []string `json:"include,omitempty" jsonschema:"additional glob patterns to include"`
	Exclude      []string `json:"exclude,omitempty" jsonschema:"glob patterns to exclude"`
	UpdateCmd    string   `json:"updateCmd,omitempty" jsonschema:"shell command run before scanning, e.g. a git pull"`
	LanguageHint string   `json:"languageHint,omitempty" jsonschema:"BCP-47 language hint for tokenization"`
}

// workspaceAddCollectionOutput is the output schema for the
// workspace_add_collection tool.
type workspaceAddCollectionOutput struct {
	Collection config.Collection `json:"collection"`
}

// indexSyncInput is the input schema for the index_sync tool.
type indexSyncInput struct {
	GitPull bool `json:"gitPull,omitempty" jsonschema:"run each collection's updateCmd before scanning"`
}

// indexSyncOutput is the output schema for the index_sync tool.
type indexSyncOutput struct {
	JobID string `json:"jobId"`
}

// workspaceRemoveCollectionInput is the input schema for the
// workspace_remove_collection tool.
type workspaceRemoveCollectionInput struct {
	Name string `json:"name" jsonschema:"the collection name to remove"`
}

// workspaceRemoveCollectionOutput is the output schema for the
// workspace_remove_collection tool.
type workspaceRemoveCollectionOutput struct {
	Name string `json:"name"`
}
