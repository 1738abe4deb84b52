// Package store is the embedded relational engine behind gnosis: schema
// migrations, entity tables, transactions, the FTS projection, the tag and
// link indexes, the resolver, and the graph projector.
package store

import "time"

// Collection is a user-named root folder registered with the engine.
type Collection struct {
	Name         string
	Path         string
	Pattern      string
	Include      []string
	Exclude      []string
	UpdateCmd    string
	LanguageHint string
	SyncedAt     time.Time
}

// Context is scoped free-text metadata attached to a global, collection, or
// URI-prefix scope.
type Context struct {
	ID        int64
	ScopeType string // global | collection | prefix
	ScopeKey  string
	Text      string
}

// Document is one persisted record of a source file under one collection.
type Document struct {
	ID               int64
	Collection       string
	RelPath          string
	SourceHash       string
	SourceMime       string
	SourceExt        string
	SourceSize       int64
	SourceMtime      time.Time
	DocID            string
	URI              string
	Title            string
	MirrorHash       string
	ConverterID      string
	ConverterVersion string
	LanguageHint     string
	Active           bool
	IngestVersion    int64
	LastErrorCode    string
	LastErrorMessage string
	LastErrorAt      time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UpsertDocumentInput carries the fields an ingestion pass derives for one
// file before the document row is written.
type UpsertDocumentInput struct {
	Collection       string
	RelPath          string
	SourceHash       string
	SourceMime       string
	SourceExt        string
	SourceSize       int64
	SourceMtime      time.Time
	Title            string
	MirrorHash       string
	ConverterID      string
	ConverterVersion string
	LanguageHint     string
	IngestVersion    int64
}

// Chunk is a contiguous slice of a canonical body, keyed by (mirrorHash, seq).
type Chunk struct {
	MirrorHash string
	Seq        int
	Pos        int
	Text       string
	StartLine  int
	EndLine    int
	Language   string
	TokenCount int
}

// Tag is one (documentId, tag, source) membership row.
type Tag struct {
	DocumentID int64
	Tag        string
	Source     string // frontmatter | user
}

// TagCount is one row of an aggregate tag listing.
type TagCount struct {
	Tag   string
	Count int
}

// Link is one outgoing reference parsed out of a document.
type Link struct {
	ID               int64
	SourceDocID      int64
	TargetRef        string
	TargetRefNorm    string
	TargetAnchor     string
	TargetCollection string
	LinkType         string // wiki | markdown
	LinkText         string
	StartLine        int
	StartCol         int
	EndLine          int
	EndCol           int
	Source           string // parsed | user | suggested
}

// ResolvedTarget is the result of resolving a link target to a document.
type ResolvedTarget struct {
	DocID string
	URI   string
	Title string
}

// Backlink is one resolved incoming reference to a document.
type Backlink struct {
	SourceDocID int64
	SourceURI   string
	LinkType    string
	LinkText    string
	TargetAnchor string
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

// IngestError is one append-only diagnostic row.
type IngestError struct {
	ID          int64
	Collection  string
	RelPath     string
	OccurredAt  time.Time
	Code        string
	Message     string
	DetailsJSON string
}

// GraphNode is one document projected into the link graph.
type GraphNode struct {
	DocID      string
	URI        string
	Title      string
	Collection string
	Degree     int
}

// GraphEdge is one collapsed edge between two graph nodes.
type GraphEdge struct {
	Source string // docid
	Target string // docid
	Type   string // wiki | markdown | similar
	Weight float64
}

// GraphMeta reports totals, truncation, and capability flags for a graph
// projection.
type GraphMeta struct {
	TotalNodes       int
	TotalEdges       int
	NodesTruncated   bool
	SimilarAvailable bool
	Warnings         []string
}

// Graph is the bounded projection returned by GetGraph.
type Graph struct {
	Nodes []GraphNode
	Links []GraphEdge
	Meta  GraphMeta
}

// GraphOptions configures GetGraph.
type GraphOptions struct {
	Collection     string
	LimitNodes     int
	LinkedOnly     *bool // default true when nil
	IncludeSimilar bool
	Threshold      float64
	SimilarTopK    int
	Model          string
}

// FtsSearchOptions configures SearchFts.
type FtsSearchOptions struct {
	Collection string
	TagsAll    []string
	TagsAny    []string
	Snippet    bool
	Limit      int
}

// FtsResult is one lexical search hit.
type FtsResult struct {
	DocumentID int64
	DocID      string
	URI        string
	Title      string
	Score      float64 // BM25: smaller is better
	Snippet    string
}

// CollectionStatus reports per-collection counts for the status endpoint.
type CollectionStatus struct {
	Collection    string
	DocumentCount int64
	ChunkCount    int64
	VectorCount   int64
}

// Status is the aggregate health/backlog report for the whole store.
type Status struct {
	Collections     []CollectionStatus
	EmbeddingBacklog int64
	RecentErrorCount int64
	Healthy          bool
}

// CleanupResult reports what CleanupOrphans removed.
type CleanupResult struct {
	ContentRemoved int64
	ChunksRemoved  int64
	VectorsRemoved int64
	FtsRemoved     int64
}
