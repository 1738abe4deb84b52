package store

import (
	"context"
	"database/sql"
	"path"
	"strings"

	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/idcodec"
)

// SetDocLinks replaces the outgoing links recorded from one source
// (parsed, user, suggested) for a document, leaving links from other
// sources untouched. An empty-string targetCollection is normalized to
// NULL ("same collection as the source document").
func (s *Store) SetDocLinks(ctx context.Context, documentID int64, links []Link, source string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM links WHERE source_doc_id = ? AND source = ?`, documentID, source); err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "clear links failed", err)
		}
		for _, l := range links {
			var targetCollection any
			if l.TargetCollection != "" {
				targetCollection = l.TargetCollection
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO links (
					source_doc_id, target_ref, target_ref_norm, target_anchor, target_collection,
					link_type, link_text, start_line, start_col, end_line, end_col, source
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				documentID, l.TargetRef, l.TargetRefNorm, l.TargetAnchor, targetCollection,
				l.LinkType, l.LinkText, l.StartLine, l.StartCol, l.EndLine, l.EndCol, source); err != nil {
				return errorcode.New(errorcode.CodeTransactionFailed, "insert link failed", err)
			}
		}
		return nil
	})
}

// GetLinksForDoc returns the outgoing links of a document ordered by span.
func (s *Store) GetLinksForDoc(ctx context.Context, documentID int64) ([]Link, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, source_doc_id, target_ref, target_ref_norm, target_anchor, COALESCE(target_collection, ''),
			link_type, link_text, start_line, start_col, end_line, end_col, source
		FROM links WHERE source_doc_id = ?
		ORDER BY start_line, start_col, end_line, end_col`, documentID)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "links lookup failed", err)
	}
	defer rows.Close()

	var out []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.SourceDocID, &l.TargetRef, &l.TargetRefNorm, &l.TargetAnchor, &l.TargetCollection,
			&l.LinkType, &l.LinkText, &l.StartLine, &l.StartCol, &l.EndLine, &l.EndCol, &l.Source); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "links scan failed", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ResolveTarget is one input to ResolveLinks: a parsed link's target plus
// enough context (its own type and the source document's collection, used
// when TargetCollection is empty) to resolve it.
type ResolveTarget struct {
	LinkType         string
	TargetRefNorm    string
	TargetCollection string
	SourceCollection string
}

// ResolveLinks performs batched best-match resolution of link targets to
// documents. Wiki resolution walks a fixed cascade of match tiers (exact
// title, title+".md", exact rel-path, then path-suffix variants of each),
// picking the first tier with any candidates and breaking ties within a
// tier by smallest document id. Markdown resolution is exact
// (collection, relPath). Returns, per input, either a match or nil.
func (s *Store) ResolveLinks(ctx context.Context, targets []ResolveTarget) ([]*ResolvedTarget, error) {
	out := make([]*ResolvedTarget, len(targets))
	for i, t := range targets {
		collection := t.TargetCollection
		if collection == "" {
			collection = t.SourceCollection
		}
		var resolved *ResolvedTarget
		var err error
		if t.LinkType == "markdown" {
			resolved, err = s.resolveMarkdownTarget(ctx, collection, t.TargetRefNorm)
		} else {
			resolved, err = s.resolveWikiTarget(ctx, collection, t.TargetRefNorm)
		}
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (s *Store) resolveMarkdownTarget(ctx context.Context, collection, relPath string) (*ResolvedTarget, error) {
	return s.queryBestDocument(ctx,
		`SELECT docid, uri, title, id FROM documents
		 WHERE active = 1 AND collection = ? AND rel_path = ?
		 ORDER BY id ASC LIMIT 1`, collection, relPath)
}

// wikiTier is one cascade step of the resolver; each tier's query must
// select (docid, uri, title, id) and be ordered by id ASC so the first row
// is the documented tie-break (smallest document id).
var wikiTierQueries = []string{
	// 1: exact title match (case-insensitive)
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND LOWER(title) = LOWER(?) ORDER BY id ASC LIMIT 1`,
	// 2: title with ".md" appended matches target (target typed without extension)
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND LOWER(title || '.md') = LOWER(?) ORDER BY id ASC LIMIT 1`,
	// 3: exact rel_path match
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND rel_path = ? ORDER BY id ASC LIMIT 1`,
	// 4: rel_path with ".md" appended matches target
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND rel_path || '.md' = ? ORDER BY id ASC LIMIT 1`,
	// 5: rel_path case-insensitive exact match
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND LOWER(rel_path) = LOWER(?) ORDER BY id ASC LIMIT 1`,
	// 6: basename of rel_path (without extension) equals target; resolved in
	// Go by resolveWikiBasenameTier since SQLite has no clean path.Base.
	"",
	// 7: rel_path suffix match: ".../target"
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND rel_path LIKE '%/' || ? ORDER BY id ASC LIMIT 1`,
	// 8: rel_path suffix match: ".../target.md"
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND rel_path LIKE '%/' || ? || '.md' ORDER BY id ASC LIMIT 1`,
	// 9: title suffix match (title ends with target, e.g. nested heading-derived titles)
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND LOWER(title) LIKE '%' || LOWER(?) ORDER BY id ASC LIMIT 1`,
	// 10: rel_path contains target anywhere (last-resort fuzzy tier)
	`SELECT docid, uri, title, id FROM documents WHERE active = 1 AND collection = ? AND LOWER(rel_path) LIKE '%' || LOWER(?) || '%' ORDER BY id ASC LIMIT 1`,
}

func (s *Store) resolveWikiTarget(ctx context.Context, collection, norm string) (*ResolvedTarget, error) {
	for _, q := range wikiTierQueries {
		if q == "" {
			// Tier 6 relies on a basename-only filter expressed awkwardly in
			// pure SQL; resolve it in Go instead, in its place in the cascade.
			r, err := s.resolveWikiBasenameTier(ctx, collection, norm)
			if err != nil {
				return nil, err
			}
			if r != nil {
				return r, nil
			}
			continue
		}
		r, err := s.queryBestDocument(ctx, q, collection, norm)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, nil
}

func (s *Store) resolveWikiBasenameTier(ctx context.Context, collection, norm string) (*ResolvedTarget, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT docid, uri, title, rel_path, id FROM documents WHERE active = 1 AND collection = ? ORDER BY id ASC`, collection)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "wiki resolve scan failed", err)
	}
	defer rows.Close()

	var best *ResolvedTarget
	for rows.Next() {
		var docid, uri, title, relPath string
		var id int64
		if err := rows.Scan(&docid, &uri, &title, &relPath, &id); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "wiki resolve row failed", err)
		}
		base := path.Base(relPath)
		base = idcodec.StripWikiMdExt(base)
		if strings.EqualFold(base, norm) {
			best = &ResolvedTarget{DocID: docid, URI: uri, Title: title}
			break
		}
	}
	return best, rows.Err()
}

func (s *Store) queryBestDocument(ctx context.Context, query string, args ...any) (*ResolvedTarget, error) {
	var r ResolvedTarget
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, query, args...).Scan(&r.DocID, &r.URI, &r.Title, &id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "resolve query failed", err)
	}
	return &r, nil
}

// GetBacklinksForDoc finds active source documents that link to
// documentID, across both wiki and markdown grammars, sorted by source uri
// then span coordinates.
func (s *Store) GetBacklinksForDoc(ctx context.Context, documentID int64, collection string) ([]Backlink, error) {
	target, err := s.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	variants := wikiTargetVariants(target.Title, target.RelPath)

	query := `
		SELECT l.source_doc_id, d.uri, l.link_type, l.link_text, l.target_anchor, l.start_line, l.start_col, l.end_line, l.end_col
		FROM links l JOIN documents d ON d.id = l.source_doc_id
		WHERE d.active = 1
		AND (
			(l.link_type = 'markdown' AND l.target_ref_norm = ? AND COALESCE(l.target_collection, d.collection) = ?)
			OR (l.link_type = 'wiki' AND LOWER(l.target_ref_norm) IN (` + placeholderList(len(variants)) + `) AND COALESCE(l.target_collection, d.collection) = ?)
		)`
	args := []any{target.RelPath, target.Collection}
	for _, v := range variants {
		args = append(args, strings.ToLower(v))
	}
	args = append(args, target.Collection)
	if collection != "" {
		query += ` AND d.collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY d.uri, l.start_line, l.start_col, l.end_line, l.end_col`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "backlinks query failed", err)
	}
	defer rows.Close()

	var out []Backlink
	for rows.Next() {
		var b Backlink
		if err := rows.Scan(&b.SourceDocID, &b.SourceURI, &b.LinkType, &b.LinkText, &b.TargetAnchor,
			&b.StartLine, &b.StartCol, &b.EndLine, &b.EndCol); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "backlinks scan failed", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// wikiTargetVariants lists the normalized forms of title/relPath that a
// wiki link could plausibly use to reference this document: with and
// without ".md", the bare basename, and the path-suffix form.
func wikiTargetVariants(title, relPath string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	add(title)
	add(title + ".md")
	add(relPath)
	add(idcodec.StripWikiMdExt(relPath))
	base := path.Base(relPath)
	add(base)
	add(idcodec.StripWikiMdExt(base))
	return out
}

func placeholderList(n int) string {
	if n == 0 {
		return "NULL"
	}
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ",")
}
