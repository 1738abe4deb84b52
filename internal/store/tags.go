package store

import (
	"context"
	"strings"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// SetDocTags replaces the tag set for one (documentId, source) pair,
// leaving tags from the other source (frontmatter vs user) untouched.
func (s *Store) SetDocTags(ctx context.Context, documentID int64, tags []string, source string) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM tags WHERE document_id = ? AND source = ?`, documentID, source); err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "clear tags failed", err)
		}
		seen := make(map[string]bool, len(tags))
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			if _, err := q.ExecContext(ctx,
				`INSERT INTO tags (document_id, tag, source) VALUES (?, ?, ?)`, documentID, t, source); err != nil {
				return errorcode.New(errorcode.CodeTransactionFailed, "insert tag failed", err)
			}
		}
		return nil
	})
}

// GetTagCounts returns (tag, count) pairs ordered by count desc then tag
// asc, restricted to active documents, with optional collection and
// hierarchical-prefix filtering ("prefix" and "prefix/..." both match).
func (s *Store) GetTagCounts(ctx context.Context, collection, prefix string) ([]TagCount, error) {
	query := `SELECT t.tag, COUNT(DISTINCT t.document_id) AS cnt
		FROM tags t JOIN documents d ON d.id = t.document_id
		WHERE d.active = 1`
	var args []any
	if collection != "" {
		query += ` AND d.collection = ?`
		args = append(args, collection)
	}
	if prefix != "" {
		query += ` AND (t.tag = ? OR t.tag LIKE ?)`
		args = append(args, prefix, prefix+"/%")
	}
	query += ` GROUP BY t.tag ORDER BY cnt DESC, t.tag ASC`

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "tag counts failed", err)
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "tag counts scan failed", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}
