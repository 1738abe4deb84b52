package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/english"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// SyncDocumentFts deletes the FTS row whose rowid equals the document's id
// and re-inserts (filepath, title, body) joined from the document's current
// content. A document with no content or that is inactive has no FTS row.
func (s *Store) SyncDocumentFts(ctx context.Context, collection, relPath string) error {
	q := s.q(ctx)

	var id int64
	var active int
	var filePath, title, mirrorHash string
	err := q.QueryRowContext(ctx,
		`SELECT id, active, rel_path, title, mirror_hash FROM documents WHERE collection = ? AND rel_path = ?`,
		collection, relPath).Scan(&id, &active, &filePath, &title, &mirrorHash)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errorcode.New(errorcode.CodeQueryFailed, "fts sync lookup failed", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM documents_fts WHERE rowid = ?`, id); err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "fts delete failed", err)
	}
	if active == 0 || mirrorHash == "" {
		return nil
	}

	var body string
	if err := q.QueryRowContext(ctx, `SELECT body FROM content_bodies WHERE mirror_hash = ?`, mirrorHash).Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errorcode.New(errorcode.CodeQueryFailed, "fts content lookup failed", err)
	}

	body = s.maybePrestem(body)
	title = s.maybePrestem(title)

	if _, err := q.ExecContext(ctx,
		`INSERT INTO documents_fts (rowid, filepath, title, body) VALUES (?, ?, ?, ?)`,
		id, filePath, title, body); err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "fts insert failed", err)
	}
	return nil
}

// RebuildAllDocumentsFts rebuilds the full FTS projection from scratch; a
// recovery utility for when the FTS table and documents table have drifted.
func (s *Store) RebuildAllDocumentsFts(ctx context.Context) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM documents_fts`); err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "fts clear failed", err)
		}
		rows, err := q.QueryContext(ctx, `SELECT collection, rel_path FROM documents WHERE active = 1`)
		if err != nil {
			return errorcode.New(errorcode.CodeQueryFailed, "fts rebuild scan failed", err)
		}
		var pairs [][2]string
		for rows.Next() {
			var c, r string
			if err := rows.Scan(&c, &r); err != nil {
				rows.Close()
				return errorcode.New(errorcode.CodeQueryFailed, "fts rebuild scan failed", err)
			}
			pairs = append(pairs, [2]string{c, r})
		}
		rows.Close()
		for _, p := range pairs {
			if err := s.SyncDocumentFts(ctx, p[0], p[1]); err != nil {
				return err
			}
		}
		return nil
	})
}

// maybePrestem stems text with an English Snowball stemmer, word by word,
// when the store was opened with a snowball-* tokenizer. See the Store
// Open() documentation: SQLite FTS5 in this pure-Go build has no loadable
// stemmer extension, so stemming happens here before tokens ever reach
// FTS5's built-in unicode61 tokenizer.
func (s *Store) maybePrestem(text string) string {
	if !IsSnowballTokenizer(string(s.tokenizer)) {
		return text
	}
	fields := strings.Fields(text)
	for i, f := range fields {
		env := snowballstem.NewEnv(strings.ToLower(f))
		english.Stem(env)
		fields[i] = env.Current()
	}
	return strings.Join(fields, " ")
}

// escapeFtsQuery splits query on whitespace and wraps each token in double
// quotes (doubling embedded quotes), turning free text into a safe
// token-conjunction MATCH expression.
func escapeFtsQuery(query string) string {
	fields := strings.Fields(query)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		escaped := strings.ReplaceAll(f, `"`, `""`)
		out = append(out, `"`+escaped+`"`)
	}
	return strings.Join(out, " ")
}

// SearchFts runs a BM25-ranked lexical search over documents_fts, joined
// against documents with active = 1, honoring collection and tag filters.
func (s *Store) SearchFts(ctx context.Context, query string, opts FtsSearchOptions) ([]FtsResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" || strings.Count(trimmed, `"`)%2 != 0 {
		return nil, errorcode.InvalidInput("malformed fts query", nil)
	}

	matchExpr := escapeFtsQuery(s.maybePrestem(trimmed))
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var sb strings.Builder
	args := []any{matchExpr}
	sb.WriteString(`SELECT d.id, d.docid, d.uri, d.title, f.rank`)
	if opts.Snippet {
		sb.WriteString(`, snippet(documents_fts, 2, '[', ']', '...', 12)`)
	} else {
		sb.WriteString(`, ''`)
	}
	sb.WriteString(` FROM documents_fts f JOIN documents d ON d.id = f.rowid WHERE documents_fts MATCH ? AND d.active = 1`)

	if opts.Collection != "" {
		sb.WriteString(` AND d.collection = ?`)
		args = append(args, opts.Collection)
	}
	for _, tag := range opts.TagsAll {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM tags t WHERE t.document_id = d.id AND t.tag = ?)`)
		args = append(args, tag)
	}
	if len(opts.TagsAny) > 0 {
		placeholders := make([]string, len(opts.TagsAny))
		for i, tag := range opts.TagsAny {
			placeholders[i] = "?"
			args = append(args, tag)
		}
		sb.WriteString(` AND EXISTS (SELECT 1 FROM tags t WHERE t.document_id = d.id AND t.tag IN (` + joinPlaceholders(placeholders) + `))`)
	}
	sb.WriteString(` ORDER BY f.rank ASC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.q(ctx).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		if isFtsSyntaxError(err) {
			return nil, errorcode.InvalidInput("fts query syntax error", err)
		}
		return nil, errorcode.New(errorcode.CodeQueryFailed, "fts search failed", err)
	}
	defer rows.Close()

	var results []FtsResult
	for rows.Next() {
		var r FtsResult
		if err := rows.Scan(&r.DocumentID, &r.DocID, &r.URI, &r.Title, &r.Score, &r.Snippet); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "fts scan failed", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "fts rows error", err)
	}
	return results, nil
}

func isFtsSyntaxError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "fts5") || strings.Contains(msg, "syntax error") || strings.Contains(msg, "malformed match")
}
