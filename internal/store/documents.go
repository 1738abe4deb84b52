package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/idcodec"
)

const maxSQLiteParams = 900 // stay well under SQLite's default 999-variable limit

// UpsertDocument inserts or updates a document by (collection, relPath),
// sets active = 1, derives docid and uri, and returns the surrogate id and
// docid.
func (s *Store) UpsertDocument(ctx context.Context, in UpsertDocumentInput) (int64, string, error) {
	docid := idcodec.DocID(in.SourceHash)
	uri := idcodec.BuildURI(in.Collection, in.RelPath)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	q := s.q(ctx)
	var id int64
	row := q.QueryRowContext(ctx, `SELECT id FROM documents WHERE collection = ? AND rel_path = ?`, in.Collection, in.RelPath)
	err := row.Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, execErr := q.ExecContext(ctx, `
			INSERT INTO documents (
				collection, rel_path, source_hash, source_mime, source_ext, source_size, source_mtime,
				docid, uri, title, mirror_hash, converter_id, converter_version, language_hint,
				active, ingest_version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
			in.Collection, in.RelPath, in.SourceHash, in.SourceMime, in.SourceExt, in.SourceSize,
			in.SourceMtime.UTC().Format(time.RFC3339Nano), docid, uri, in.Title, in.MirrorHash,
			in.ConverterID, in.ConverterVersion, in.LanguageHint, in.IngestVersion, now, now)
		if execErr != nil {
			return 0, "", errorcode.New(errorcode.CodeTransactionFailed, "insert document failed", execErr)
		}
		id, execErr = res.LastInsertId()
		if execErr != nil {
			return 0, "", errorcode.New(errorcode.CodeTransactionFailed, "cannot read inserted id", execErr)
		}
	case err != nil:
		return 0, "", errorcode.New(errorcode.CodeQueryFailed, "lookup document failed", err)
	default:
		_, execErr := q.ExecContext(ctx, `
			UPDATE documents SET
				source_hash = ?, source_mime = ?, source_ext = ?, source_size = ?, source_mtime = ?,
				docid = ?, uri = ?, title = ?, mirror_hash = ?, converter_id = ?, converter_version = ?,
				language_hint = ?, active = 1, ingest_version = ?, updated_at = ?,
				last_error_code = '', last_error_message = '', last_error_at = ''
			WHERE id = ?`,
			in.SourceHash, in.SourceMime, in.SourceExt, in.SourceSize, in.SourceMtime.UTC().Format(time.RFC3339Nano),
			docid, uri, in.Title, in.MirrorHash, in.ConverterID, in.ConverterVersion,
			in.LanguageHint, in.IngestVersion, now, id)
		if execErr != nil {
			return 0, "", errorcode.New(errorcode.CodeTransactionFailed, "update document failed", execErr)
		}
	}

	return id, docid, nil
}

// MarkInactive flips active = 0 for a document whose source file has
// disappeared from disk. Documents are never hard-deleted.
func (s *Store) MarkInactive(ctx context.Context, collection, relPath string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE documents SET active = 0, updated_at = ? WHERE collection = ? AND rel_path = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), collection, relPath)
	if err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "mark inactive failed", err)
	}
	return nil
}

// SetDocumentError records a per-file ingestion error on the document row
// without aborting the surrounding scan.
func (s *Store) SetDocumentError(ctx context.Context, documentID int64, code, message string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE documents SET last_error_code = ?, last_error_message = ?, last_error_at = ? WHERE id = ?`,
		code, message, time.Now().UTC().Format(time.RFC3339Nano), documentID)
	if err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "record document error failed", err)
	}
	return nil
}

// RecordIngestError appends a diagnostic row for one file's ingestion
// failure without aborting the surrounding scan. detailsJSON may be empty.
func (s *Store) RecordIngestError(ctx context.Context, collection, relPath, code, message, detailsJSON string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO ingest_errors (collection, rel_path, occurred_at, code, message, details_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		collection, relPath, time.Now().UTC().Format(time.RFC3339Nano), code, message, detailsJSON)
	if err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "record ingest error failed", err)
	}
	return nil
}

// ListActiveRelPaths returns the rel_path of every active document under
// collection, for the post-scan markInactive sweep to diff against what was
// actually seen on disk this pass.
func (s *Store) ListActiveRelPaths(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT rel_path FROM documents WHERE collection = ? AND active = 1`, collection)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "list active documents failed", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var relPath string
		if err := rows.Scan(&relPath); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "active document scan failed", err)
		}
		out = append(out, relPath)
	}
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "active document rows error", err)
	}
	return out, nil
}

// GetDocumentByID loads one document row.
func (s *Store) GetDocumentByID(ctx context.Context, id int64) (*Document, error) {
	return s.scanOneDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
}

// GetDocumentByURI loads a document by its (collection, relPath)-derived URI.
func (s *Store) GetDocumentByURI(ctx context.Context, uri string) (*Document, error) {
	collection, relPath, ok := idcodec.ParseURI(uri)
	if !ok {
		return nil, errorcode.Validation("malformed uri: "+uri, nil)
	}
	return s.scanOneDocument(ctx, `SELECT `+documentColumns+` FROM documents WHERE collection = ? AND rel_path = ?`, collection, relPath)
}

// GetDocumentsByMirrorHashes loads every active document whose mirror_hash
// is in hashes, keyed by mirror_hash, for resolving vector search hits
// (which carry mirrorHash/seq, not a document id) back to documents.
func (s *Store) GetDocumentsByMirrorHashes(ctx context.Context, hashes []string) (map[string]*Document, error) {
	out := make(map[string]*Document, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	seen := make(map[string]struct{}, len(hashes))
	placeholders := make([]string, 0, len(hashes))
	args := make([]any, 0, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		placeholders = append(placeholders, "?")
		args = append(args, h)
	}

	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE active = 1 AND mirror_hash IN (`+joinPlaceholders(placeholders)+`)`,
		args...)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "document lookup by mirror hash failed", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "document scan failed", err)
		}
		out[d.MirrorHash] = d
	}
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "document rows error", err)
	}
	return out, nil
}

// ListDocuments returns active documents, optionally restricted to one
// collection, newest-updated first, capped at limit rows.
func (s *Store) ListDocuments(ctx context.Context, collection string, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE active = 1`
	args := []any{}
	if collection != "" {
		query += ` AND collection = ?`
		args = append(args, collection)
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "list documents failed", err)
	}
	defer rows.Close()

	var out []*Document
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "document scan failed", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "document rows error", err)
	}
	return out, nil
}

// DeactivateDocument flips active = 0 for a document by its surrogate id,
// the manual counterpart to MarkInactive's scan-driven sweep.
func (s *Store) DeactivateDocument(ctx context.Context, id int64) error {
	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE documents SET active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "deactivate document failed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "deactivate document rows affected failed", err)
	}
	if n == 0 {
		return errorcode.NotFound("document not found")
	}
	return nil
}

const documentColumns = `id, collection, rel_path, source_hash, source_mime, source_ext, source_size, source_mtime,
	docid, uri, title, mirror_hash, converter_id, converter_version, language_hint, active, ingest_version,
	last_error_code, last_error_message, last_error_at, created_at, updated_at`

func (s *Store) scanOneDocument(ctx context.Context, query string, args ...any) (*Document, error) {
	row := s.q(ctx).QueryRowContext(ctx, query, args...)
	d, err := scanDocumentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errorcode.NotFound("document not found")
	}
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "document lookup failed", err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocumentRow(row scanner) (*Document, error) {
	var d Document
	var active int
	var mtime, lastErrAt, createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.Collection, &d.RelPath, &d.SourceHash, &d.SourceMime, &d.SourceExt, &d.SourceSize,
		&mtime, &d.DocID, &d.URI, &d.Title, &d.MirrorHash, &d.ConverterID, &d.ConverterVersion, &d.LanguageHint,
		&active, &d.IngestVersion, &d.LastErrorCode, &d.LastErrorMessage, &lastErrAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.Active = active != 0
	d.SourceMtime, _ = time.Parse(time.RFC3339Nano, mtime)
	d.LastErrorAt, _ = time.Parse(time.RFC3339Nano, lastErrAt)
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &d, nil
}

// UpsertContent is idempotent: it inserts the canonical body once per
// mirrorHash and is a no-op on subsequent calls with the same hash.
func (s *Store) UpsertContent(ctx context.Context, mirrorHash, body string) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO content_bodies (mirror_hash, body) VALUES (?, ?)
		 ON CONFLICT(mirror_hash) DO NOTHING`, mirrorHash, body)
	if err != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "upsert content failed", err)
	}
	return nil
}

// GetContent loads the canonical body for mirrorHash.
func (s *Store) GetContent(ctx context.Context, mirrorHash string) (string, error) {
	var body string
	err := s.q(ctx).QueryRowContext(ctx, `SELECT body FROM content_bodies WHERE mirror_hash = ?`, mirrorHash).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errorcode.NotFound("content body not found")
	}
	if err != nil {
		return "", errorcode.New(errorcode.CodeQueryFailed, "content lookup failed", err)
	}
	return body, nil
}

// UpsertChunks replaces the entire chunk set for mirrorHash within one
// transaction: deletes the old rows then inserts the new ones so that
// chunks form a contiguous 0..N-1 seq range with no gaps.
func (s *Store) UpsertChunks(ctx context.Context, mirrorHash string, chunks []Chunk) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE mirror_hash = ?`, mirrorHash); err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "clear chunks failed", err)
		}
		for _, c := range chunks {
			if _, err := q.ExecContext(ctx,
				`INSERT INTO chunks (mirror_hash, seq, pos, text, start_line, end_line, language, token_count)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				mirrorHash, c.Seq, c.Pos, c.Text, c.StartLine, c.EndLine, c.Language, c.TokenCount); err != nil {
				return errorcode.New(errorcode.CodeTransactionFailed, "insert chunk failed", err)
			}
		}
		return nil
	})
}

// GetChunks returns the ordered chunk set for one mirrorHash.
func (s *Store) GetChunks(ctx context.Context, mirrorHash string) ([]Chunk, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT mirror_hash, seq, pos, text, start_line, end_line, language, token_count
		 FROM chunks WHERE mirror_hash = ? ORDER BY seq`, mirrorHash)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "chunk lookup failed", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetChunksBatch loads chunks for many mirrorHashes at once, splitting the
// query into batches to respect SQLite's parameter-count limit.
func (s *Store) GetChunksBatch(ctx context.Context, hashes []string) (map[string][]Chunk, error) {
	result := make(map[string][]Chunk, len(hashes))
	if len(hashes) == 0 {
		return result, nil
	}

	for start := 0; start < len(hashes); start += maxSQLiteParams {
		end := start + maxSQLiteParams
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]
		placeholders := make([]string, len(batch))
		args := make([]any, len(batch))
		for i, h := range batch {
			placeholders[i] = "?"
			args[i] = h
		}
		query := `SELECT mirror_hash, seq, pos, text, start_line, end_line, language, token_count
			FROM chunks WHERE mirror_hash IN (` + joinPlaceholders(placeholders) + `) ORDER BY mirror_hash, seq`
		rows, err := s.q(ctx).QueryContext(ctx, query, args...)
		if err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "batch chunk lookup failed", err)
		}
		chunks, err := scanChunks(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			result[c.MirrorHash] = append(result[c.MirrorHash], c)
		}
	}
	return result, nil
}

// GetChunksMissingEmbedding returns up to limit chunks of active documents
// that have no content_vectors row for model yet, for the embed job to
// process in batches.
func (s *Store) GetChunksMissingEmbedding(ctx context.Context, model string, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT c.mirror_hash, c.seq, c.pos, c.text, c.start_line, c.end_line, c.language, c.token_count
		FROM chunks c
		JOIN documents d ON d.mirror_hash = c.mirror_hash
		WHERE d.active = 1
		AND NOT EXISTS (
			SELECT 1 FROM content_vectors v WHERE v.mirror_hash = c.mirror_hash AND v.seq = c.seq AND v.model = ?
		)
		ORDER BY c.mirror_hash, c.seq
		LIMIT ?`, model, limit)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "embedding backlog chunk lookup failed", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.MirrorHash, &c.Seq, &c.Pos, &c.Text, &c.StartLine, &c.EndLine, &c.Language, &c.TokenCount); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "chunk scan failed", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "chunk rows error", err)
	}
	return out, nil
}

func joinPlaceholders(ph []string) string {
	out := ""
	for i, p := range ph {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
