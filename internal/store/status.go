package store

import (
	"context"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// recentErrorWindow bounds how many of the most recent ingest_errors rows
// count toward Status.RecentErrorCount.
const recentErrorWindow = 200

// GetStatus reports per-collection document/chunk/vector counts, the global
// embedding backlog for activeModel, a recent-error count, and a health bit.
func (s *Store) GetStatus(ctx context.Context, activeModel string) (*Status, error) {
	q := s.q(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT d.collection,
			COUNT(DISTINCT d.id) AS doc_count,
			COUNT(DISTINCT c.mirror_hash || ':' || c.seq) AS chunk_count,
			COUNT(DISTINCT CASE WHEN v.model = ? THEN v.mirror_hash || ':' || v.seq END) AS vector_count
		FROM documents d
		LEFT JOIN chunks c ON c.mirror_hash = d.mirror_hash
		LEFT JOIN content_vectors v ON v.mirror_hash = c.mirror_hash AND v.seq = c.seq
		WHERE d.active = 1
		GROUP BY d.collection
		ORDER BY d.collection`, activeModel)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "status collection scan failed", err)
	}
	var collections []CollectionStatus
	for rows.Next() {
		var cs CollectionStatus
		if err := rows.Scan(&cs.Collection, &cs.DocumentCount, &cs.ChunkCount, &cs.VectorCount); err != nil {
			rows.Close()
			return nil, errorcode.New(errorcode.CodeQueryFailed, "status collection row failed", err)
		}
		collections = append(collections, cs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "status collection rows error", err)
	}

	var backlog int64
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c
		JOIN documents d ON d.mirror_hash = c.mirror_hash
		WHERE d.active = 1
		AND NOT EXISTS (
			SELECT 1 FROM content_vectors v WHERE v.mirror_hash = c.mirror_hash AND v.seq = c.seq AND v.model = ?
		)`, activeModel).Scan(&backlog)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "embedding backlog query failed", err)
	}

	var recentErrors int64
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM (SELECT id FROM ingest_errors ORDER BY id DESC LIMIT ?)`, recentErrorWindow).Scan(&recentErrors)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "recent error count query failed", err)
	}

	return &Status{
		Collections:      collections,
		EmbeddingBacklog: backlog,
		RecentErrorCount: recentErrors,
		Healthy:          recentErrors == 0,
	}, nil
}

// CleanupOrphans deletes content bodies, chunks, vectors, and FTS rows that
// no longer have a live (active) document referencing them.
func (s *Store) CleanupOrphans(ctx context.Context) (*CleanupResult, error) {
	var result CleanupResult
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)

		res, err := q.ExecContext(ctx, `
			DELETE FROM content_bodies WHERE mirror_hash NOT IN (SELECT mirror_hash FROM documents WHERE active = 1)`)
		if err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "cleanup content failed", err)
		}
		result.ContentRemoved, _ = res.RowsAffected()

		res, err = q.ExecContext(ctx, `
			DELETE FROM chunks WHERE mirror_hash NOT IN (SELECT mirror_hash FROM documents WHERE active = 1)`)
		if err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "cleanup chunks failed", err)
		}
		result.ChunksRemoved, _ = res.RowsAffected()

		res, err = q.ExecContext(ctx, `
			DELETE FROM content_vectors WHERE mirror_hash NOT IN (SELECT mirror_hash FROM documents WHERE active = 1)`)
		if err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "cleanup vectors failed", err)
		}
		result.VectorsRemoved, _ = res.RowsAffected()

		res, err = q.ExecContext(ctx, `
			DELETE FROM documents_fts WHERE rowid NOT IN (SELECT id FROM documents WHERE active = 1)`)
		if err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "cleanup fts failed", err)
		}
		result.FtsRemoved, _ = res.RowsAffected()

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
