package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// SyncCollections replaces the stored projection of the config-of-record's
// collection list: removed collections are deleted, kept ones are upserted.
// Idempotent and transactional.
func (s *Store) SyncCollections(ctx context.Context, collections []Collection) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)

		keep := make(map[string]bool, len(collections))
		for _, c := range collections {
			keep[c.Name] = true
		}

		rows, err := q.QueryContext(ctx, `SELECT name FROM collections`)
		if err != nil {
			return errorcode.New(errorcode.CodeQueryFailed, "collections scan failed", err)
		}
		var existing []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return errorcode.New(errorcode.CodeQueryFailed, "collections row failed", err)
			}
			existing = append(existing, name)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return errorcode.New(errorcode.CodeQueryFailed, "collections rows error", err)
		}

		for _, name := range existing {
			if !keep[name] {
				if _, err := q.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
					return errorcode.New(errorcode.CodeTransactionFailed, "delete collection failed", err)
				}
			}
		}

		for _, c := range collections {
			include, err := json.Marshal(c.Include)
			if err != nil {
				return errorcode.New(errorcode.CodeValidation, "invalid include patterns", err)
			}
			exclude, err := json.Marshal(c.Exclude)
			if err != nil {
				return errorcode.New(errorcode.CodeValidation, "invalid exclude patterns", err)
			}
			pattern := c.Pattern
			if pattern == "" {
				pattern = "**/*"
			}
			syncedAt := c.SyncedAt
			if syncedAt.IsZero() {
				syncedAt = time.Now().UTC()
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO collections (name, path, pattern, include_json, exclude_json, update_cmd, language_hint, synced_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(name) DO UPDATE SET
					path = excluded.path, pattern = excluded.pattern, include_json = excluded.include_json,
					exclude_json = excluded.exclude_json, update_cmd = excluded.update_cmd,
					language_hint = excluded.language_hint, synced_at = excluded.synced_at`,
				c.Name, c.Path, pattern, string(include), string(exclude), c.UpdateCmd, c.LanguageHint,
				syncedAt.Format(time.RFC3339Nano)); err != nil {
				return errorcode.New(errorcode.CodeTransactionFailed, "upsert collection failed", err)
			}
		}
		return nil
	})
}

// SyncContexts replaces the stored projection of scoped free-text metadata.
// Idempotent and transactional: existing rows for scopes no longer present
// are removed, the rest are upserted by (scopeType, scopeKey).
func (s *Store) SyncContexts(ctx context.Context, contexts []Context) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM contexts`); err != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "clear contexts failed", err)
		}
		for _, c := range contexts {
			if c.ScopeType != "global" && c.ScopeType != "collection" && c.ScopeType != "prefix" {
				return errorcode.Validation("invalid context scopeType: "+c.ScopeType, nil)
			}
			if _, err := q.ExecContext(ctx,
				`INSERT INTO contexts (scope_type, scope_key, text) VALUES (?, ?, ?)`,
				c.ScopeType, c.ScopeKey, c.Text); err != nil {
				return errorcode.New(errorcode.CodeTransactionFailed, "insert context failed", err)
			}
		}
		return nil
	})
}
