// Package configmutex serializes configuration mutations so that
// load -> mutate -> save -> syncCollections -> syncContexts -> refresh
// in-memory runs as one linearizable critical section, both within this
// process (sync.Mutex) and across processes sharing the same data
// directory (a gofrs/flock exclusive lock file).
package configmutex

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/store"
)

// MutateFunc receives the freshest on-disk configuration, loaded inside the
// critical section, and returns either a new configuration to persist or a
// typed error that is surfaced verbatim to the caller without being saved.
type MutateFunc func(current *config.Config) (*config.Config, error)

// Mutex guards one configuration file plus its reflection into the store's
// collections and contexts tables.
type Mutex struct {
	mu      sync.Mutex
	path    string
	flock   *flock.Flock
	st      *store.Store
	logger  *slog.Logger
	current *config.Config
}

// New builds a Mutex over the config file at path, backed by a lock file
// at lockPath for cross-process exclusion. st may be nil (e.g. before the
// store is opened); syncCollections/syncContexts are skipped in that case.
func New(path, lockPath string, st *store.Store, logger *slog.Logger) (*Mutex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeLoadError, "load initial configuration", err)
	}
	cfg.ApplyEnvOverrides()
	return &Mutex{
		path:    path,
		flock:   flock.New(lockPath),
		st:      st,
		logger:  logger,
		current: cfg,
	}, nil
}

// Current returns the last successfully applied configuration snapshot.
// Safe to call concurrently with Mutate.
func (m *Mutex) Current() *config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := *m.current
	return &cfg
}

// Mutate runs fn inside the linearizable critical section and, on success,
// persists the result and reflects it into the store. If fn returns an
// error, nothing is saved and the error is returned unchanged. If the save
// step itself fails, a typed SAVE_ERROR is returned. If save succeeds but
// reflecting into the store fails, the on-disk config (and in-memory cache)
// are still updated — the store is left to catch up on its own next
// syncCollections/syncContexts call (e.g. at restart) — and a warning is
// logged rather than returned, since the mutation itself did succeed.
func (m *Mutex) Mutate(ctx context.Context, fn MutateFunc) (*config.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flock.Lock(); err != nil {
		return nil, errorcode.New(errorcode.CodeConflict, "acquire cross-process config lock", err)
	}
	defer func() {
		if err := m.flock.Unlock(); err != nil {
			m.logger.Warn("config lock release failed", "error", err)
		}
	}()

	fresh, err := config.Load(m.path)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeLoadError, "load configuration", err)
	}
	fresh.ApplyEnvOverrides()

	next, err := fn(fresh)
	if err != nil {
		return nil, err
	}

	if err := next.Validate(); err != nil {
		return nil, errorcode.Validation(err.Error(), err)
	}

	if _, err := config.BackupConfigFile(m.path); err != nil {
		m.logger.Warn("config backup failed, proceeding with write", "error", err)
	}

	if err := next.WriteYAML(m.path); err != nil {
		return nil, errorcode.New(errorcode.CodeSaveError, "save configuration", err)
	}

	m.current = next

	if m.st != nil {
		if err := m.st.SyncCollections(ctx, toStoreCollections(next.Collections)); err != nil {
			m.logger.Warn("syncCollections after config mutation failed; will reconcile on next sync",
				"error", err)
		}
		if err := m.st.SyncContexts(ctx, toStoreContexts(next.Contexts)); err != nil {
			m.logger.Warn("syncContexts after config mutation failed; will reconcile on next sync",
				"error", err)
		}
	}

	return next, nil
}

func toStoreCollections(cols []config.Collection) []store.Collection {
	out := make([]store.Collection, len(cols))
	for i, c := range cols {
		pattern := c.Pattern
		if pattern == "" {
			pattern = "**/*"
		}
		out[i] = store.Collection{
			Name:         c.Name,
			Path:         c.Path,
			Pattern:      pattern,
			Include:      c.Include,
			Exclude:      c.Exclude,
			UpdateCmd:    c.UpdateCmd,
			LanguageHint: c.LanguageHint,
		}
	}
	return out
}

func toStoreContexts(ctxs []config.Context) []store.Context {
	out := make([]store.Context, len(ctxs))
	for i, c := range ctxs {
		out[i] = store.Context{
			ScopeType: c.ScopeType,
			ScopeKey:  c.ScopeKey,
			Text:      c.Text,
		}
	}
	return out
}
