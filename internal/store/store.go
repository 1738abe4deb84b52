package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gnosis-index/gnosis/internal/errorcode"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// Tokenizer selects the FTS5 tokenizer used for documents_fts. unicode61,
// porter, and trigram are tokenizers FTS5 ships natively; snowball-<lang>
// is not a loadable SQLite extension in this pure-Go build, so Store
// pre-stems tokens at the application layer before handing them to
// unicode61 (see fts.go's maybePrestem).
type Tokenizer string

const (
	TokenizerUnicode61 Tokenizer = "unicode61"
	TokenizerPorter    Tokenizer = "porter"
	TokenizerTrigram   Tokenizer = "trigram"
)

func IsSnowballTokenizer(t string) bool {
	return strings.HasPrefix(t, "snowball-")
}

// Store is the embedded relational engine. One Store owns one database
// file (or :memory:) and is safe for concurrent reads while a single
// logical writer holds the connection, via a single-connection pool
// (SetMaxOpenConns(1)) that forces writes to serialize.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	tokenizer Tokenizer
	logger    *slog.Logger
	closed    atomic.Bool
}

// Open opens the database at dbPath (or an in-memory database when dbPath
// is ""), enables foreign keys, sets a busy timeout, and runs migrations up
// to schemaVersion. ftsTokenizerSelection chooses the FTS5 tokenizer;
// snowball-* selections are handled at the application layer (see above).
func Open(dbPath string, ftsTokenizerSelection string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tok := Tokenizer(ftsTokenizerSelection)
	baseTok := ftsTokenizerSelection
	if IsSnowballTokenizer(ftsTokenizerSelection) {
		baseTok = string(TokenizerUnicode61)
	}
	switch baseTok {
	case string(TokenizerUnicode61), string(TokenizerPorter), string(TokenizerTrigram):
	default:
		return nil, errorcode.New(errorcode.CodeExtensionLoadError,
			fmt.Sprintf("unsupported fts tokenizer %q", ftsTokenizerSelection), nil)
	}

	var dsn string
	if dbPath == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errorcode.New(errorcode.CodeConnectionFailed, "cannot create data directory", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeConnectionFailed, "cannot open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if dbPath != "" {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	} else {
		pragmas = append([]string{"PRAGMA journal_mode = MEMORY"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, errorcode.New(errorcode.CodeConnectionFailed, "cannot set pragma: "+p, err)
		}
	}

	s := &Store{db: db, path: dbPath, tokenizer: tok, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return errorcode.New(errorcode.CodeConnectionFailed, "schema migration failed", err)
	}
	var current string
	row := s.db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'schema_version'`)
	if err := row.Scan(&current); err != nil {
		if _, err := s.db.Exec(`INSERT INTO schema_meta(key, value) VALUES ('schema_version', ?)`, fmt.Sprint(schemaVersion)); err != nil {
			return errorcode.New(errorcode.CodeConnectionFailed, "cannot stamp schema version", err)
		}
	}
	return nil
}

// Close releases all resources. Safe to call twice.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for packages (vectorindex, ingest) that
// need to run ad hoc queries against the same connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// querier is satisfied by both *sql.DB and *sql.Tx so helper methods can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTransaction runs f inside a single logical transaction. Nesting
// (calling WithTransaction again while already inside one) reuses the
// existing transaction as a savepoint boundary rather than opening a new
// physical transaction, so nested calls always yield savepoints. Rollback
// errors are logged but never mask f's original error.
func (s *Store) WithTransaction(ctx context.Context, f func(ctx context.Context) error) (err error) {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		sp := fmt.Sprintf("sp_%p", f)
		if _, execErr := tx.ExecContext(ctx, "SAVEPOINT "+sp); execErr != nil {
			return errorcode.New(errorcode.CodeTransactionFailed, "cannot create savepoint", execErr)
		}
		defer func() {
			if err != nil {
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
					s.logger.Error("savepoint rollback failed", "error", rbErr)
				}
				return
			}
			if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+sp); relErr != nil {
				s.logger.Error("savepoint release failed", "error", relErr)
			}
		}()
		return f(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return errorcode.New(errorcode.CodeTransactionFailed, "cannot begin transaction", txErr)
	}
	nestedCtx := context.WithValue(ctx, txKey{}, tx)
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error("transaction rollback failed", "error", rbErr)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = errorcode.New(errorcode.CodeTransactionFailed, "commit failed", commitErr)
		}
	}()
	return f(nestedCtx)
}

// q returns the querier active for ctx: the enclosing transaction if one
// has been opened by WithTransaction, otherwise the pooled *sql.DB (safe
// for concurrent reads).
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return s.db
}
