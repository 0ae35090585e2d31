package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
)

// SQLiteBackend stores snapshots as rows of a single key/value table.
// WAL mode lets a watcher and a one-shot CLI read the same file.
type SQLiteBackend struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	lock   *FileLock
	retry  rerrors.RetryConfig
	closed bool
}

var _ Backend = (*SQLiteBackend)(nil)

// validateSQLiteIntegrity checks an existing database before it is opened.
// A missing file is fine.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// NewSQLiteBackend opens (or creates) the cache database at path.
// If path is empty, an in-memory database is used.
// A corrupted file is removed and recreated: the cache is always rebuildable.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	dsn := ":memory:"
	var lock *FileLock
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("cache_db_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, rerrors.CacheCorruptError(path, fmt.Errorf("cannot remove: %w (original error: %v)", removeErr, validErr))
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("cache_db_cleared", slog.String("path", path))
		}

		dsn = path + "?_pragma=busy_timeout(5000)"
		lock = NewFileLock(path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: one writer, and ":memory:" must not fan out.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	b := &SQLiteBackend{
		db:    db,
		path:  path,
		lock:  lock,
		retry: rerrors.DefaultRetryConfig(),
	}
	if err := b.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	_, err := b.db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);`)
	return err
}

// Load implements Backend.
func (b *SQLiteBackend) Load(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false, fmt.Errorf("cache database is closed")
	}

	var data []byte
	err := b.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err)
	}
	return data, true, nil
}

// Save implements Backend. Busy errors are retried with a short backoff.
func (b *SQLiteBackend) Save(ctx context.Context, key string, data []byte) error {
	return b.write(ctx, func() error {
		_, err := b.db.ExecContext(ctx,
			`INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			key, data, time.Now().UnixMilli())
		return err
	})
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	return b.write(ctx, func() error {
		_, err := b.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
		return err
	})
}

func (b *SQLiteBackend) write(ctx context.Context, stmt func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("cache database is closed")
	}

	if b.lock != nil {
		if err := b.lock.Lock(); err != nil {
			return rerrors.TransientIOError(b.lock.Path(), err)
		}
		defer func() { _ = b.lock.Unlock() }()
	}

	return rerrors.Retry(ctx, b.retry, func() error {
		if err := stmt(); err != nil {
			return classify(err)
		}
		return nil
	})
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	_, _ = b.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return b.db.Close()
}

// classify maps driver errors onto routenav error codes.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "database is locked"):
		return rerrors.New(rerrors.ErrCodeCacheBusy, "cache database busy", err)
	case strings.Contains(msg, "SQLITE_CORRUPT"), strings.Contains(msg, "malformed"):
		return rerrors.CacheCorruptError("sqlite", err)
	default:
		return rerrors.TransientIOError("sqlite", err)
	}
}
