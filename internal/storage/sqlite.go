package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `CREATE TABLE IF NOT EXISTS entries (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	size      INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// SQLiteBackend persists every namespace in one SQLite database file.
type SQLiteBackend struct {
	sqlDB *sql.DB
	quota int64
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string, quota int64) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer keeps read-your-writes trivially true.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteBackend{sqlDB: sqlDB, quota: quota}, nil
}

// Open returns the store for namespace. Stores share the backend's handle.
func (b *SQLiteBackend) Open(ctx context.Context, namespace string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b == nil || b.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return &SQLiteStore{sqlDB: b.sqlDB, namespace: namespace, quota: b.quota}, nil
}

// Close closes the SQLite handle.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.sqlDB == nil {
		return nil
	}
	return b.sqlDB.Close()
}

// SQLiteStore is one namespace inside a SQLiteBackend. Rows are enumerated
// by rowid, which an upsert does not change.
type SQLiteStore struct {
	sqlDB     *sql.DB
	namespace string
	quota     int64
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE namespace = ?`, s.namespace,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Key(ctx context.Context, index int) (string, error) {
	if index < 0 {
		return "", ErrIndexOutOfRange
	}
	var key string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT key FROM entries WHERE namespace = ? ORDER BY rowid LIMIT 1 OFFSET ?`,
		s.namespace, index,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrIndexOutOfRange
	}
	if err != nil {
		return "", fmt.Errorf("key at %d: %w", index, err)
	}
	return key, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM entries WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	size := entrySize(key, value)
	if s.quota > 0 {
		var others int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size), 0) FROM entries WHERE namespace = ? AND key <> ?`,
			s.namespace, key,
		).Scan(&others)
		if err != nil {
			return fmt.Errorf("measure usage: %w", err)
		}
		if used := others + size; used > s.quota {
			return fmt.Errorf("set %q (%d of %d bytes): %w", key, used, s.quota, ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (namespace, key, value, size) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, size = excluded.size`,
		s.namespace, key, value, size,
	)
	if err != nil {
		if isDiskFull(err) {
			return fmt.Errorf("set %q: %w", key, ErrQuotaExceeded)
		}
		return fmt.Errorf("set %q: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM entries WHERE namespace = ? AND key = ?`, s.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM entries WHERE namespace = ?`, s.namespace,
	)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// isDiskFull maps SQLITE_FULL to a quota error.
func isDiskFull(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_FULL
	}
	return false
}

var (
	_ Backend = (*SQLiteBackend)(nil)
	_ Backend = (*MemoryBackend)(nil)
	_ Store   = (*SQLiteStore)(nil)
	_ Store   = (*MemoryStore)(nil)
)
