package sales

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteCreateKV = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	sqliteSelectKV = `SELECT value FROM kv_store WHERE key = ?`
	sqliteUpsertKV = `INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)

// SQLiteStorage keeps the snapshot as a JSON value in a key/value table of
// an embedded SQLite database file.
type SQLiteStorage struct {
	db      *sql.DB
	key     string
	timeout time.Duration
}

// OpenSQLiteStorage opens (creating if needed) the database at path and
// its kv_store table. Each statement is bounded by timeout; zero means no
// bound.
func OpenSQLiteStorage(ctx context.Context, path, key string, timeout time.Duration) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", ErrStorage, dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteCreateKV); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create kv_store: %v", ErrStorage, err)
	}

	if key == "" {
		key = DefaultStorageKey
	}
	return &SQLiteStorage{db: db, key: key, timeout: timeout}, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) ctx() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.timeout)
}

// Load reads the snapshot row. No row is not an error.
func (s *SQLiteStorage) Load() (*Snapshot, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var raw string
	err := s.db.QueryRowContext(ctx, sqliteSelectKV, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %v", ErrStorage, s.key, err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrStorage, s.key, err)
	}
	return &snap, nil
}

// Save upserts the snapshot row.
func (s *SQLiteStorage) Save(snapshot Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorage, err)
	}

	ctx, cancel := s.ctx()
	defer cancel()

	if _, err := s.db.ExecContext(ctx, sqliteUpsertKV, s.key, string(b)); err != nil {
		return fmt.Errorf("%w: save %q: %v", ErrStorage, s.key, err)
	}
	return nil
}
