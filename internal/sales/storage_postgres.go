package sales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by PostgresStorage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectKV = `SELECT value FROM kv_store WHERE key = $1`
	upsertKV = `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// PostgresStorage keeps the snapshot as a JSONB value in a key/value table.
type PostgresStorage struct {
	db      DB
	key     string
	timeout time.Duration
}

// NewPostgresStorage returns a PostgresStorage. Each statement is bounded
// by timeout; zero means no bound.
func NewPostgresStorage(db DB, key string, timeout time.Duration) *PostgresStorage {
	if key == "" {
		key = DefaultStorageKey
	}
	return &PostgresStorage{db: db, key: key, timeout: timeout}
}

func (p *PostgresStorage) ctx() (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), p.timeout)
}

// EnsureSchema creates the key/value table if it does not exist.
func (p *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createKVTable); err != nil {
		return fmt.Errorf("%w: create kv_store: %v", ErrStorage, err)
	}
	return nil
}

// Load reads the snapshot row. No row is not an error.
func (p *PostgresStorage) Load() (*Snapshot, error) {
	ctx, cancel := p.ctx()
	defer cancel()

	var raw []byte
	err := p.db.QueryRow(ctx, selectKV, p.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %v", ErrStorage, p.key, err)
	}

	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrStorage, p.key, err)
	}
	return &s, nil
}

// Save upserts the snapshot row.
func (p *PostgresStorage) Save(snapshot Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorage, err)
	}

	ctx, cancel := p.ctx()
	defer cancel()

	if _, err := p.db.Exec(ctx, upsertKV, p.key, b); err != nil {
		return fmt.Errorf("%w: save %q: %v", ErrStorage, p.key, err)
	}
	return nil
}
