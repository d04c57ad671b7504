package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	postgresDriver = "pgx"
	// Default DSN keeps parity with OpenFromEnv defaults while allowing overrides via env.
	defaultPostgresDSN = "postgres://localhost/qiime2?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Postgres persists the in-memory cache to Postgres, snapshotting the
// full state after every successful mutation. As with the SQLite mirror,
// the memory state is authoritative and a failed snapshot leaves the
// database copy stale until the next successful mutation.
type Postgres struct {
	*Memory
	db *sql.DB
	mu sync.Mutex
}

// NewPostgres opens a Postgres-backed cache using the provided DSN
// (falls back to defaultPostgresDSN). It ensures the snapshot table
// exists and hydrates the in-memory cache from any existing snapshot.
func NewPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = defaultPostgresDSN
	}
	openMu.Lock()
	db, err := sqlOpen(postgresDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	p := &Postgres{Memory: NewMemory(), db: db}
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) load(ctx context.Context) error {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, recordsBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	p.ImportState(snapshot)
	return nil
}

func (p *Postgres) persist(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := json.Marshal(p.ExportState())
	if err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, recordsBucket, data); err != nil {
		return fmt.Errorf("upsert %s: %w", recordsBucket, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Put stores a record and snapshots state to Postgres on success.
func (p *Postgres) Put(ctx context.Context, rec Record) error {
	if err := p.Memory.Put(ctx, rec); err != nil {
		return err
	}
	return p.persist(ctx)
}

// Delete removes a record and snapshots state to Postgres on success.
func (p *Postgres) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := p.Memory.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	return true, p.persist(ctx)
}

// Close closes the underlying database handle.
func (p *Postgres) Close() error { return p.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (p *Postgres) DB() *sql.DB { return p.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
