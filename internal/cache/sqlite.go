package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const recordsBucket = "records"

// SQLite persists the in-memory cache to a single SQLite table as a JSON
// blob, snapshotting the full state after every successful mutation. The
// memory state is authoritative: a failed snapshot leaves the disk copy
// stale until the next successful mutation rewrites it.
type SQLite struct {
	*Memory
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewSQLite constructs a snapshotting SQLite-backed cache.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "qiime2-cache.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &SQLite{Memory: NewMemory(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) load() error {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE bucket = ?`, recordsBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

func (s *SQLite) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(s.ExportState())
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, recordsBucket, data); err != nil {
		return fmt.Errorf("upsert %s: %w", recordsBucket, err)
	}
	return nil
}

// Put stores a record and snapshots state to SQLite on success.
func (s *SQLite) Put(ctx context.Context, rec Record) error {
	if err := s.Memory.Put(ctx, rec); err != nil {
		return err
	}
	return s.persist()
}

// Delete removes a record and snapshots state to SQLite on success.
func (s *SQLite) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.Memory.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.persist()
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *SQLite) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *SQLite) Path() string { return s.path }
