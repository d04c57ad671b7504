// Package cache indexes materialized artifacts. Each record maps an
// artifact UUID to its semantic type, format, archive key, and size.
// The in-memory store is authoritative; the SQLite and Postgres stores
// embed it and snapshot the full state after every successful mutation.
package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record describes one materialized artifact.
type Record struct {
	UUID         string    `json:"uuid"`
	SemanticType string    `json:"semantic_type"`
	Format       string    `json:"format,omitempty"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r Record) validate() error {
	if _, err := uuid.Parse(r.UUID); err != nil {
		return fmt.Errorf("cache record: invalid uuid %q: %w", r.UUID, err)
	}
	if r.SemanticType == "" {
		return fmt.Errorf("cache record %s: semantic type required", r.UUID)
	}
	if r.Key == "" {
		return fmt.Errorf("cache record %s: archive key required", r.UUID)
	}
	return nil
}

// Snapshot is the full exported cache state.
type Snapshot struct {
	Records []Record `json:"records"`
}

// Store is the artifact cache contract. Put is create-only.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Memory is the in-memory cache implementation.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory constructs an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

// Put stores a new record. A missing CreatedAt is stamped with the
// current time. Storing an existing UUID fails.
func (m *Memory) Put(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := rec.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.UUID]; exists {
		return fmt.Errorf("cache record %s already exists", rec.UUID)
	}
	m.records[rec.UUID] = rec
	return nil
}

// Get returns the record for an artifact UUID.
func (m *Memory) Get(_ context.Context, id string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok, nil
}

// Delete removes a record, reporting whether it existed.
func (m *Memory) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

// List returns all records ordered by creation time, then UUID.
func (m *Memory) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UUID < out[j].UUID
	})
	return out, nil
}

// Close releases nothing for the in-memory store.
func (m *Memory) Close() error { return nil }

// ExportState snapshots the full cache state.
func (m *Memory) ExportState() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return Snapshot{Records: out}
}

// ImportState replaces the cache state with a snapshot.
func (m *Memory) ImportState(snapshot Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record, len(snapshot.Records))
	for _, rec := range snapshot.Records {
		m.records[rec.UUID] = rec
	}
}
