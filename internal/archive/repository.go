package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xpingli/qiime2/internal/blob"
	"github.com/xpingli/qiime2/internal/cache"
	"github.com/xpingli/qiime2/internal/observe"
)

// Repository stores artifact archives in a blob store and indexes them
// in the artifact cache. Operations are reported to the metrics recorder.
type Repository struct {
	blobs   blob.Store
	index   cache.Store
	metrics observe.MetricsRecorder
}

// NewRepository wires an archive repository. A nil recorder disables metrics.
func NewRepository(blobs blob.Store, index cache.Store, metrics observe.MetricsRecorder) *Repository {
	if metrics == nil {
		metrics = observe.NoopRecorder{}
	}
	return &Repository{blobs: blobs, index: index, metrics: metrics}
}

// Key returns the blob key an artifact archive is stored under.
func Key(id string) string { return fmt.Sprintf("archives/%s.qza", id) }

// Save writes the built archive to the blob store and records it in the
// cache. The returned record carries the assigned UUID and stored size.
func (r *Repository) Save(ctx context.Context, b *Builder) (rec cache.Record, err error) {
	start := time.Now()
	defer func() { r.metrics.Observe(ctx, "archive_save", err == nil, time.Since(start)) }()

	var buf bytes.Buffer
	if _, err = b.WriteTo(&buf); err != nil {
		return cache.Record{}, err
	}
	meta := b.Metadata()
	key := Key(meta.UUID)
	info, putErr := r.blobs.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{"uuid": meta.UUID, "type": meta.Type},
	})
	if putErr != nil {
		err = fmt.Errorf("store archive %s: %w", meta.UUID, putErr)
		return cache.Record{}, err
	}
	rec = cache.Record{
		UUID:         meta.UUID,
		SemanticType: meta.Type,
		Format:       meta.Format,
		Key:          key,
		Size:         info.Size,
	}
	if err = r.index.Put(ctx, rec); err != nil {
		// Keep blob and index consistent when the index rejects the record.
		_, _ = r.blobs.Delete(ctx, key)
		return cache.Record{}, err
	}
	// Re-read so the record carries the cache-stamped creation time.
	if stored, ok, getErr := r.index.Get(ctx, rec.UUID); getErr == nil && ok {
		rec = stored
	}
	return rec, nil
}

// Load fetches an archive by artifact UUID.
func (r *Repository) Load(ctx context.Context, id string) (a *Archive, rec cache.Record, err error) {
	start := time.Now()
	defer func() { r.metrics.Observe(ctx, "archive_load", err == nil, time.Since(start)) }()

	rec, ok, err := r.index.Get(ctx, id)
	if err != nil {
		return nil, cache.Record{}, err
	}
	if !ok {
		err = fmt.Errorf("artifact %s is not cached", id)
		return nil, cache.Record{}, err
	}
	_, rc, getErr := r.blobs.Get(ctx, rec.Key)
	if getErr != nil {
		err = fmt.Errorf("fetch archive %s: %w", id, getErr)
		return nil, cache.Record{}, err
	}
	data, readErr := io.ReadAll(rc)
	_ = rc.Close()
	if readErr != nil {
		err = readErr
		return nil, cache.Record{}, err
	}
	a, err = Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, cache.Record{}, err
	}
	return a, rec, nil
}

// Delete removes an artifact from both the blob store and the cache,
// reporting whether it existed.
func (r *Repository) Delete(ctx context.Context, id string) (existed bool, err error) {
	start := time.Now()
	defer func() { r.metrics.Observe(ctx, "archive_delete", err == nil, time.Since(start)) }()

	rec, ok, err := r.index.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if _, err = r.blobs.Delete(ctx, rec.Key); err != nil {
		return false, err
	}
	return r.index.Delete(ctx, id)
}

// List returns the cached artifact records.
func (r *Repository) List(ctx context.Context) ([]cache.Record, error) {
	return r.index.List(ctx)
}
