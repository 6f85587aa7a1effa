// Package memory implements the content repository in memory.
//
// Intended for tests and ephemeral deployments; data is lost on restart.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/driveio/fedfs/pkg/content"
)

// Repository stores blobs in a map.
//
// Thread Safety:
// All operations are protected by an RWMutex. Data is copied on read and
// write so caller-owned buffers never alias the stored slices.
type Repository struct {
	mu   sync.RWMutex
	data map[content.ContentID][]byte
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{data: make(map[content.ContentID][]byte)}
}

// Open returns a reader positioned at offset into the blob.
func (r *Repository) Open(ctx context.Context, id content.ContentID, offset int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	blob, ok := r.data[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("content %q not found", id)
	}
	if offset > int64(len(blob)) {
		return nil, fmt.Errorf("offset %d beyond content %q size %d", offset, id, len(blob))
	}

	return io.NopCloser(bytes.NewReader(blob[offset:])), nil
}

// Save replaces the blob's content with the stream.
func (r *Repository) Save(ctx context.Context, id content.ContentID, stream io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return 0, fmt.Errorf("failed to read stream for %q: %w", id, err)
	}

	r.mu.Lock()
	r.data[id] = data
	r.mu.Unlock()

	return int64(len(data)), nil
}

// Append appends the stream to the blob and returns its new total size.
func (r *Repository) Append(ctx context.Context, id content.ContentID, stream io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return 0, fmt.Errorf("failed to read stream for %q: %w", id, err)
	}

	r.mu.Lock()
	r.data[id] = append(r.data[id], data...)
	size := int64(len(r.data[id]))
	r.mu.Unlock()

	return size, nil
}

// Size returns the blob's length.
func (r *Repository) Size(ctx context.Context, id content.ContentID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	blob, ok := r.data[id]
	if !ok {
		return 0, fmt.Errorf("content %q not found", id)
	}

	return int64(len(blob)), nil
}

// Delete removes the blob. Missing blobs are ignored.
func (r *Repository) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.data, id)
	r.mu.Unlock()

	return nil
}

// Exists reports whether the blob is present.
func (r *Repository) Exists(ctx context.Context, id content.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.data[id]
	return ok, nil
}

// ListAll returns the id of every stored blob.
func (r *Repository) ListAll(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]content.ContentID, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	return ids, nil
}
