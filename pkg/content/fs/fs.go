// Package fs implements the content repository on the local filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/driveio/fedfs/pkg/content"
)

// Repository stores blobs as files under a base directory, one file per
// ContentID.
//
// Thread Safety:
// Filesystem operations are safe at the OS level; concurrent writes to the
// same ContentID are last-write-wins.
type Repository struct {
	basePath string
}

// New creates a filesystem repository rooted at basePath, creating the
// directory if needed.
func New(basePath string) (*Repository, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Repository{basePath: basePath}, nil
}

// blobPath maps a ContentID to a path under the base directory. IDs are
// opaque tokens without separators, so no escaping is needed.
func (r *Repository) blobPath(id content.ContentID) string {
	return filepath.Join(r.basePath, string(id))
}

// Open returns a reader positioned at offset into the blob.
func (r *Repository) Open(ctx context.Context, id content.ContentID, offset int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.blobPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to open content %q: %w", id, err)
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to seek content %q: %w", id, err)
		}
	}

	return f, nil
}

// Save replaces the blob's content with the stream.
func (r *Repository) Save(ctx context.Context, id content.ContentID, stream io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(r.blobPath(id), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create content %q: %w", id, err)
	}

	n, err := io.Copy(f, stream)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("failed to write content %q: %w", id, err)
	}

	return n, nil
}

// Append appends the stream to the blob and returns its new total size.
func (r *Repository) Append(ctx context.Context, id content.ContentID, stream io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(r.blobPath(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open content %q for append: %w", id, err)
	}

	_, err = io.Copy(f, stream)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to append content %q: %w", id, err)
	}

	info, err := os.Stat(r.blobPath(id))
	if err != nil {
		return 0, fmt.Errorf("failed to stat content %q: %w", id, err)
	}

	return info.Size(), nil
}

// Size returns the blob's length.
func (r *Repository) Size(ctx context.Context, id content.ContentID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	info, err := os.Stat(r.blobPath(id))
	if err != nil {
		return 0, fmt.Errorf("failed to stat content %q: %w", id, err)
	}

	return info.Size(), nil
}

// Delete removes the blob. Missing blobs are ignored.
func (r *Repository) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(r.blobPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete content %q: %w", id, err)
	}

	return nil
}

// ListAll returns the id of every blob under the base directory.
func (r *Repository) ListAll(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list content directory: %w", err)
	}

	ids := make([]content.ContentID, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		ids = append(ids, content.ContentID(d.Name()))
	}
	return ids, nil
}

// Exists reports whether the blob is present.
func (r *Repository) Exists(ctx context.Context, id content.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(r.blobPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
