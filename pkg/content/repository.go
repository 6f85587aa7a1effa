// Package content defines the blob repository used for natively-hosted file
// content and for chunked-upload spill files.
//
// Metadata (titles, hierarchy, versions) lives in the stores; this package
// only moves bytes. Content is addressed by an opaque ContentID allocated by
// the internal store.
package content

import (
	"context"
	"io"
)

// ContentID identifies one blob.
type ContentID string

// Repository is the contract for blob storage backends.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ContentID are last-write-wins.
type Repository interface {
	// Open returns a reader positioned at offset into the blob.
	// Returns an error if the blob does not exist.
	Open(ctx context.Context, id ContentID, offset int64) (io.ReadCloser, error)

	// Save replaces the blob's content with the stream, creating it if
	// missing. Returns the number of bytes written.
	Save(ctx context.Context, id ContentID, stream io.Reader) (int64, error)

	// Append appends the stream to the blob, creating it if missing.
	// Returns the blob's new total size. Used by chunked-upload spill.
	Append(ctx context.Context, id ContentID, stream io.Reader) (int64, error)

	// Size returns the blob's length in bytes.
	Size(ctx context.Context, id ContentID) (int64, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, id ContentID) error

	// Exists reports whether the blob is present.
	Exists(ctx context.Context, id ContentID) (bool, error)
}

// Lister is the optional capability of enumerating every stored blob.
// Garbage collection needs it to find content no metadata references.
type Lister interface {
	// ListAll returns the id of every blob in the repository.
	ListAll(ctx context.Context) ([]ContentID, error)
}
