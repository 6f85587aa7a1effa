// Package provider implements the federated folder/file store: one generic
// store over a capability-abstracted provider client, plus the identifier
// translation, title collision policy, cache reset protocol and deletion
// cascade shared by every backend kind.
package provider

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel errors clients translate backend-specific failures into. The
// store maps ErrItemNotFound to the NotFound domain error; anything else
// coming back from a client is wrapped as a remote provider error.
var (
	ErrItemNotFound = errors.New("provider item not found")
	ErrItemExists   = errors.New("provider item already exists")
)

// Item is the provider-native view of one folder or file. Paths are
// slash-separated, rooted at "/", and unique within one provider account.
type Item struct {
	Path     string
	Name     string
	IsFolder bool
	Size     int64
	Created  time.Time
	Modified time.Time
	Rev      string
}

// Client is the capability client for one external backend account.
//
// The wire protocol behind each method is the backend's concern; this layer
// only assumes list/get/create/move/copy/delete plus streaming up- and
// download. Resumable sessions are optional: CreateResumableSession reports
// ok=false when the backend has none and uploads fall back to local spill.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Client interface {
	// List returns the children of the folder at parentPath.
	List(ctx context.Context, parentPath string) ([]Item, error)

	// Get returns the item at path, or ErrItemNotFound.
	Get(ctx context.Context, path string) (*Item, error)

	// CreateFolder creates a folder named title under parentPath.
	CreateFolder(ctx context.Context, parentPath, title string) (*Item, error)

	// CreateFile creates a file named title under parentPath from the
	// stream. A taken title must be rejected with ErrItemExists before
	// the stream is consumed, so the caller can retry with another title
	// and the same reader.
	CreateFile(ctx context.Context, parentPath, title string, stream io.Reader) (*Item, error)

	// SaveStream overwrites the content of the file at path.
	SaveStream(ctx context.Context, path string, stream io.Reader) (*Item, error)

	// Move relocates the item at path under toParentPath with the given
	// title. Rename is a move into the same parent.
	Move(ctx context.Context, path, toParentPath, title string) (*Item, error)

	// Copy duplicates the item at path under toParentPath with the given
	// title. Folder copies are recursive on the backend side.
	Copy(ctx context.Context, path, toParentPath, title string) (*Item, error)

	// Delete removes the item at path, recursively for folders.
	Delete(ctx context.Context, path string) error

	// OpenDownload opens the file content at path for reading at offset.
	OpenDownload(ctx context.Context, path string, offset int64) (io.ReadCloser, error)

	// MaxUploadSize returns the backend's single-upload limit, 0 for none.
	MaxUploadSize() int64

	// CreateResumableSession starts a resumable upload and returns its
	// token. ok is false when the backend does not support sessions.
	CreateResumableSession(ctx context.Context) (token string, ok bool, err error)

	// AppendToSession streams one chunk into the session at offset.
	AppendToSession(ctx context.Context, token string, offset int64, chunk io.Reader, length int64) error

	// FinishSession commits the session as a file named title under
	// parentPath with the declared total size.
	FinishSession(ctx context.Context, token, parentPath, title string, size int64) (*Item, error)

	// AbortSession abandons the session. Best-effort; failures are
	// non-fatal and remote expiry reclaims the session eventually.
	AbortSession(ctx context.Context, token string) error
}

// PreSigner is the optional capability of producing direct download URLs.
type PreSigner interface {
	PreSignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
}
