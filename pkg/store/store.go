// Package store defines the common folder/file store contract every backend
// implements: the internal store over the local database and one federated
// store per connected provider. The contract is generic over the identifier
// kind so an internal store (int ids) and a federated store (string ids)
// share one shape without runtime type branching.
//
// Mixing identifier kinds inside one store is a contract violation; moving an
// entry between stores of different kinds is the cross-store engine's job.
package store

import (
	"context"
	"io"
	"time"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/google/uuid"
)

// ListOptions carries the filter/search/sort parameters of a listing.
//
// Filtering is applied client-side in a fixed order: subject, type,
// extension, search text. Providers expose no typed queries, so a large
// federated folder pays the full listing cost before filtering; this is a
// known scaling ceiling kept for parity with provider capabilities.
type ListOptions struct {
	// OrderBy selects the sort key and direction. The zero value means
	// the store's default order (modified, descending).
	OrderBy entry.OrderBy

	// Filter restricts results by entry type.
	Filter entry.FilterType

	// Ext is the extension to match when Filter is FilterByExtension.
	Ext string

	// Subject restricts results to entries created by this user.
	// The zero UUID means no subject filter.
	Subject uuid.UUID

	// SearchText restricts results to titles containing the text
	// (case-insensitive).
	SearchText string

	// WithSubfolders extends the listing into descendant folders where
	// the backend supports it.
	WithSubfolders bool
}

// FolderStore is the folder half of the store contract.
type FolderStore[T entry.ID] interface {
	// GetFolder returns the folder by id, or ErrNotFound.
	GetFolder(ctx context.Context, id T) (*entry.Folder[T], error)

	// GetFolderByTitle returns the child folder of parentID with the given
	// title (case-insensitive), or ErrNotFound.
	GetFolderByTitle(ctx context.Context, parentID T, title string) (*entry.Folder[T], error)

	// ListFolders returns the child folders of parentID after applying the
	// filter pipeline and sort. Filters that exclude folders entirely
	// yield an empty result without touching the backend.
	ListFolders(ctx context.Context, parentID T, opts ListOptions) ([]*entry.Folder[T], error)

	// GetFoldersByIDs fetches several folders; missing ids are skipped.
	GetFoldersByIDs(ctx context.Context, ids []T) ([]*entry.Folder[T], error)

	// GetParentFolders returns the chain from the root down to the folder
	// itself, outermost first.
	GetParentFolders(ctx context.Context, id T) ([]*entry.Folder[T], error)

	// CreateFolder creates folder.Title under folder.ParentID, resolving
	// title collisions with the " (n)" suffix policy. Returns the new id.
	CreateFolder(ctx context.Context, folder *entry.Folder[T]) (T, error)

	// RenameFolder renames the folder, resolving collisions. Returns the
	// folder's id, which may change on path-addressed backends.
	RenameFolder(ctx context.Context, id T, newTitle string) (T, error)

	// DeleteFolder removes the folder and every descendant, cascading to
	// identifier mappings, tags and security rows.
	DeleteFolder(ctx context.Context, id T) error

	// MoveFolder moves the folder under toParentID within this store.
	MoveFolder(ctx context.Context, id T, toParentID T) (T, error)

	// CopyFolder copies the folder (not its contents' tags) under
	// toParentID within this store.
	CopyFolder(ctx context.Context, id T, toParentID T) (*entry.Folder[T], error)

	// IsExist reports whether a child with the title exists under folderID.
	IsExist(ctx context.Context, title string, folderID T) (bool, error)

	// IsEmpty reports whether the folder has no children.
	IsEmpty(ctx context.Context, id T) (bool, error)

	// ItemsCount returns the number of immediate children.
	ItemsCount(ctx context.Context, id T) (int, error)
}

// FileStore is the file half of the store contract.
type FileStore[T entry.ID] interface {
	// GetFile returns the file by id, or ErrNotFound.
	GetFile(ctx context.Context, id T) (*entry.File[T], error)

	// GetFileByTitle returns the child file of parentID with the given
	// title (case-insensitive), or ErrNotFound.
	GetFileByTitle(ctx context.Context, parentID T, title string) (*entry.File[T], error)

	// ListFiles returns the child files of parentID after the filter
	// pipeline and sort.
	ListFiles(ctx context.Context, parentID T, opts ListOptions) ([]*entry.File[T], error)

	// GetFilesByIDs fetches several files; missing ids are skipped.
	GetFilesByIDs(ctx context.Context, ids []T) ([]*entry.File[T], error)

	// GetFilesFiltered fetches several files and applies the filter
	// pipeline (no sort). Used by tag-driven virtual views.
	GetFilesFiltered(ctx context.Context, ids []T, opts ListOptions) ([]*entry.File[T], error)

	// SaveFile writes stream as the file's content. With file.ID set it
	// overwrites that file; otherwise it creates file.Title under
	// file.ParentID, resolving title collisions. Returns the saved file.
	SaveFile(ctx context.Context, file *entry.File[T], stream io.Reader) (*entry.File[T], error)

	// RenameFile renames the file, resolving collisions. Returns the
	// file's id, which may change on path-addressed backends.
	RenameFile(ctx context.Context, id T, newTitle string) (T, error)

	// DeleteFile removes the file, cascading to identifier mappings, tags
	// and security rows.
	DeleteFile(ctx context.Context, id T) error

	// MoveFile moves the file under toParentID within this store.
	MoveFile(ctx context.Context, id T, toParentID T) (T, error)

	// CopyFile copies the file under toParentID within this store.
	CopyFile(ctx context.Context, id T, toParentID T) (*entry.File[T], error)

	// OpenReadStream opens the file's content for reading at offset.
	OpenReadStream(ctx context.Context, id T, offset int64) (io.ReadCloser, error)

	// IsExist reports whether a child with the title exists under folderID.
	IsExist(ctx context.Context, title string, folderID T) (bool, error)

	// MaxUploadSize returns the largest single upload the backend accepts,
	// or 0 for no limit.
	MaxUploadSize() int64

	// SupportsPreSignedURL reports whether PreSignedURL works on this
	// backend.
	SupportsPreSignedURL() bool

	// PreSignedURL returns a direct download URL valid for expires, or
	// ErrUnsupported.
	PreSignedURL(ctx context.Context, id T, expires time.Duration) (string, error)
}

// Store bundles both halves of the contract for one backend.
type Store[T entry.ID] interface {
	FolderStore[T]
	FileStore[T]
}
