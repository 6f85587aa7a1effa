// Package entry defines the data model of the federated virtual filesystem:
// folders and files generic over their identifier kind, the boundary Entry
// view used where results from stores of different kinds are merged, and the
// ordering and file-type vocabulary shared by every store.
package entry

import (
	"time"

	"github.com/google/uuid"
)

// RootType classifies the tree an entry ultimately hangs off.
type RootType int

const (
	RootUser RootType = iota
	RootCommon
	RootShare
	RootTrash
	RootRecent
	RootFavorites
	RootTemplates
	RootPrivacy
	RootVirtualRooms
	RootBunch
	RootProjects
)

// String returns the lowercase name of the root type.
func (r RootType) String() string {
	switch r {
	case RootUser:
		return "user"
	case RootCommon:
		return "common"
	case RootShare:
		return "share"
	case RootTrash:
		return "trash"
	case RootRecent:
		return "recent"
	case RootFavorites:
		return "favorites"
	case RootTemplates:
		return "templates"
	case RootPrivacy:
		return "privacy"
	case RootVirtualRooms:
		return "virtualrooms"
	case RootBunch:
		return "bunch"
	case RootProjects:
		return "projects"
	default:
		return "unknown"
	}
}

// Forcesave controls who forced the last save of a file.
type Forcesave int

const (
	ForcesaveNone Forcesave = iota
	ForcesaveUser
	ForcesaveSystem
)

// ThumbnailStatus tracks thumbnail generation for a file.
type ThumbnailStatus int

const (
	ThumbnailWaiting ThumbnailStatus = iota
	ThumbnailCreated
	ThumbnailError
	ThumbnailNotRequired
)

// Attributes holds the fields common to folders and files.
type Attributes struct {
	Title      string
	CreatedBy  uuid.UUID
	CreatedOn  time.Time
	ModifiedBy uuid.UUID
	ModifiedOn time.Time
	RootType   RootType

	// ProviderEntry is true when the entry lives in a federated store.
	ProviderEntry bool
	ProviderID    int
	ProviderKey   string
}

// FolderInfo holds the folder-specific fields.
type FolderInfo struct {
	FilesCount   int
	FoldersCount int
	Pinned       bool
	Shared       bool
	IsFavorite   bool

	// RootStub marks a synthetic provider-root folder constructed purely
	// from registration metadata. Stub folders are read-only and never
	// trigger a remote call while listing.
	RootStub bool
}

// FileInfo holds the file-specific fields.
type FileInfo struct {
	Version       int
	VersionGroup  int
	ContentLength int64
	ConvertedType string
	Encrypted     bool
	Thumbnail     ThumbnailStatus
	Forcesave     Forcesave
	IsFavorite    bool
	IsTemplate    bool
	Locked        bool
	LockedBy      uuid.UUID
	IsNew         bool
}

// Folder is a directory node addressed by a store-native identifier.
type Folder[T ID] struct {
	ID       T
	ParentID T
	Attributes
	FolderInfo
}

// File is a file node addressed by a store-native identifier.
type File[T ID] struct {
	ID       T
	ParentID T
	Attributes
	FileInfo
}

// Entry is the boundary view of a folder or file once it has left its owning
// store. Exactly one of Folder and File is non-nil. Identifier typing is
// erased into Refs so listings merged from stores of different kinds stay
// uniform.
type Entry struct {
	Ref       Ref
	ParentRef Ref
	Attributes
	Folder *FolderInfo
	File   *FileInfo
}

// IsFolder reports whether the entry is a folder.
func (e *Entry) IsFolder() bool {
	return e.Folder != nil
}

// AsEntry converts a typed folder into the boundary view.
// The FolderInfo is copied so overlay mutations never write back into store
// caches.
func (f *Folder[T]) AsEntry() *Entry {
	info := f.FolderInfo
	return &Entry{
		Ref:        RefOf(f.ID),
		ParentRef:  RefOf(f.ParentID),
		Attributes: f.Attributes,
		Folder:     &info,
	}
}

// AsEntry converts a typed file into the boundary view.
func (f *File[T]) AsEntry() *Entry {
	info := f.FileInfo
	return &Entry{
		Ref:        RefOf(f.ID),
		ParentRef:  RefOf(f.ParentID),
		Attributes: f.Attributes,
		File:       &info,
	}
}
