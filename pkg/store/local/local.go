// Package local implements the internal store: folders and files with
// numeric identifiers persisted in the local database, content held in a
// blob repository. This is the natively-hosted half of the filesystem; the
// federated half lives in the provider store.
package local

import (
	"context"
	"errors"
	"fmt"
	stdpath "path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/content"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/security"
	"github.com/driveio/fedfs/pkg/store"
)

// superRootID is the parent id of the tree roots. No folder has this id.
const superRootID = 0

// Store is the internal store. Identifiers are database-allocated ints and
// never change across rename or move.
type Store struct {
	db      *localdb.DB
	content content.Repository
	locker  security.Locker
	actor   uuid.UUID
	maxSize int64
	now     func() time.Time
}

// Options configures the internal store.
type Options struct {
	// DB is the local database holding node, tag and security rows.
	DB *localdb.DB

	// Content is the blob repository for file bytes.
	Content content.Repository

	// Locker guards files against edits by non-holders. Nil means no
	// locking.
	Locker security.Locker

	// Actor is the user mutations are attributed to and lock checks run
	// against.
	Actor uuid.UUID

	// MaxUploadSize caps single uploads, 0 for no limit.
	MaxUploadSize int64

	// Now overrides the clock. Tests use it for deterministic ordering.
	Now func() time.Time
}

// New builds an internal store from the options.
func New(opts Options) (*Store, error) {
	if opts.DB == nil {
		return nil, store.InvalidArgument("internal store: local database is required")
	}
	if opts.Content == nil {
		return nil, store.InvalidArgument("internal store: content repository is required")
	}
	locker := opts.Locker
	if locker == nil {
		locker = security.NoLocks{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		db:      opts.DB,
		content: opts.Content,
		locker:  locker,
		actor:   opts.Actor,
		maxSize: opts.MaxUploadSize,
		now:     now,
	}, nil
}

var _ store.Store[int] = (*Store)(nil)

// EnsureRoot returns the id of the tree root with the given type, creating
// it on first use. Roots are folders parented to the super-root.
func (s *Store) EnsureRoot(ctx context.Context, rootType entry.RootType, title string, owner uuid.UUID) (int, error) {
	children, err := s.db.ChildNodes(superRootID)
	if err != nil {
		return 0, err
	}
	for i := range children {
		if children[i].IsFolder && children[i].RootType == int(rootType) {
			return children[i].ID, nil
		}
	}

	id, err := s.db.NextID()
	if err != nil {
		return 0, err
	}
	t := s.now()
	err = s.db.PutNode(localdb.Node{
		ID:         id,
		ParentID:   superRootID,
		Title:      title,
		IsFolder:   true,
		CreatedBy:  owner,
		CreatedOn:  t,
		ModifiedBy: owner,
		ModifiedOn: t,
		RootType:   int(rootType),
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) folderFromNode(n *localdb.Node, files, folders int) *entry.Folder[int] {
	return &entry.Folder[int]{
		ID:       n.ID,
		ParentID: n.ParentID,
		Attributes: entry.Attributes{
			Title:      n.Title,
			CreatedBy:  n.CreatedBy,
			CreatedOn:  n.CreatedOn,
			ModifiedBy: n.ModifiedBy,
			ModifiedOn: n.ModifiedOn,
			RootType:   entry.RootType(n.RootType),
		},
		FolderInfo: entry.FolderInfo{
			FilesCount:   files,
			FoldersCount: folders,
		},
	}
}

func (s *Store) fileFromNode(n *localdb.Node) *entry.File[int] {
	return &entry.File[int]{
		ID:       n.ID,
		ParentID: n.ParentID,
		Attributes: entry.Attributes{
			Title:      n.Title,
			CreatedBy:  n.CreatedBy,
			CreatedOn:  n.CreatedOn,
			ModifiedBy: n.ModifiedBy,
			ModifiedOn: n.ModifiedOn,
			RootType:   entry.RootType(n.RootType),
		},
		FileInfo: entry.FileInfo{
			Version:       n.Version,
			ContentLength: n.ContentLength,
		},
	}
}

// childCounts counts the immediate children of a folder by kind.
func (s *Store) childCounts(parentID int) (files, folders int, err error) {
	children, err := s.db.ChildNodes(parentID)
	if err != nil {
		return 0, 0, err
	}
	for i := range children {
		if children[i].IsFolder {
			folders++
		} else {
			files++
		}
	}
	return files, folders, nil
}

// availableTitle resolves the " (n)" collision policy among the children of
// a folder.
func (s *Store) availableTitle(parentID int, title string) (string, error) {
	children, err := s.db.ChildNodes(parentID)
	if err != nil {
		return "", err
	}
	taken := make(map[string]struct{}, len(children))
	for i := range children {
		taken[strings.ToLower(children[i].Title)] = struct{}{}
	}
	if _, ok := taken[strings.ToLower(title)]; !ok {
		return title, nil
	}

	ext := stdpath.Ext(title)
	base := strings.TrimSuffix(title, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, ok := taken[strings.ToLower(candidate)]; !ok {
			return candidate, nil
		}
	}
}

func (s *Store) checkLock(ctx context.Context, id int) error {
	holder, err := s.locker.LockedForUser(ctx, entry.Internal(id), s.actor)
	if err != nil {
		return err
	}
	if holder != uuid.Nil && holder != s.actor {
		return store.Conflict("%s is locked by another user", entry.Internal(id).String())
	}
	return nil
}

func mapNodeErr(err error, id int) error {
	if errors.Is(err, localdb.ErrNodeNotFound) {
		return store.NotFound(entry.Internal(id).String())
	}
	return err
}

// subtree collects the folder's node and every descendant, parents before
// children.
func (s *Store) subtree(root localdb.Node) ([]localdb.Node, error) {
	out := []localdb.Node{root}
	if !root.IsFolder {
		return out, nil
	}
	queue := []int{root.ID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		children, err := s.db.ChildNodes(parent)
		if err != nil {
			return nil, err
		}
		for i := range children {
			out = append(out, children[i])
			if children[i].IsFolder {
				queue = append(queue, children[i].ID)
			}
		}
	}
	return out, nil
}
