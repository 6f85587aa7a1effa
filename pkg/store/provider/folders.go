package provider

import (
	"context"
	stdpath "path"
	"strings"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/store"
)

var _ store.Store[string] = (*Store)(nil)

// GetFolder returns the folder by id, or ErrNotFound.
func (s *Store) GetFolder(ctx context.Context, id string) (*entry.Folder[string], error) {
	path, err := s.parsePath(id)
	if err != nil {
		return nil, err
	}
	it, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	if !it.IsFolder {
		return nil, store.NotFound(id)
	}
	return s.folderFromItem(it), nil
}

// GetFolderByTitle returns the child folder with the given title, matched
// case-insensitively.
func (s *Store) GetFolderByTitle(ctx context.Context, parentID string, title string) (*entry.Folder[string], error) {
	parent, err := s.parsePath(parentID)
	if err != nil {
		return nil, err
	}
	items, err := s.client.List(ctx, parent)
	if err != nil {
		return nil, s.mapError(err, parentID)
	}
	for i := range items {
		if items[i].IsFolder && strings.EqualFold(items[i].Name, title) {
			return s.folderFromItem(&items[i]), nil
		}
	}
	return nil, store.NotFound(s.MakeID(stdpath.Join(parent, title)))
}

// ListFolders returns the child folders of parentID after the filter
// pipeline and sort.
func (s *Store) ListFolders(ctx context.Context, parentID string, opts store.ListOptions) ([]*entry.Folder[string], error) {
	if opts.Filter.ExcludesFolders() {
		return nil, nil
	}
	parent, err := s.parsePath(parentID)
	if err != nil {
		return nil, err
	}
	items, err := s.client.List(ctx, parent)
	if err != nil {
		return nil, s.mapError(err, parentID)
	}
	folders := make([]*entry.Folder[string], 0, len(items))
	for i := range items {
		if items[i].IsFolder {
			folders = append(folders, s.folderFromItem(&items[i]))
		}
	}
	folders = store.FilterFolders(folders, opts)
	store.SortFolders(folders, opts.OrderBy)
	return folders, nil
}

// GetFoldersByIDs fetches several folders; ids that resolve to nothing are
// skipped rather than failing the batch.
func (s *Store) GetFoldersByIDs(ctx context.Context, ids []string) ([]*entry.Folder[string], error) {
	folders := make([]*entry.Folder[string], 0, len(ids))
	for _, id := range ids {
		f, err := s.GetFolder(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, nil
}

// GetParentFolders returns the chain from the provider root down to the
// folder itself, outermost first.
func (s *Store) GetParentFolders(ctx context.Context, id string) ([]*entry.Folder[string], error) {
	path, err := s.parsePath(id)
	if err != nil {
		return nil, err
	}

	paths := []string{"/"}
	if path != "/" {
		segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
		cur := ""
		for _, seg := range segments {
			cur = cur + "/" + seg
			paths = append(paths, cur)
		}
	}

	chain := make([]*entry.Folder[string], 0, len(paths))
	for _, p := range paths {
		f, err := s.GetFolder(ctx, s.MakeID(p))
		if err != nil {
			return nil, err
		}
		chain = append(chain, f)
	}
	return chain, nil
}

// CreateFolder creates folder.Title under folder.ParentID, resolving title
// collisions, and registers an identifier mapping for the new folder.
func (s *Store) CreateFolder(ctx context.Context, folder *entry.Folder[string]) (string, error) {
	if folder == nil || folder.Title == "" {
		return "", store.InvalidArgument("folder title is required")
	}
	parent, err := s.parsePath(folder.ParentID)
	if err != nil {
		return "", err
	}
	title, err := s.availableTitle(ctx, parent, folder.Title)
	if err != nil {
		return "", err
	}
	it, err := s.withTitleRetry(ctx, parent, title, func(title string) (*Item, error) {
		return s.client.CreateFolder(ctx, parent, title)
	})
	if err != nil {
		return "", s.mapError(err, s.MakeID(stdpath.Join(parent, title)))
	}
	id := s.MakeID(it.Path)
	if _, err := s.db.EnsureMapping(id); err != nil {
		return "", err
	}
	s.client.Reset(parent, it.Path)
	return id, nil
}

// RenameFolder renames the folder. Path-addressed identifiers change on
// rename; the mapping rewrite keeps hash ids for the whole subtree stable.
func (s *Store) RenameFolder(ctx context.Context, id string, newTitle string) (string, error) {
	path, err := s.parsePath(id)
	if err != nil {
		return "", err
	}
	if path == "/" {
		return "", store.InvalidArgument("cannot rename the provider root")
	}

	parent := parentPath(path)
	title, err := s.availableTitle(ctx, parent, newTitle)
	if err != nil {
		return "", err
	}
	it, err := s.client.Move(ctx, path, parent, title)
	if err != nil {
		return "", s.mapError(err, id)
	}
	newID := s.MakeID(it.Path)
	if err := s.db.UpdatePath(id, newID); err != nil {
		return "", err
	}
	s.client.Reset(path, parent, it.Path)
	return newID, nil
}

// DeleteFolder removes the folder and its subtree. Local bookkeeping (tags,
// security, mappings) is cascaded in one transaction first; the remote
// delete follows and its failure is logged, not surfaced.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	path, err := s.parsePath(id)
	if err != nil {
		return err
	}
	if path == "/" {
		return store.InvalidArgument("cannot delete the provider root")
	}

	if err := s.db.CascadeDelete(id); err != nil {
		return err
	}
	if err := s.client.Delete(ctx, path); err != nil {
		logger.Warn("provider %s: remote delete of %s failed: %v", s.key, path, err)
	}
	s.client.Reset(path, parentPath(path))
	return nil
}

// MoveFolder moves the folder under toParentID within this store.
func (s *Store) MoveFolder(ctx context.Context, id string, toParentID string) (string, error) {
	path, err := s.parsePath(id)
	if err != nil {
		return "", err
	}
	if path == "/" {
		return "", store.InvalidArgument("cannot move the provider root")
	}
	toParent, err := s.parsePath(toParentID)
	if err != nil {
		return "", err
	}
	if toParent == path || strings.HasPrefix(toParent, path+"/") {
		return "", store.Conflict("cannot move %s into its own subtree", id)
	}

	title, err := s.availableTitle(ctx, toParent, stdpath.Base(path))
	if err != nil {
		return "", err
	}
	it, err := s.client.Move(ctx, path, toParent, title)
	if err != nil {
		return "", s.mapError(err, id)
	}
	newID := s.MakeID(it.Path)
	if err := s.db.UpdatePath(id, newID); err != nil {
		return "", err
	}
	s.client.Reset(path, parentPath(path), toParent, it.Path)
	return newID, nil
}

// CopyFolder copies the folder under toParentID. Tags and shares do not
// follow a copy; the copy gets a fresh mapping.
func (s *Store) CopyFolder(ctx context.Context, id string, toParentID string) (*entry.Folder[string], error) {
	path, err := s.parsePath(id)
	if err != nil {
		return nil, err
	}
	toParent, err := s.parsePath(toParentID)
	if err != nil {
		return nil, err
	}
	if toParent == path || strings.HasPrefix(toParent, path+"/") {
		return nil, store.Conflict("cannot copy %s into its own subtree", id)
	}

	title, err := s.availableTitle(ctx, toParent, stdpath.Base(path))
	if err != nil {
		return nil, err
	}
	it, err := s.client.Copy(ctx, path, toParent, title)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	if _, err := s.db.EnsureMapping(s.MakeID(it.Path)); err != nil {
		return nil, err
	}
	s.client.Reset(toParent, it.Path)
	return s.folderFromItem(it), nil
}

// IsExist reports whether any child with the title exists under folderID.
func (s *Store) IsExist(ctx context.Context, title string, folderID string) (bool, error) {
	parent, err := s.parsePath(folderID)
	if err != nil {
		return false, err
	}
	items, err := s.client.List(ctx, parent)
	if err != nil {
		return false, s.mapError(err, folderID)
	}
	for i := range items {
		if strings.EqualFold(items[i].Name, title) {
			return true, nil
		}
	}
	return false, nil
}

// IsEmpty reports whether the folder has no children.
func (s *Store) IsEmpty(ctx context.Context, id string) (bool, error) {
	n, err := s.ItemsCount(ctx, id)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// ItemsCount returns the number of immediate children.
func (s *Store) ItemsCount(ctx context.Context, id string) (int, error) {
	path, err := s.parsePath(id)
	if err != nil {
		return 0, err
	}
	items, err := s.client.List(ctx, path)
	if err != nil {
		return 0, s.mapError(err, id)
	}
	return len(items), nil
}
