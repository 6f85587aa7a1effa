package local

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/content"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/store"
)

// GetFolder returns the folder by id, or ErrNotFound.
func (s *Store) GetFolder(ctx context.Context, id int) (*entry.Folder[int], error) {
	n, err := s.db.GetNode(id, true)
	if err != nil {
		return nil, mapNodeErr(err, id)
	}
	files, folders, err := s.childCounts(id)
	if err != nil {
		return nil, err
	}
	return s.folderFromNode(n, files, folders), nil
}

// GetFolderByTitle returns the child folder with the given title, matched
// case-insensitively.
func (s *Store) GetFolderByTitle(ctx context.Context, parentID int, title string) (*entry.Folder[int], error) {
	children, err := s.db.ChildNodes(parentID)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if children[i].IsFolder && strings.EqualFold(children[i].Title, title) {
			return s.GetFolder(ctx, children[i].ID)
		}
	}
	return nil, store.NotFound(title)
}

// ListFolders returns the child folders of parentID after the filter
// pipeline and sort.
func (s *Store) ListFolders(ctx context.Context, parentID int, opts store.ListOptions) ([]*entry.Folder[int], error) {
	if opts.Filter.ExcludesFolders() {
		return nil, nil
	}
	children, err := s.db.ChildNodes(parentID)
	if err != nil {
		return nil, err
	}
	folders := make([]*entry.Folder[int], 0, len(children))
	for i := range children {
		if !children[i].IsFolder {
			continue
		}
		files, subfolders, err := s.childCounts(children[i].ID)
		if err != nil {
			return nil, err
		}
		folders = append(folders, s.folderFromNode(&children[i], files, subfolders))
	}
	folders = store.FilterFolders(folders, opts)
	store.SortFolders(folders, opts.OrderBy)
	return folders, nil
}

// GetFoldersByIDs fetches several folders; missing ids are skipped.
func (s *Store) GetFoldersByIDs(ctx context.Context, ids []int) ([]*entry.Folder[int], error) {
	folders := make([]*entry.Folder[int], 0, len(ids))
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

// GetParentFolders returns the chain from the tree root down to the folder
// itself, outermost first.
func (s *Store) GetParentFolders(ctx context.Context, id int) ([]*entry.Folder[int], error) {
	var chain []*entry.Folder[int]
	cur := id
	for cur != superRootID {
		f, err := s.GetFolder(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, f)
		cur = f.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// CreateFolder creates folder.Title under folder.ParentID, resolving title
// collisions. Returns the allocated id.
func (s *Store) CreateFolder(ctx context.Context, folder *entry.Folder[int]) (int, error) {
	if folder == nil || folder.Title == "" {
		return 0, store.InvalidArgument("folder title is required")
	}
	parent, err := s.db.GetNode(folder.ParentID, true)
	if err != nil {
		return 0, mapNodeErr(err, folder.ParentID)
	}

	title, err := s.availableTitle(parent.ID, folder.Title)
	if err != nil {
		return 0, err
	}
	id, err := s.db.NextID()
	if err != nil {
		return 0, err
	}

	t := s.now()
	createdBy := folder.CreatedBy
	if createdBy == uuid.Nil {
		createdBy = s.actor
	}
	err = s.db.PutNode(localdb.Node{
		ID:         id,
		ParentID:   parent.ID,
		Title:      title,
		IsFolder:   true,
		CreatedBy:  createdBy,
		CreatedOn:  t,
		ModifiedBy: createdBy,
		ModifiedOn: t,
		RootType:   parent.RootType,
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RenameFolder renames the folder, resolving collisions. Internal ids are
// stable, so the id comes back unchanged.
func (s *Store) RenameFolder(ctx context.Context, id int, newTitle string) (int, error) {
	n, err := s.db.GetNode(id, true)
	if err != nil {
		return 0, mapNodeErr(err, id)
	}
	if n.ParentID == superRootID {
		return 0, store.InvalidArgument("cannot rename a tree root")
	}

	title, err := s.availableTitle(n.ParentID, newTitle)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.RenameNode(id, true, title, s.actor, s.now()); err != nil {
		return 0, mapNodeErr(err, id)
	}
	return id, nil
}

// DeleteFolder removes the folder and every descendant. Node, tag and
// security rows go in one transaction; content blobs are deleted afterwards
// and failures there are logged, not surfaced.
func (s *Store) DeleteFolder(ctx context.Context, id int) error {
	n, err := s.db.GetNode(id, true)
	if err != nil {
		return mapNodeErr(err, id)
	}
	if n.ParentID == superRootID {
		return store.InvalidArgument("cannot delete a tree root")
	}

	nodes, err := s.subtree(*n)
	if err != nil {
		return err
	}
	if err := s.db.DeleteNodes(nodes); err != nil {
		return err
	}
	ids := make([]string, len(nodes))
	for i := range nodes {
		ids[i] = strconv.Itoa(nodes[i].ID)
	}
	if err := s.db.CascadeDeleteEntries(ids...); err != nil {
		return err
	}
	for i := range nodes {
		if nodes[i].IsFolder || nodes[i].ContentID == "" {
			continue
		}
		if err := s.content.Delete(ctx, content.ContentID(nodes[i].ContentID)); err != nil {
			logger.Warn("internal store: deleting content %s failed: %v", nodes[i].ContentID, err)
		}
	}
	return nil
}

// MoveFolder moves the folder under toParentID within this store.
func (s *Store) MoveFolder(ctx context.Context, id int, toParentID int) (int, error) {
	n, err := s.db.GetNode(id, true)
	if err != nil {
		return 0, mapNodeErr(err, id)
	}
	if n.ParentID == superRootID {
		return 0, store.InvalidArgument("cannot move a tree root")
	}
	if _, err := s.db.GetNode(toParentID, true); err != nil {
		return 0, mapNodeErr(err, toParentID)
	}
	if err := s.checkCycle(id, toParentID); err != nil {
		return 0, err
	}

	title, err := s.availableTitle(toParentID, n.Title)
	if err != nil {
		return 0, err
	}
	if title != n.Title {
		if _, err := s.db.RenameNode(id, true, title, s.actor, s.now()); err != nil {
			return 0, mapNodeErr(err, id)
		}
	}
	if _, err := s.db.MoveNode(id, true, toParentID, s.actor, s.now()); err != nil {
		return 0, mapNodeErr(err, id)
	}
	return id, nil
}

// checkCycle rejects moving a folder under itself or a descendant.
func (s *Store) checkCycle(id, toParentID int) error {
	cur := toParentID
	for cur != superRootID {
		if cur == id {
			return store.Conflict("cannot move folder %d into its own subtree", id)
		}
		n, err := s.db.GetNode(cur, true)
		if err != nil {
			return mapNodeErr(err, cur)
		}
		cur = n.ParentID
	}
	return nil
}

// CopyFolder copies the folder and its contents under toParentID. Tags and
// shares do not follow the copy.
func (s *Store) CopyFolder(ctx context.Context, id int, toParentID int) (*entry.Folder[int], error) {
	n, err := s.db.GetNode(id, true)
	if err != nil {
		return nil, mapNodeErr(err, id)
	}
	if _, err := s.db.GetNode(toParentID, true); err != nil {
		return nil, mapNodeErr(err, toParentID)
	}
	if err := s.checkCycle(id, toParentID); err != nil {
		return nil, err
	}

	newID, err := s.copyNode(ctx, *n, toParentID)
	if err != nil {
		return nil, err
	}
	return s.GetFolder(ctx, newID)
}

// copyNode duplicates one node under toParentID, recursing into folders.
func (s *Store) copyNode(ctx context.Context, n localdb.Node, toParentID int) (int, error) {
	title, err := s.availableTitle(toParentID, n.Title)
	if err != nil {
		return 0, err
	}
	newID, err := s.db.NextID()
	if err != nil {
		return 0, err
	}

	dup := n
	dup.ID = newID
	dup.ParentID = toParentID
	dup.Title = title
	dup.CreatedBy = s.actor
	dup.CreatedOn = s.now()
	dup.ModifiedBy = s.actor
	dup.ModifiedOn = dup.CreatedOn

	if !n.IsFolder && n.ContentID != "" {
		newContentID, err := s.copyContent(ctx, n.ContentID)
		if err != nil {
			return 0, err
		}
		dup.ContentID = newContentID
	}
	if err := s.db.PutNode(dup); err != nil {
		return 0, err
	}
	if !n.IsFolder {
		return newID, nil
	}

	children, err := s.db.ChildNodes(n.ID)
	if err != nil {
		return 0, err
	}
	for i := range children {
		if _, err := s.copyNode(ctx, children[i], newID); err != nil {
			return 0, err
		}
	}
	return newID, nil
}

// IsExist reports whether any child with the title exists under folderID.
func (s *Store) IsExist(ctx context.Context, title string, folderID int) (bool, error) {
	children, err := s.db.ChildNodes(folderID)
	if err != nil {
		return false, err
	}
	for i := range children {
		if strings.EqualFold(children[i].Title, title) {
			return true, nil
		}
	}
	return false, nil
}

// IsEmpty reports whether the folder has no children.
func (s *Store) IsEmpty(ctx context.Context, id int) (bool, error) {
	n, err := s.ItemsCount(ctx, id)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// ItemsCount returns the number of immediate children.
func (s *Store) ItemsCount(ctx context.Context, id int) (int, error) {
	if _, err := s.db.GetNode(id, true); err != nil {
		return 0, mapNodeErr(err, id)
	}
	children, err := s.db.ChildNodes(id)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}
