package local

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/content"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/store"
)

// GetFile returns the file by id, or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id int) (*entry.File[int], error) {
	n, err := s.db.GetNode(id, false)
	if err != nil {
		return nil, mapNodeErr(err, id)
	}
	return s.fileFromNode(n), nil
}

// GetFileByTitle returns the child file with the given title, matched
// case-insensitively.
func (s *Store) GetFileByTitle(ctx context.Context, parentID int, title string) (*entry.File[int], error) {
	children, err := s.db.ChildNodes(parentID)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if !children[i].IsFolder && strings.EqualFold(children[i].Title, title) {
			return s.fileFromNode(&children[i]), nil
		}
	}
	return nil, store.NotFound(title)
}

// ListFiles returns the child files of parentID after the filter pipeline
// and sort.
func (s *Store) ListFiles(ctx context.Context, parentID int, opts store.ListOptions) ([]*entry.File[int], error) {
	if opts.Filter == entry.FilterFoldersOnly {
		return nil, nil
	}
	children, err := s.db.ChildNodes(parentID)
	if err != nil {
		return nil, err
	}
	files := make([]*entry.File[int], 0, len(children))
	for i := range children {
		if !children[i].IsFolder {
			files = append(files, s.fileFromNode(&children[i]))
		}
	}
	files = store.FilterFiles(files, opts)
	store.SortFiles(files, opts.OrderBy)
	return files, nil
}

// GetFilesByIDs fetches several files; missing ids are skipped.
func (s *Store) GetFilesByIDs(ctx context.Context, ids []int) ([]*entry.File[int], error) {
	files := make([]*entry.File[int], 0, len(ids))
	for _, id := range ids {
		f, err := s.GetFile(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// GetFilesFiltered fetches several files and applies the filter pipeline
// without sorting.
func (s *Store) GetFilesFiltered(ctx context.Context, ids []int, opts store.ListOptions) ([]*entry.File[int], error) {
	files, err := s.GetFilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return store.FilterFiles(files, opts), nil
}

// SaveFile writes stream as the file's content: overwrite when file.ID is
// set, create under file.ParentID otherwise. Overwrites bump the version and
// reuse the content id.
func (s *Store) SaveFile(ctx context.Context, file *entry.File[int], stream io.Reader) (*entry.File[int], error) {
	if file == nil {
		return nil, store.InvalidArgument("file is required")
	}

	if file.ID != 0 {
		n, err := s.db.GetNode(file.ID, false)
		if err != nil {
			return nil, mapNodeErr(err, file.ID)
		}
		if err := s.checkLock(ctx, file.ID); err != nil {
			return nil, err
		}
		written, err := s.content.Save(ctx, content.ContentID(n.ContentID), stream)
		if err != nil {
			return nil, err
		}
		n.ContentLength = written
		n.Version++
		n.ModifiedBy = s.actor
		n.ModifiedOn = s.now()
		if err := s.db.PutNode(*n); err != nil {
			return nil, err
		}
		return s.fileFromNode(n), nil
	}

	if file.Title == "" {
		return nil, store.InvalidArgument("file title is required")
	}
	parent, err := s.db.GetNode(file.ParentID, true)
	if err != nil {
		return nil, mapNodeErr(err, file.ParentID)
	}

	title, err := s.availableTitle(parent.ID, file.Title)
	if err != nil {
		return nil, err
	}
	id, err := s.db.NextID()
	if err != nil {
		return nil, err
	}
	contentID := uuid.NewString()
	written, err := s.content.Save(ctx, content.ContentID(contentID), stream)
	if err != nil {
		return nil, err
	}

	t := s.now()
	createdBy := file.CreatedBy
	if createdBy == uuid.Nil {
		createdBy = s.actor
	}
	n := localdb.Node{
		ID:            id,
		ParentID:      parent.ID,
		Title:         title,
		CreatedBy:     createdBy,
		CreatedOn:     t,
		ModifiedBy:    createdBy,
		ModifiedOn:    t,
		RootType:      parent.RootType,
		Version:       1,
		ContentLength: written,
		ContentID:     contentID,
	}
	if err := s.db.PutNode(n); err != nil {
		return nil, err
	}
	return s.fileFromNode(&n), nil
}

// RenameFile renames the file, resolving collisions. The id is stable.
func (s *Store) RenameFile(ctx context.Context, id int, newTitle string) (int, error) {
	n, err := s.db.GetNode(id, false)
	if err != nil {
		return 0, mapNodeErr(err, id)
	}
	if err := s.checkLock(ctx, id); err != nil {
		return 0, err
	}

	title, err := s.availableTitle(n.ParentID, newTitle)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.RenameNode(id, false, title, s.actor, s.now()); err != nil {
		return 0, mapNodeErr(err, id)
	}
	return id, nil
}

// DeleteFile removes the file with its tag and security rows, then its
// content blob.
func (s *Store) DeleteFile(ctx context.Context, id int) error {
	n, err := s.db.GetNode(id, false)
	if err != nil {
		return mapNodeErr(err, id)
	}
	if err := s.checkLock(ctx, id); err != nil {
		return err
	}

	if err := s.db.DeleteNodes([]localdb.Node{*n}); err != nil {
		return err
	}
	if err := s.db.CascadeDeleteEntries(strconv.Itoa(id)); err != nil {
		return err
	}
	if n.ContentID != "" {
		if err := s.content.Delete(ctx, content.ContentID(n.ContentID)); err != nil {
			return err
		}
	}
	return nil
}

// MoveFile moves the file under toParentID within this store.
func (s *Store) MoveFile(ctx context.Context, id int, toParentID int) (int, error) {
	n, err := s.db.GetNode(id, false)
	if err != nil {
		return 0, mapNodeErr(err, id)
	}
	if _, err := s.db.GetNode(toParentID, true); err != nil {
		return 0, mapNodeErr(err, toParentID)
	}
	if err := s.checkLock(ctx, id); err != nil {
		return 0, err
	}

	title, err := s.availableTitle(toParentID, n.Title)
	if err != nil {
		return 0, err
	}
	if title != n.Title {
		if _, err := s.db.RenameNode(id, false, title, s.actor, s.now()); err != nil {
			return 0, mapNodeErr(err, id)
		}
	}
	if _, err := s.db.MoveNode(id, false, toParentID, s.actor, s.now()); err != nil {
		return 0, mapNodeErr(err, id)
	}
	return id, nil
}

// CopyFile copies the file under toParentID, duplicating its content blob.
func (s *Store) CopyFile(ctx context.Context, id int, toParentID int) (*entry.File[int], error) {
	n, err := s.db.GetNode(id, false)
	if err != nil {
		return nil, mapNodeErr(err, id)
	}
	if _, err := s.db.GetNode(toParentID, true); err != nil {
		return nil, mapNodeErr(err, toParentID)
	}

	newID, err := s.copyNode(ctx, *n, toParentID)
	if err != nil {
		return nil, err
	}
	return s.GetFile(ctx, newID)
}

// copyContent duplicates a blob and returns the new content id.
func (s *Store) copyContent(ctx context.Context, contentID string) (string, error) {
	rc, err := s.content.Open(ctx, content.ContentID(contentID), 0)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	newID := uuid.NewString()
	if _, err := s.content.Save(ctx, content.ContentID(newID), rc); err != nil {
		return "", err
	}
	return newID, nil
}

// OpenReadStream opens the file's content for reading at offset.
func (s *Store) OpenReadStream(ctx context.Context, id int, offset int64) (io.ReadCloser, error) {
	n, err := s.db.GetNode(id, false)
	if err != nil {
		return nil, mapNodeErr(err, id)
	}
	return s.content.Open(ctx, content.ContentID(n.ContentID), offset)
}

// MaxUploadSize returns the configured single-upload cap, 0 for none.
func (s *Store) MaxUploadSize() int64 { return s.maxSize }

// SupportsPreSignedURL reports false: internal content is served through the
// repository, never by direct URL.
func (s *Store) SupportsPreSignedURL() bool { return false }

// PreSignedURL always returns ErrUnsupported.
func (s *Store) PreSignedURL(ctx context.Context, id int, expires time.Duration) (string, error) {
	return "", store.Unsupported("presigned url")
}
