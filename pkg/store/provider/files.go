package provider

import (
	"context"
	"io"
	stdpath "path"
	"strings"
	"time"

	"github.com/driveio/fedfs/internal/logger"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/store"
)

// GetFile returns the file by id, or ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id string) (*entry.File[string], error) {
	path, err := s.parsePath(id)
	if err != nil {
		return nil, err
	}
	it, err := s.client.Get(ctx, path)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	if it.IsFolder {
		return nil, store.NotFound(id)
	}
	return s.fileFromItem(it), nil
}

// GetFileByTitle returns the child file with the given title, matched
// case-insensitively.
func (s *Store) GetFileByTitle(ctx context.Context, parentID string, title string) (*entry.File[string], error) {
	parent, err := s.parsePath(parentID)
	if err != nil {
		return nil, err
	}
	items, err := s.client.List(ctx, parent)
	if err != nil {
		return nil, s.mapError(err, parentID)
	}
	for i := range items {
		if !items[i].IsFolder && strings.EqualFold(items[i].Name, title) {
			return s.fileFromItem(&items[i]), nil
		}
	}
	return nil, store.NotFound(s.MakeID(stdpath.Join(parent, title)))
}

// ListFiles returns the child files of parentID after the filter pipeline
// and sort.
func (s *Store) ListFiles(ctx context.Context, parentID string, opts store.ListOptions) ([]*entry.File[string], error) {
	if opts.Filter == entry.FilterFoldersOnly {
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
	files := make([]*entry.File[string], 0, len(items))
	for i := range items {
		if !items[i].IsFolder {
			files = append(files, s.fileFromItem(&items[i]))
		}
	}
	files = store.FilterFiles(files, opts)
	store.SortFiles(files, opts.OrderBy)
	return files, nil
}

// GetFilesByIDs fetches several files; missing ids are skipped.
func (s *Store) GetFilesByIDs(ctx context.Context, ids []string) ([]*entry.File[string], error) {
	files := make([]*entry.File[string], 0, len(ids))
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
// without sorting. Tag-driven views preserve their own order.
func (s *Store) GetFilesFiltered(ctx context.Context, ids []string, opts store.ListOptions) ([]*entry.File[string], error) {
	files, err := s.GetFilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return store.FilterFiles(files, opts), nil
}

// SaveFile writes stream as the file's content: overwrite when file.ID is
// set, create under file.ParentID otherwise.
func (s *Store) SaveFile(ctx context.Context, file *entry.File[string], stream io.Reader) (*entry.File[string], error) {
	if file == nil {
		return nil, store.InvalidArgument("file is required")
	}

	if file.ID != "" {
		path, err := s.parsePath(file.ID)
		if err != nil {
			return nil, err
		}
		if err := s.checkLock(ctx, file.ID); err != nil {
			return nil, err
		}
		it, err := s.client.SaveStream(ctx, path, stream)
		if err != nil {
			return nil, s.mapError(err, file.ID)
		}
		s.client.Reset(path, parentPath(path))
		return s.fileFromItem(it), nil
	}

	if file.Title == "" {
		return nil, store.InvalidArgument("file title is required")
	}
	parent, err := s.parsePath(file.ParentID)
	if err != nil {
		return nil, err
	}
	title, err := s.availableTitle(ctx, parent, file.Title)
	if err != nil {
		return nil, err
	}
	it, err := s.withTitleRetry(ctx, parent, title, func(title string) (*Item, error) {
		return s.client.CreateFile(ctx, parent, title, stream)
	})
	if err != nil {
		return nil, s.mapError(err, s.MakeID(stdpath.Join(parent, title)))
	}
	if _, err := s.db.EnsureMapping(s.MakeID(it.Path)); err != nil {
		return nil, err
	}
	s.client.Reset(parent, it.Path)
	return s.fileFromItem(it), nil
}

// RenameFile renames the file. The identifier changes with the path; the
// mapping rewrite keeps the hash id stable.
func (s *Store) RenameFile(ctx context.Context, id string, newTitle string) (string, error) {
	path, err := s.parsePath(id)
	if err != nil {
		return "", err
	}
	if err := s.checkLock(ctx, id); err != nil {
		return "", err
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

// DeleteFile removes the file. Local rows are cascaded first; the remote
// delete follows and its failure is logged, not surfaced.
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	path, err := s.parsePath(id)
	if err != nil {
		return err
	}
	if err := s.checkLock(ctx, id); err != nil {
		return err
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

// MoveFile moves the file under toParentID within this store.
func (s *Store) MoveFile(ctx context.Context, id string, toParentID string) (string, error) {
	path, err := s.parsePath(id)
	if err != nil {
		return "", err
	}
	toParent, err := s.parsePath(toParentID)
	if err != nil {
		return "", err
	}
	if err := s.checkLock(ctx, id); err != nil {
		return "", err
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

// CopyFile copies the file under toParentID. Tags do not follow the copy.
func (s *Store) CopyFile(ctx context.Context, id string, toParentID string) (*entry.File[string], error) {
	path, err := s.parsePath(id)
	if err != nil {
		return nil, err
	}
	toParent, err := s.parsePath(toParentID)
	if err != nil {
		return nil, err
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
	return s.fileFromItem(it), nil
}

// OpenReadStream opens the file content for reading at offset.
func (s *Store) OpenReadStream(ctx context.Context, id string, offset int64) (io.ReadCloser, error) {
	path, err := s.parsePath(id)
	if err != nil {
		return nil, err
	}
	rc, err := s.client.OpenDownload(ctx, path, offset)
	if err != nil {
		return nil, s.mapError(err, id)
	}
	return rc, nil
}

// MaxUploadSize returns the backend's single-upload limit, 0 for none.
func (s *Store) MaxUploadSize() int64 {
	return s.raw.MaxUploadSize()
}

// SupportsPreSignedURL reports whether the backend can mint direct download
// URLs.
func (s *Store) SupportsPreSignedURL() bool {
	_, ok := s.raw.(PreSigner)
	return ok
}

// PreSignedURL returns a direct download URL valid for expires.
func (s *Store) PreSignedURL(ctx context.Context, id string, expires time.Duration) (string, error) {
	ps, ok := s.raw.(PreSigner)
	if !ok {
		return "", store.Unsupported("presigned url")
	}
	path, err := s.parsePath(id)
	if err != nil {
		return "", err
	}
	url, err := ps.PreSignedURL(ctx, path, expires)
	if err != nil {
		return "", s.mapError(err, id)
	}
	return url, nil
}
