// Package cross implements copy and move between stores of different
// identifier kinds: internal to federated, federated to internal, and
// between two federated accounts.
//
// Entries cannot be relocated in place across stores, so the engine
// re-creates them: folders depth-first, file content streamed from the
// source store into the destination store. A move deletes the source only
// after the whole subtree has been copied; a failure part-way leaves the
// destination partially populated and the source untouched beyond what was
// already deleted. There is no rollback.
package cross

import (
	"context"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/store"
)

// CopyFile copies one file from src into dst under toParentID. The
// destination store applies its own title collision policy; tags and shares
// do not follow the copy.
func CopyFile[S, D entry.ID](ctx context.Context, src store.Store[S], dst store.Store[D], id S, toParentID D) (*entry.File[D], error) {
	f, err := src.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := src.OpenReadStream(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out := &entry.File[D]{ParentID: toParentID}
	out.Title = f.Title
	out.CreatedBy = f.CreatedBy
	return dst.SaveFile(ctx, out, rc)
}

// MoveFile copies the file into dst, then deletes it from src with the
// usual cascade.
func MoveFile[S, D entry.ID](ctx context.Context, src store.Store[S], dst store.Store[D], id S, toParentID D) (*entry.File[D], error) {
	f, err := CopyFile(ctx, src, dst, id, toParentID)
	if err != nil {
		return nil, err
	}
	if err := src.DeleteFile(ctx, id); err != nil {
		return nil, err
	}
	return f, nil
}

// CopyFolder copies the folder and its whole subtree from src into dst
// under toParentID. Cancellation is honored between descendants, never in
// the middle of one file's stream.
func CopyFolder[S, D entry.ID](ctx context.Context, src store.Store[S], dst store.Store[D], id S, toParentID D) (*entry.Folder[D], error) {
	f, err := src.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}

	newFolder := &entry.Folder[D]{ParentID: toParentID}
	newFolder.Title = f.Title
	newFolder.CreatedBy = f.CreatedBy
	newID, err := dst.CreateFolder(ctx, newFolder)
	if err != nil {
		return nil, err
	}

	if err := copyChildren(ctx, src, dst, id, newID); err != nil {
		return nil, err
	}
	return dst.GetFolder(ctx, newID)
}

func copyChildren[S, D entry.ID](ctx context.Context, src store.Store[S], dst store.Store[D], fromID S, toID D) error {
	files, err := src.ListFiles(ctx, fromID, store.ListOptions{})
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return store.Cancelled("cross-store copy")
		}
		if _, err := CopyFile(ctx, src, dst, f.ID, toID); err != nil {
			return err
		}
	}

	folders, err := src.ListFolders(ctx, fromID, store.ListOptions{})
	if err != nil {
		return err
	}
	for _, sub := range folders {
		if err := ctx.Err(); err != nil {
			return store.Cancelled("cross-store copy")
		}
		newSub := &entry.Folder[D]{ParentID: toID}
		newSub.Title = sub.Title
		newSub.CreatedBy = sub.CreatedBy
		newSubID, err := dst.CreateFolder(ctx, newSub)
		if err != nil {
			return err
		}
		if err := copyChildren(ctx, src, dst, sub.ID, newSubID); err != nil {
			return err
		}
	}
	return nil
}

// MoveFolder copies the subtree into dst, then removes the source
// post-order: files before their folder, innermost folders first, the moved
// folder itself last. Deletion starts only after the copy has fully
// succeeded, so an interruption can duplicate data but never lose it.
func MoveFolder[S, D entry.ID](ctx context.Context, src store.Store[S], dst store.Store[D], id S, toParentID D) (*entry.Folder[D], error) {
	f, err := CopyFolder(ctx, src, dst, id, toParentID)
	if err != nil {
		return nil, err
	}
	if err := deleteChildren(ctx, src, id); err != nil {
		return nil, err
	}
	if err := src.DeleteFolder(ctx, id); err != nil {
		return nil, err
	}
	return f, nil
}

// deleteChildren empties a folder post-order: its files, then each
// subfolder after its own contents. Cancellation is honored between
// descendants.
func deleteChildren[S entry.ID](ctx context.Context, src store.Store[S], id S) error {
	files, err := src.ListFiles(ctx, id, store.ListOptions{})
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return store.Cancelled("cross-store move")
		}
		if err := src.DeleteFile(ctx, f.ID); err != nil {
			return err
		}
	}

	folders, err := src.ListFolders(ctx, id, store.ListOptions{})
	if err != nil {
		return err
	}
	for _, sub := range folders {
		if err := ctx.Err(); err != nil {
			return store.Cancelled("cross-store move")
		}
		if err := deleteChildren(ctx, src, sub.ID); err != nil {
			return err
		}
		if err := src.DeleteFolder(ctx, sub.ID); err != nil {
			return err
		}
	}
	return nil
}
