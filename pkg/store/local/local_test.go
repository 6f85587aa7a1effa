package local_test

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"

	contentmem "github.com/driveio/fedfs/pkg/content/memory"
	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/store"
	"github.com/driveio/fedfs/pkg/store/local"
)

// createTestStore wires an internal store over an in-memory database and
// blob repository, released when the test ends.
func createTestStore(t *testing.T) (*local.Store, *contentmem.Repository, uuid.UUID) {
	t.Helper()

	db, err := localdb.Open(localdb.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	repo := contentmem.New()
	actor := uuid.New()
	s, err := local.New(local.Options{DB: db, Content: repo, Actor: actor})
	if err != nil {
		t.Fatalf("Failed to build internal store: %v", err)
	}
	return s, repo, actor
}

func createTestRoot(t *testing.T, s *local.Store, owner uuid.UUID) int {
	t.Helper()
	id, err := s.EnsureRoot(context.Background(), entry.RootUser, "My Documents", owner)
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	return id
}

func createTestFolder(t *testing.T, s *local.Store, parentID int, title string) int {
	t.Helper()
	id, err := s.CreateFolder(context.Background(), &entry.Folder[int]{
		ParentID:   parentID,
		Attributes: entry.Attributes{Title: title},
	})
	if err != nil {
		t.Fatalf("Failed to create folder %q: %v", title, err)
	}
	return id
}

func createTestFile(t *testing.T, s *local.Store, parentID int, title, body string) *entry.File[int] {
	t.Helper()
	f, err := s.SaveFile(context.Background(), &entry.File[int]{
		ParentID:   parentID,
		Attributes: entry.Attributes{Title: title},
	}, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create file %q: %v", title, err)
	}
	return f
}

func TestEnsureRoot_Idempotent(t *testing.T) {
	s, _, actor := createTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureRoot(ctx, entry.RootTrash, "Trash", actor)
	if err != nil {
		t.Fatalf("EnsureRoot failed: %v", err)
	}
	second, err := s.EnsureRoot(ctx, entry.RootTrash, "Trash", actor)
	if err != nil {
		t.Fatalf("Second EnsureRoot failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected the same root id on repeat, got %d and %d", first, second)
	}

	other, err := s.EnsureRoot(ctx, entry.RootCommon, "Common", actor)
	if err != nil {
		t.Fatalf("EnsureRoot for a second tree failed: %v", err)
	}
	if other == first {
		t.Error("Expected distinct roots per tree type")
	}
}

func TestCreateFolder_InheritsRootType(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)

	id := createTestFolder(t, s, root, "docs")
	f, err := s.GetFolder(context.Background(), id)
	if err != nil {
		t.Fatalf("GetFolder failed: %v", err)
	}
	if f.RootType != entry.RootUser {
		t.Errorf("Expected the folder to inherit RootUser, got %v", f.RootType)
	}
	if f.ParentID != root {
		t.Errorf("Expected parent %d, got %d", root, f.ParentID)
	}
}

func TestCreateFolder_CollisionSuffix(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	createTestFolder(t, s, root, "Reports")
	second := createTestFolder(t, s, root, "reports")

	f, err := s.GetFolder(ctx, second)
	if err != nil {
		t.Fatalf("GetFolder failed: %v", err)
	}
	if f.Title != "reports (1)" {
		t.Errorf("Expected collision suffix, got %q", f.Title)
	}
}

func TestSaveFile_CreateAndOverwrite(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	f := createTestFile(t, s, root, "notes.txt", "first")
	if f.Version != 1 {
		t.Errorf("Expected version 1, got %d", f.Version)
	}
	if f.ContentLength != int64(len("first")) {
		t.Errorf("Expected length %d, got %d", len("first"), f.ContentLength)
	}

	updated, err := s.SaveFile(ctx, &entry.File[int]{ID: f.ID}, strings.NewReader("second body"))
	if err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	if updated.ID != f.ID {
		t.Errorf("Expected the id to survive overwrite, got %d", updated.ID)
	}
	if updated.Version != 2 {
		t.Errorf("Expected version bump to 2, got %d", updated.Version)
	}

	rc, err := s.OpenReadStream(ctx, f.ID, 0)
	if err != nil {
		t.Fatalf("OpenReadStream failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "second body" {
		t.Errorf("Expected overwritten content, got %q", data)
	}
}

func TestSaveFile_TitleCollision(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)

	createTestFile(t, s, root, "report.docx", "a")
	second := createTestFile(t, s, root, "report.docx", "b")
	if second.Title != "report (1).docx" {
		t.Errorf("Expected suffix before the extension, got %q", second.Title)
	}
}

func TestRenameFile_StableID(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	f := createTestFile(t, s, root, "draft.txt", "x")
	id, err := s.RenameFile(ctx, f.ID, "final.txt")
	if err != nil {
		t.Fatalf("RenameFile failed: %v", err)
	}
	if id != f.ID {
		t.Errorf("Expected a stable id, got %d", id)
	}

	got, err := s.GetFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got.Title != "final.txt" {
		t.Errorf("Expected new title, got %q", got.Title)
	}
}

func TestRenameFile_SelfCollisionSuffix(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	f := createTestFile(t, s, root, "doc.txt", "v1")
	createTestFile(t, s, root, "doc (1).txt", "other")

	id, err := s.RenameFile(ctx, f.ID, "doc.txt")
	if err != nil {
		t.Fatalf("RenameFile failed: %v", err)
	}
	got, err := s.GetFile(ctx, id)
	if err != nil {
		t.Fatalf("GetFile after rename failed: %v", err)
	}
	if got.Title != "doc (2).txt" {
		t.Errorf("Expected title %q, got %q", "doc (2).txt", got.Title)
	}
}

// stubLocker reports one fixed file as locked by a fixed user.
type stubLocker struct {
	lockedID int
	holder   uuid.UUID
}

func (l *stubLocker) LockedForUser(_ context.Context, fileRef entry.Ref, _ uuid.UUID) (uuid.UUID, error) {
	if id, ok := fileRef.Int(); ok && id == l.lockedID {
		return l.holder, nil
	}
	return uuid.Nil, nil
}

func TestLockedFile_RenameConflicts(t *testing.T) {
	ctx := context.Background()

	db, err := localdb.Open(localdb.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	locker := &stubLocker{holder: uuid.New()}
	actor := uuid.New()
	s, err := local.New(local.Options{DB: db, Content: contentmem.New(), Actor: actor, Locker: locker})
	if err != nil {
		t.Fatalf("Failed to build internal store: %v", err)
	}

	root := createTestRoot(t, s, actor)
	f := createTestFile(t, s, root, "locked.txt", "x")
	locker.lockedID = f.ID

	if _, err := s.RenameFile(ctx, f.ID, "other.txt"); err == nil {
		t.Error("Expected rename of a locked file to fail")
	} else if !store.IsConflict(err) {
		t.Errorf("Expected Conflict on rename of a locked file, got %v", err)
	}
	if _, err := s.GetFile(ctx, f.ID); err != nil {
		t.Errorf("Expected read of a locked file to succeed: %v", err)
	}
}

func TestDeleteFile_RemovesContent(t *testing.T) {
	s, repo, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	f := createTestFile(t, s, root, "a.txt", "payload")
	if err := s.DeleteFile(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}

	if _, err := s.GetFile(ctx, f.ID); !store.IsNotFound(err) {
		t.Errorf("Expected NotFound after delete, got %v", err)
	}
	ids, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no blobs left, got %d", len(ids))
	}
}

func TestDelete_CascadesTags(t *testing.T) {
	ctx := context.Background()

	db, err := localdb.Open(localdb.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	actor := uuid.New()
	s, err := local.New(local.Options{DB: db, Content: contentmem.New(), Actor: actor})
	if err != nil {
		t.Fatalf("Failed to build internal store: %v", err)
	}

	root := createTestRoot(t, s, actor)
	docs := createTestFolder(t, s, root, "docs")
	f := createTestFile(t, s, docs, "a.txt", "payload")

	tagFor := func(id int) string { return strconv.Itoa(id) }
	if err := db.SetTag(localdb.Tag{Owner: actor, EntryID: tagFor(f.ID), Type: localdb.TagFavorite}); err != nil {
		t.Fatalf("SetTag on file failed: %v", err)
	}
	if err := db.SetTag(localdb.Tag{Owner: actor, EntryID: tagFor(docs), IsFolder: true, Type: localdb.TagFavorite}); err != nil {
		t.Fatalf("SetTag on folder failed: %v", err)
	}

	if err := s.DeleteFolder(ctx, docs); err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}

	for _, id := range []int{f.ID, docs} {
		tagged, err := db.HasTag(actor, localdb.TagFavorite, tagFor(id))
		if err != nil {
			t.Fatalf("HasTag failed: %v", err)
		}
		if tagged {
			t.Errorf("Expected the tag on entry %d to be cascaded away", id)
		}
	}
}

func TestMoveFolder_CycleGuard(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	a := createTestFolder(t, s, root, "a")
	b := createTestFolder(t, s, a, "b")

	if _, err := s.MoveFolder(ctx, a, b); !store.IsConflict(err) {
		t.Errorf("Expected Conflict moving a folder under its descendant, got %v", err)
	}
	if _, err := s.MoveFolder(ctx, a, a); !store.IsConflict(err) {
		t.Errorf("Expected Conflict moving a folder into itself, got %v", err)
	}
	if _, err := s.MoveFolder(ctx, root, a); err == nil {
		t.Error("Expected moving a tree root to fail")
	}
}

func TestMoveFile_RenamesOnCollision(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	dst := createTestFolder(t, s, root, "dst")
	createTestFile(t, s, dst, "a.txt", "existing")
	f := createTestFile(t, s, root, "a.txt", "moving")

	if _, err := s.MoveFile(ctx, f.ID, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	moved, err := s.GetFile(ctx, f.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if moved.ParentID != dst {
		t.Errorf("Expected parent %d, got %d", dst, moved.ParentID)
	}
	if moved.Title != "a (1).txt" {
		t.Errorf("Expected collision rename on move, got %q", moved.Title)
	}
}

func TestCopyFolder_DeepCopyWithContent(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	src := createTestFolder(t, s, root, "src")
	sub := createTestFolder(t, s, src, "sub")
	orig := createTestFile(t, s, sub, "a.txt", "payload")
	dst := createTestFolder(t, s, root, "dst")

	copied, err := s.CopyFolder(ctx, src, dst)
	if err != nil {
		t.Fatalf("CopyFolder failed: %v", err)
	}
	if copied.ID == src {
		t.Error("Expected the copy to get a fresh id")
	}
	if copied.FoldersCount != 1 {
		t.Errorf("Expected 1 subfolder in the copy, got %d", copied.FoldersCount)
	}

	copiedSub, err := s.GetFolderByTitle(ctx, copied.ID, "sub")
	if err != nil {
		t.Fatalf("GetFolderByTitle failed: %v", err)
	}
	copiedFile, err := s.GetFileByTitle(ctx, copiedSub.ID, "a.txt")
	if err != nil {
		t.Fatalf("GetFileByTitle failed: %v", err)
	}
	if copiedFile.ID == orig.ID {
		t.Error("Expected the copied file to get a fresh id")
	}

	// Blobs are duplicated, not shared: mutating the copy leaves the
	// source untouched.
	if _, err := s.SaveFile(ctx, &entry.File[int]{ID: copiedFile.ID}, strings.NewReader("changed")); err != nil {
		t.Fatalf("Overwrite of the copy failed: %v", err)
	}
	rc, err := s.OpenReadStream(ctx, orig.ID, 0)
	if err != nil {
		t.Fatalf("OpenReadStream failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Errorf("Expected the source content untouched, got %q", data)
	}
}

func TestDeleteFolder_CascadesSubtreeAndBlobs(t *testing.T) {
	s, repo, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	dir := createTestFolder(t, s, root, "docs")
	sub := createTestFolder(t, s, dir, "sub")
	f := createTestFile(t, s, sub, "a.txt", "x")
	keep := createTestFile(t, s, root, "keep.txt", "y")

	if err := s.DeleteFolder(ctx, dir); err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}

	if _, err := s.GetFolder(ctx, sub); !store.IsNotFound(err) {
		t.Errorf("Expected subfolder gone, got %v", err)
	}
	if _, err := s.GetFile(ctx, f.ID); !store.IsNotFound(err) {
		t.Errorf("Expected nested file gone, got %v", err)
	}
	if _, err := s.GetFile(ctx, keep.ID); err != nil {
		t.Errorf("Expected the sibling file to survive: %v", err)
	}

	ids, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Expected only the surviving blob, got %d", len(ids))
	}

	if err := s.DeleteFolder(ctx, root); err == nil {
		t.Error("Expected deleting a tree root to fail")
	}
}

func TestGetParentFolders_StopsAtRoot(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	a := createTestFolder(t, s, root, "a")
	b := createTestFolder(t, s, a, "b")

	chain, err := s.GetParentFolders(ctx, b)
	if err != nil {
		t.Fatalf("GetParentFolders failed: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("Expected a chain of 3, got %d", len(chain))
	}
	if chain[0].ID != root || chain[1].ID != a || chain[2].ID != b {
		t.Errorf("Expected root-first order, got %d, %d, %d", chain[0].ID, chain[1].ID, chain[2].ID)
	}
}

func TestListFolders_CountsAndFilter(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	docs := createTestFolder(t, s, root, "docs")
	createTestFolder(t, s, docs, "inner")
	createTestFile(t, s, docs, "a.txt", "x")

	folders, err := s.ListFolders(ctx, root, store.ListOptions{})
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if len(folders) != 1 {
		t.Fatalf("Expected 1 folder, got %d", len(folders))
	}
	if folders[0].FilesCount != 1 || folders[0].FoldersCount != 1 {
		t.Errorf("Expected child counts 1/1, got %d/%d", folders[0].FilesCount, folders[0].FoldersCount)
	}

	none, err := s.ListFolders(ctx, root, store.ListOptions{Filter: entry.FilterFilesOnly})
	if err != nil {
		t.Fatalf("ListFolders with files-only filter failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no folders under a files-only filter, got %d", len(none))
	}
}

func TestListFiles_SortBySize(t *testing.T) {
	s, _, actor := createTestStore(t)
	root := createTestRoot(t, s, actor)
	ctx := context.Background()

	createTestFile(t, s, root, "big.txt", strings.Repeat("x", 100))
	createTestFile(t, s, root, "small.txt", "x")

	files, err := s.ListFiles(ctx, root, store.ListOptions{
		OrderBy: entry.OrderBy{SortedBy: entry.SortBySize, IsAscending: true},
	})
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(files))
	}
	if files[0].Title != "small.txt" || files[1].Title != "big.txt" {
		t.Errorf("Expected size order, got %q, %q", files[0].Title, files[1].Title)
	}
}

func TestPreSignedURL_Unsupported(t *testing.T) {
	s, _, _ := createTestStore(t)

	if s.SupportsPreSignedURL() {
		t.Error("Expected no presigned URL support")
	}
	_, err := s.PreSignedURL(context.Background(), 1, 0)
	code, ok := store.CodeOf(err)
	if !ok || code != store.ErrUnsupported {
		t.Errorf("Expected Unsupported, got %v", err)
	}
}
