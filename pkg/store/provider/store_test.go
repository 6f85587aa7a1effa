package provider_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/driveio/fedfs/pkg/entry"
	"github.com/driveio/fedfs/pkg/localdb"
	"github.com/driveio/fedfs/pkg/security"
	"github.com/driveio/fedfs/pkg/store"
	"github.com/driveio/fedfs/pkg/store/provider"
	"github.com/driveio/fedfs/pkg/store/provider/memory"
)

// createTestStore wires a federated store over the in-memory client with a
// fresh in-memory database, released when the test ends.
func createTestStore(t *testing.T, locker security.Locker) (*provider.Store, *localdb.DB) {
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

	s, err := provider.New(provider.Options{
		Key:        "box",
		ProviderID: 1,
		RootTitle:  "Box account",
		RootType:   entry.RootUser,
		Owner:      uuid.New(),
		Client:     memory.New(),
		DB:         db,
		Locker:     locker,
	})
	if err != nil {
		t.Fatalf("Failed to build provider store: %v", err)
	}
	return s, db
}

func createTestFolder(t *testing.T, s *provider.Store, parentID, title string) string {
	t.Helper()
	id, err := s.CreateFolder(context.Background(), &entry.Folder[string]{
		ParentID:   parentID,
		Attributes: entry.Attributes{Title: title},
	})
	if err != nil {
		t.Fatalf("Failed to create folder %q: %v", title, err)
	}
	return id
}

func createTestFile(t *testing.T, s *provider.Store, parentID, title, content string) string {
	t.Helper()
	f, err := s.SaveFile(context.Background(), &entry.File[string]{
		ParentID:   parentID,
		Attributes: entry.Attributes{Title: title},
	}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to create file %q: %v", title, err)
	}
	return f.ID
}

func TestNew_RejectsBadOptions(t *testing.T) {
	db, err := localdb.Open(localdb.Options{InMemory: true})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()

	cases := []struct {
		name string
		opts provider.Options
	}{
		{"empty key", provider.Options{Client: memory.New(), DB: db}},
		{"colon in key", provider.Options{Key: "a:b", Client: memory.New(), DB: db}},
		{"nil client", provider.Options{Key: "box", DB: db}},
		{"nil database", provider.Options{Key: "box", Client: memory.New()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := provider.New(tc.opts); err == nil {
				t.Errorf("Expected an error for %s", tc.name)
			}
		})
	}
}

func TestMakeID_NormalizesPaths(t *testing.T) {
	s, _ := createTestStore(t, nil)

	if got := s.MakeID("docs/report.docx"); got != "box:/docs/report.docx" {
		t.Errorf("Expected box:/docs/report.docx, got %q", got)
	}
	if got := s.MakeID("/docs//sub/../report.docx"); got != "box:/docs/report.docx" {
		t.Errorf("Expected cleaned path, got %q", got)
	}
	if got := s.RootFolderID(); got != "box:/" {
		t.Errorf("Expected box:/, got %q", got)
	}
}

func TestGetFolder_RootAndNotFound(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	root, err := s.GetFolder(ctx, s.RootFolderID())
	if err != nil {
		t.Fatalf("GetFolder root failed: %v", err)
	}
	if root.Title != "Box account" {
		t.Errorf("Expected root title from options, got %q", root.Title)
	}
	if root.ParentID != "" {
		t.Errorf("Expected empty root parent, got %q", root.ParentID)
	}
	if !root.ProviderEntry || root.ProviderKey != "box" {
		t.Errorf("Expected provider attribution on root, got %+v", root.Attributes)
	}

	if _, err := s.GetFolder(ctx, "box:/missing"); !store.IsNotFound(err) {
		t.Errorf("Expected NotFound for missing folder, got %v", err)
	}
}

func TestGetFolder_RejectsForeignIdentifier(t *testing.T) {
	s, _ := createTestStore(t, nil)

	_, err := s.GetFolder(context.Background(), "dropbox:/docs")
	code, ok := store.CodeOf(err)
	if !ok || code != store.ErrInvalidArgument {
		t.Errorf("Expected InvalidArgument for a foreign identifier, got %v", err)
	}
}

func TestCreateFolder_CollisionSuffix(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	first := createTestFolder(t, s, s.RootFolderID(), "Reports")
	if first != "box:/Reports" {
		t.Errorf("Expected box:/Reports, got %q", first)
	}

	second := createTestFolder(t, s, s.RootFolderID(), "Reports")
	if second != "box:/Reports (1)" {
		t.Errorf("Expected box:/Reports (1), got %q", second)
	}

	third := createTestFolder(t, s, s.RootFolderID(), "reports")
	if third != "box:/reports (2)" {
		t.Errorf("Expected case-insensitive collision handling, got %q", third)
	}

	f, err := s.GetFolderByTitle(ctx, s.RootFolderID(), "REPORTS (1)")
	if err != nil {
		t.Fatalf("GetFolderByTitle failed: %v", err)
	}
	if f.ID != second {
		t.Errorf("Expected %q, got %q", second, f.ID)
	}
}

func TestSaveFile_CollisionSuffixBeforeExtension(t *testing.T) {
	s, _ := createTestStore(t, nil)

	createTestFile(t, s, s.RootFolderID(), "report.docx", "v1")
	id := createTestFile(t, s, s.RootFolderID(), "report.docx", "v2")
	if id != "box:/report (1).docx" {
		t.Errorf("Expected suffix before the extension, got %q", id)
	}
}

func TestSaveFile_OverwriteKeepsIdentifier(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	id := createTestFile(t, s, s.RootFolderID(), "notes.txt", "old")
	f, err := s.SaveFile(ctx, &entry.File[string]{ID: id}, strings.NewReader("new content"))
	if err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	if f.ID != id {
		t.Errorf("Expected overwrite to keep id %q, got %q", id, f.ID)
	}
	if f.ContentLength != int64(len("new content")) {
		t.Errorf("Expected length %d, got %d", len("new content"), f.ContentLength)
	}

	rc, err := s.OpenReadStream(ctx, id, 0)
	if err != nil {
		t.Fatalf("OpenReadStream failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("new content")) {
		t.Errorf("Expected new content, got %q", data)
	}
}

func TestOpenReadStream_Offset(t *testing.T) {
	s, _ := createTestStore(t, nil)

	id := createTestFile(t, s, s.RootFolderID(), "a.txt", "0123456789")
	rc, err := s.OpenReadStream(context.Background(), id, 4)
	if err != nil {
		t.Fatalf("OpenReadStream failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "456789" {
		t.Errorf("Expected tail from offset 4, got %q", data)
	}
}

func TestRenameFile_IdentifierChangesHashStays(t *testing.T) {
	s, db := createTestStore(t, nil)
	ctx := context.Background()

	id := createTestFile(t, s, s.RootFolderID(), "draft.docx", "text")
	hash, err := db.LookupHash(id)
	if err != nil {
		t.Fatalf("LookupHash failed: %v", err)
	}

	newID, err := s.RenameFile(ctx, id, "final.docx")
	if err != nil {
		t.Fatalf("RenameFile failed: %v", err)
	}
	if newID != "box:/final.docx" {
		t.Errorf("Expected box:/final.docx, got %q", newID)
	}

	got, err := db.FederatedID(hash)
	if err != nil {
		t.Fatalf("FederatedID failed: %v", err)
	}
	if got != newID {
		t.Errorf("Expected hash to follow the rename to %q, got %q", newID, got)
	}
	if _, err := s.GetFile(ctx, id); !store.IsNotFound(err) {
		t.Errorf("Expected old identifier to dangle, got %v", err)
	}
}

func TestRenameFolder_RewritesSubtreeMappings(t *testing.T) {
	s, db := createTestStore(t, nil)
	ctx := context.Background()

	dir := createTestFolder(t, s, s.RootFolderID(), "docs")
	fileID := createTestFile(t, s, dir, "a.txt", "x")
	fileHash, err := db.LookupHash(fileID)
	if err != nil {
		t.Fatalf("LookupHash failed: %v", err)
	}

	newDir, err := s.RenameFolder(ctx, dir, "archive")
	if err != nil {
		t.Fatalf("RenameFolder failed: %v", err)
	}
	if newDir != "box:/archive" {
		t.Errorf("Expected box:/archive, got %q", newDir)
	}

	got, err := db.FederatedID(fileHash)
	if err != nil {
		t.Fatalf("FederatedID failed: %v", err)
	}
	if got != "box:/archive/a.txt" {
		t.Errorf("Expected child mapping rewritten, got %q", got)
	}
	if _, err := s.GetFile(ctx, "box:/archive/a.txt"); err != nil {
		t.Errorf("Expected child reachable at new path: %v", err)
	}
}

func TestRenameFolder_RootForbidden(t *testing.T) {
	s, _ := createTestStore(t, nil)

	_, err := s.RenameFolder(context.Background(), s.RootFolderID(), "other")
	code, ok := store.CodeOf(err)
	if !ok || code != store.ErrInvalidArgument {
		t.Errorf("Expected InvalidArgument for root rename, got %v", err)
	}
}

func TestMoveFolder_IntoOwnSubtree(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	parent := createTestFolder(t, s, s.RootFolderID(), "a")
	child := createTestFolder(t, s, parent, "b")

	if _, err := s.MoveFolder(ctx, parent, child); !store.IsConflict(err) {
		t.Errorf("Expected Conflict moving a folder into its own subtree, got %v", err)
	}
	if _, err := s.MoveFolder(ctx, parent, parent); !store.IsConflict(err) {
		t.Errorf("Expected Conflict moving a folder into itself, got %v", err)
	}
}

func TestMoveFile_AcrossFolders(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	dst := createTestFolder(t, s, s.RootFolderID(), "dst")
	id := createTestFile(t, s, s.RootFolderID(), "a.txt", "payload")

	newID, err := s.MoveFile(ctx, id, dst)
	if err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if newID != "box:/dst/a.txt" {
		t.Errorf("Expected box:/dst/a.txt, got %q", newID)
	}
	if _, err := s.GetFile(ctx, id); !store.IsNotFound(err) {
		t.Errorf("Expected source gone after move, got %v", err)
	}
}

func TestCopyFolder_DuplicatesSubtree(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	src := createTestFolder(t, s, s.RootFolderID(), "src")
	createTestFile(t, s, src, "a.txt", "payload")
	dst := createTestFolder(t, s, s.RootFolderID(), "dst")

	copied, err := s.CopyFolder(ctx, src, dst)
	if err != nil {
		t.Fatalf("CopyFolder failed: %v", err)
	}
	if copied.ID != "box:/dst/src" {
		t.Errorf("Expected box:/dst/src, got %q", copied.ID)
	}

	if _, err := s.GetFile(ctx, "box:/dst/src/a.txt"); err != nil {
		t.Errorf("Expected copied child present: %v", err)
	}
	if _, err := s.GetFile(ctx, "box:/src/a.txt"); err != nil {
		t.Errorf("Expected source untouched: %v", err)
	}
}

func TestDeleteFolder_CascadesLocalRows(t *testing.T) {
	s, db := createTestStore(t, nil)
	ctx := context.Background()

	dir := createTestFolder(t, s, s.RootFolderID(), "docs")
	fileID := createTestFile(t, s, dir, "a.txt", "x")
	fileHash, err := db.LookupHash(fileID)
	if err != nil {
		t.Fatalf("LookupHash failed: %v", err)
	}
	owner := uuid.New()
	if err := db.SetTag(localdb.Tag{Owner: owner, Type: localdb.TagFavorite, EntryID: fileHash, CreatedOn: time.Now()}); err != nil {
		t.Fatalf("SetTag failed: %v", err)
	}

	if err := s.DeleteFolder(ctx, dir); err != nil {
		t.Fatalf("DeleteFolder failed: %v", err)
	}

	if _, err := s.GetFolder(ctx, dir); !store.IsNotFound(err) {
		t.Errorf("Expected folder gone, got %v", err)
	}
	if _, err := db.LookupHash(fileID); err != localdb.ErrMappingNotFound {
		t.Errorf("Expected child mapping removed, got %v", err)
	}
	ok, err := db.HasTag(owner, localdb.TagFavorite, fileHash)
	if err != nil {
		t.Fatalf("HasTag failed: %v", err)
	}
	if ok {
		t.Error("Expected the favorite tag to be cascaded with the subtree")
	}
}

func TestGetParentFolders_ChainFromRoot(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	a := createTestFolder(t, s, s.RootFolderID(), "a")
	b := createTestFolder(t, s, a, "b")

	chain, err := s.GetParentFolders(ctx, b)
	if err != nil {
		t.Fatalf("GetParentFolders failed: %v", err)
	}
	want := []string{"box:/", "box:/a", "box:/a/b"}
	if len(chain) != len(want) {
		t.Fatalf("Expected chain of %d, got %d", len(want), len(chain))
	}
	for i, id := range want {
		if chain[i].ID != id {
			t.Errorf("Chain[%d]: expected %q, got %q", i, id, chain[i].ID)
		}
	}
}

func TestListFolders_FilterAndSort(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	createTestFolder(t, s, s.RootFolderID(), "beta")
	createTestFolder(t, s, s.RootFolderID(), "alpha")
	createTestFile(t, s, s.RootFolderID(), "a.txt", "x")

	folders, err := s.ListFolders(ctx, s.RootFolderID(), store.ListOptions{
		OrderBy: entry.OrderBy{SortedBy: entry.SortByAZ, IsAscending: true},
	})
	if err != nil {
		t.Fatalf("ListFolders failed: %v", err)
	}
	if len(folders) != 2 {
		t.Fatalf("Expected 2 folders, got %d", len(folders))
	}
	if folders[0].Title != "alpha" || folders[1].Title != "beta" {
		t.Errorf("Expected alphabetical order, got %q, %q", folders[0].Title, folders[1].Title)
	}

	none, err := s.ListFolders(ctx, s.RootFolderID(), store.ListOptions{Filter: entry.FilterFilesOnly})
	if err != nil {
		t.Fatalf("ListFolders with files-only filter failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no folders under a files-only filter, got %d", len(none))
	}
}

func TestListFiles_TypeFilterAndSearch(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	createTestFile(t, s, s.RootFolderID(), "report.docx", "x")
	createTestFile(t, s, s.RootFolderID(), "sheet.xlsx", "x")
	createTestFile(t, s, s.RootFolderID(), "photo.png", "x")

	docs, err := s.ListFiles(ctx, s.RootFolderID(), store.ListOptions{Filter: entry.FilterDocumentsOnly})
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "report.docx" {
		t.Errorf("Expected only the document, got %d entries", len(docs))
	}

	hits, err := s.ListFiles(ctx, s.RootFolderID(), store.ListOptions{SearchText: "SHEET"})
	if err != nil {
		t.Fatalf("ListFiles with search failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "sheet.xlsx" {
		t.Errorf("Expected the search hit, got %d entries", len(hits))
	}

	none, err := s.ListFiles(ctx, s.RootFolderID(), store.ListOptions{Filter: entry.FilterFoldersOnly})
	if err != nil {
		t.Fatalf("ListFiles with folders-only filter failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected no files under a folders-only filter, got %d", len(none))
	}
}

func TestGetFilesByIDs_SkipsMissing(t *testing.T) {
	s, _ := createTestStore(t, nil)

	a := createTestFile(t, s, s.RootFolderID(), "a.txt", "x")
	b := createTestFile(t, s, s.RootFolderID(), "b.txt", "x")

	files, err := s.GetFilesByIDs(context.Background(), []string{a, "box:/missing.txt", b})
	if err != nil {
		t.Fatalf("GetFilesByIDs failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected missing ids skipped, got %d files", len(files))
	}
}

func TestIsExistAndItemsCount(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	createTestFolder(t, s, s.RootFolderID(), "docs")
	createTestFile(t, s, s.RootFolderID(), "a.txt", "x")

	exists, err := s.IsExist(ctx, "DOCS", s.RootFolderID())
	if err != nil {
		t.Fatalf("IsExist failed: %v", err)
	}
	if !exists {
		t.Error("Expected case-insensitive existence check to hit")
	}

	n, err := s.ItemsCount(ctx, s.RootFolderID())
	if err != nil {
		t.Fatalf("ItemsCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 items, got %d", n)
	}

	empty, err := s.IsEmpty(ctx, "box:/docs")
	if err != nil {
		t.Fatalf("IsEmpty failed: %v", err)
	}
	if !empty {
		t.Error("Expected the fresh folder to be empty")
	}
}

func TestRenameFile_SelfCollisionSuffix(t *testing.T) {
	s, _ := createTestStore(t, nil)
	ctx := context.Background()

	id := createTestFile(t, s, s.RootFolderID(), "doc.txt", "v1")
	createTestFile(t, s, s.RootFolderID(), "doc (1).txt", "other")

	newID, err := s.RenameFile(ctx, id, "doc.txt")
	if err != nil {
		t.Fatalf("RenameFile failed: %v", err)
	}
	f, err := s.GetFile(ctx, newID)
	if err != nil {
		t.Fatalf("GetFile after rename failed: %v", err)
	}
	if f.Title != "doc (2).txt" {
		t.Errorf("Expected title %q, got %q", "doc (2).txt", f.Title)
	}
}

// racingClient simulates a concurrent create winning the chosen title: the
// first CreateFolder call stores the item itself, then reports it taken.
type racingClient struct {
	provider.Client
	raced bool
}

func (c *racingClient) CreateFolder(ctx context.Context, parentPath, title string) (*provider.Item, error) {
	if !c.raced {
		c.raced = true
		if _, err := c.Client.CreateFolder(ctx, parentPath, title); err != nil {
			return nil, err
		}
		return nil, provider.ErrItemExists
	}
	return c.Client.CreateFolder(ctx, parentPath, title)
}

func TestCreateFolder_RetriesWhenTitleTaken(t *testing.T) {
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
	s, err := provider.New(provider.Options{
		Key:      "box",
		RootType: entry.RootUser,
		Owner:    uuid.New(),
		Client:   &racingClient{Client: memory.New()},
		DB:       db,
	})
	if err != nil {
		t.Fatalf("Failed to build provider store: %v", err)
	}

	id, err := s.CreateFolder(ctx, &entry.Folder[string]{
		ParentID:   s.RootFolderID(),
		Attributes: entry.Attributes{Title: "reports"},
	})
	if err != nil {
		t.Fatalf("CreateFolder failed after losing the title race: %v", err)
	}
	if id != "box:/reports (1)" {
		t.Errorf("Expected the retried create to take the next suffix, got %q", id)
	}

	// The racer's folder and the retried one both exist.
	for _, title := range []string{"reports", "reports (1)"} {
		ok, err := s.IsExist(ctx, title, s.RootFolderID())
		if err != nil {
			t.Fatalf("IsExist(%q) failed: %v", title, err)
		}
		if !ok {
			t.Errorf("Expected folder %q to exist", title)
		}
	}
}

// stubLocker reports one fixed file as locked by a fixed user.
type stubLocker struct {
	lockedID string
	holder   uuid.UUID
}

func (l stubLocker) LockedForUser(_ context.Context, fileRef entry.Ref, _ uuid.UUID) (uuid.UUID, error) {
	if id, ok := fileRef.Str(); ok && id == l.lockedID {
		return l.holder, nil
	}
	return uuid.Nil, nil
}

func TestLockedFile_MutationsDenied(t *testing.T) {
	lockHolder := uuid.New()
	s, _ := createTestStore(t, stubLocker{lockedID: "box:/locked.txt", holder: lockHolder})
	ctx := context.Background()

	id := createTestFile(t, s, s.RootFolderID(), "locked.txt", "x")

	if _, err := s.RenameFile(ctx, id, "other.txt"); err == nil {
		t.Error("Expected rename of a locked file to fail")
	} else if !store.IsConflict(err) {
		t.Errorf("Expected Conflict on rename of a locked file, got %v", err)
	}
	if err := s.DeleteFile(ctx, id); err == nil {
		t.Error("Expected delete of a locked file to fail")
	}
	if _, err := s.SaveFile(ctx, &entry.File[string]{ID: id}, strings.NewReader("y")); err == nil {
		t.Error("Expected overwrite of a locked file to fail")
	}

	// Reads stay open.
	if _, err := s.GetFile(ctx, id); err != nil {
		t.Errorf("Expected read of a locked file to succeed: %v", err)
	}
}

func TestPreSignedURL_UnsupportedBackend(t *testing.T) {
	s, _ := createTestStore(t, nil)

	if s.SupportsPreSignedURL() {
		t.Error("Expected the in-memory backend to report no presigned URL support")
	}
	_, err := s.PreSignedURL(context.Background(), "box:/a.txt", time.Hour)
	code, ok := store.CodeOf(err)
	if !ok || code != store.ErrUnsupported {
		t.Errorf("Expected Unsupported, got %v", err)
	}
}
