package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/driveio/fedfs/pkg/content"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	return r
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("Expected an error for an empty base path")
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	n, err := r.Save(ctx, "blob-1", strings.NewReader("file content"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n != 12 {
		t.Errorf("Expected 12 bytes, got %d", n)
	}

	rc, err := r.Open(ctx, "blob-1", 5)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "content" {
		t.Errorf("Expected the tail from offset 5, got %q", data)
	}
}

func TestSave_Overwrites(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	if _, err := r.Save(ctx, "b", strings.NewReader("long original content")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := r.Save(ctx, "b", strings.NewReader("short")); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	size, err := r.Size(ctx, "b")
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 5 {
		t.Errorf("Expected the overwrite to truncate, got size %d", size)
	}
}

func TestAppendAccumulates(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	if _, err := r.Append(ctx, "spill", strings.NewReader("12345")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	total, err := r.Append(ctx, "spill", strings.NewReader("678"))
	if err != nil {
		t.Fatalf("Second append failed: %v", err)
	}
	if total != 8 {
		t.Errorf("Expected total 8, got %d", total)
	}
}

func TestDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	if _, err := r.Save(ctx, "b", strings.NewReader("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := r.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, err := r.Exists(ctx, "b")
	if err != nil || ok {
		t.Errorf("Expected the blob gone, got (%v, %v)", ok, err)
	}
	if err := r.Delete(ctx, "b"); err != nil {
		t.Errorf("Deleting a missing blob must not fail: %v", err)
	}
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	for _, id := range []content.ContentID{"a", "b"} {
		if _, err := r.Save(ctx, id, strings.NewReader("x")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	ids, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 blobs, got %d", len(ids))
	}
}
