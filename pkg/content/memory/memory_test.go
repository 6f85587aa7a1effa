package memory

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/driveio/fedfs/pkg/content"
)

func TestSaveOpen(t *testing.T) {
	ctx := context.Background()
	r := New()

	n, err := r.Save(ctx, "blob-1", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n != 11 {
		t.Errorf("Expected 11 bytes written, got %d", n)
	}

	rc, err := r.Open(ctx, "blob-1", 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("Expected the saved bytes back, got %q", data)
	}
}

func TestOpen_Offset(t *testing.T) {
	ctx := context.Background()
	r := New()

	if _, err := r.Save(ctx, "blob-1", strings.NewReader("hello world")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rc, err := r.Open(ctx, "blob-1", 6)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "world" {
		t.Errorf("Expected the tail from offset 6, got %q", data)
	}
}

func TestOpen_Missing(t *testing.T) {
	r := New()
	if _, err := r.Open(context.Background(), "gone", 0); err == nil {
		t.Error("Expected an error opening a missing blob")
	}
}

func TestAppend(t *testing.T) {
	ctx := context.Background()
	r := New()

	total, err := r.Append(ctx, "spill", strings.NewReader("aaa"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected total 3, got %d", total)
	}

	total, err = r.Append(ctx, "spill", strings.NewReader("bb"))
	if err != nil {
		t.Fatalf("Second append failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}

	rc, err := r.Open(ctx, "spill", 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, []byte("aaabb")) {
		t.Errorf("Expected appended content, got %q", data)
	}
}

func TestSize(t *testing.T) {
	ctx := context.Background()
	r := New()

	if _, err := r.Save(ctx, "b", strings.NewReader("1234")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	size, err := r.Size(ctx, "b")
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 4 {
		t.Errorf("Expected size 4, got %d", size)
	}
}

func TestDeleteExists(t *testing.T) {
	ctx := context.Background()
	r := New()

	if _, err := r.Save(ctx, "b", strings.NewReader("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	ok, err := r.Exists(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("Expected the blob to exist, got (%v, %v)", ok, err)
	}

	if err := r.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, err = r.Exists(ctx, "b")
	if err != nil || ok {
		t.Errorf("Expected the blob gone, got (%v, %v)", ok, err)
	}

	// Deleting a missing blob is not an error.
	if err := r.Delete(ctx, "b"); err != nil {
		t.Errorf("Deleting a missing blob must not fail: %v", err)
	}
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	r := New()

	for _, id := range []content.ContentID{"a", "b", "c"} {
		if _, err := r.Save(ctx, id, strings.NewReader("x")); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	ids, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("Expected 3 blobs, got %d", len(ids))
	}
}

func TestSave_CopiesCallerBuffer(t *testing.T) {
	ctx := context.Background()
	r := New()

	buf := []byte("original")
	if _, err := r.Save(ctx, "b", bytes.NewReader(buf)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	copy(buf, "mutated!")

	rc, err := r.Open(ctx, "b", 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "original" {
		t.Errorf("Expected stored bytes isolated from the caller buffer, got %q", data)
	}
}
