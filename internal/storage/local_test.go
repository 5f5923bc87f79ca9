package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLocalStorage_PutGet(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	ctx := context.Background()

	objectPath := "snapshots/user.json.sz"
	content := []byte("hello world")
	meta := map[string]string{"fingerprint": "abc", "rows": "2"}

	if err := storage.Put(ctx, objectPath, content, meta); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err := storage.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected object to exist")
	}

	obj, err := storage.Get(ctx, objectPath)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(obj.Data) != string(content) {
		t.Errorf("content mismatch: got %q, want %q", obj.Data, content)
	}
	if !reflect.DeepEqual(obj.Metadata, meta) {
		t.Errorf("metadata mismatch: got %v, want %v", obj.Metadata, meta)
	}
	if obj.ModTime.IsZero() {
		t.Error("expected a modification time")
	}

	if err := storage.Delete(ctx, objectPath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err = storage.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists after delete failed: %v", err)
	}
	if exists {
		t.Error("expected object to not exist after delete")
	}
}

func TestLocalStorage_PutReplacesMetadata(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	ctx := context.Background()

	if err := storage.Put(ctx, "a", []byte("v1"), map[string]string{"k": "v"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := storage.Put(ctx, "a", []byte("v2"), nil); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	obj, err := storage.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(obj.Data) != "v2" {
		t.Errorf("expected v2, got %q", obj.Data)
	}
	if obj.Metadata != nil {
		t.Errorf("expected stale metadata to be removed, got %v", obj.Metadata)
	}
}

func TestLocalStorage_GetNotFound(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	_, err = storage.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_DeleteMissing(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	if err := storage.Delete(context.Background(), "missing"); err != nil {
		t.Errorf("expected nil deleting a missing object, got %v", err)
	}
}

func TestLocalStorage_List(t *testing.T) {
	baseDir := t.TempDir()
	storage, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	ctx := context.Background()

	for _, p := range []string{"snapshots/b.json.sz", "snapshots/a.json.sz", "other/c"} {
		if err := storage.Put(ctx, p, []byte("x"), map[string]string{"k": "v"}); err != nil {
			t.Fatalf("Put %s failed: %v", p, err)
		}
	}
	// A stray temp file from an interrupted write is not an object.
	if err := os.WriteFile(filepath.Join(baseDir, "snapshots", ".tmp-123"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	got, err := storage.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"snapshots/a.json.sz", "snapshots/b.json.sz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	ctx := context.Background()

	for _, p := range []string{"../outside", "/abs/path", ""} {
		if err := storage.Put(ctx, p, []byte("x"), nil); !errors.Is(err, ErrUploadFailed) {
			t.Errorf("Put(%q): expected ErrUploadFailed, got %v", p, err)
		}
	}
}
