package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"campus-assistant/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}

	if err := s.Upload(ctx, "snapshots/campus.chromem", strings.NewReader("first")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if err := s.Upload(ctx, "snapshots/campus.chromem", strings.NewReader("second")); err != nil {
		t.Fatalf("second Upload failed: %v", err)
	}

	rc, err := s.Download(ctx, "snapshots/campus.chromem")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "second" {
		t.Errorf("Download = %q, want %q", data, "second")
	}

	if err := s.Delete(ctx, "snapshots/campus.chromem"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Download(ctx, "snapshots/campus.chromem"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "snapshots/campus.chromem"); err != nil {
		t.Errorf("deleting a missing object should succeed: %v", err)
	}
}

func TestLocalStorageLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	if err := s.Upload(context.Background(), "a.bin", strings.NewReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.bin" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	for _, key := range []string{"", "../outside", "a/../../b"} {
		if err := s.Upload(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Errorf("Upload(%q) should fail", key)
		}
	}
}

func TestNewStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := NewStorage(context.Background(), config.SnapshotConfig{Storage: "local", LocalPath: dir})
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Errorf("expected *LocalStorage, got %T", s)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("base path not created: %v", err)
	}

	if _, err := NewStorage(context.Background(), config.SnapshotConfig{Storage: "s3"}); err == nil {
		t.Error("expected error for S3 without bucket")
	}
	if _, err := NewStorage(context.Background(), config.SnapshotConfig{Storage: "ftp"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}
