package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func makeTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "filestorage_test_*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}

func TestFileStorage_WriteAndSize(t *testing.T) {
	dir := makeTempDir(t)
	fs := NewFileStorage(dir)

	data := []byte("%PDF-1.4")
	if err := fs.WriteFile("1 - Intro.pdf", data); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if !fs.FileExists("1 - Intro.pdf") {
		t.Fatalf("expected file to exist after write")
	}

	size, err := fs.GetFileSize("1 - Intro.pdf")
	if err != nil {
		t.Fatalf("GetFileSize error: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("expected size %d, got %d", len(data), size)
	}
}

func TestFileStorage_WriteCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(makeTempDir(t), "Archive", "nested")
	fs := NewFileStorage(dir)

	if err := fs.WriteFile("page.png", []byte("png")); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "page.png")); err != nil {
		t.Errorf("expected file in created dir: %v", err)
	}
}

func TestFileStorage_WriteLeavesNoTempFiles(t *testing.T) {
	dir := makeTempDir(t)
	fs := NewFileStorage(dir)

	if err := fs.WriteFile("a.pdf", []byte("one")); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := fs.WriteFile("a.pdf", []byte("two")); err != nil {
		t.Fatalf("WriteFile overwrite error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly one file, got %d", len(entries))
	}

	got, _ := os.ReadFile(fs.Path("a.pdf"))
	if string(got) != "two" {
		t.Errorf("expected overwritten content, got %q", got)
	}
}

func TestFileStorage_Dir(t *testing.T) {
	fs := NewFileStorage("Archive")

	if !filepath.IsAbs(fs.Dir()) {
		t.Errorf("expected absolute dir, got %q", fs.Dir())
	}
}
