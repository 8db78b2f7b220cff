package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStorage writes captured pages into the output directory.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a new FileStorage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the absolute output directory, or the configured one if it
// cannot be resolved.
func (s *FileStorage) Dir() string {
	abs, err := filepath.Abs(s.dir)
	if err != nil {
		return s.dir
	}
	return abs
}

// EnsureDir creates the output directory if it does not exist.
func (s *FileStorage) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.dir, err)
	}
	return nil
}

// Path returns the full path of filename inside the output directory.
func (s *FileStorage) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// FileExists checks whether a file exists in the output directory.
func (s *FileStorage) FileExists(filename string) bool {
	_, err := os.Stat(s.Path(filename))
	return err == nil
}

// GetFileSize returns the size of the file in bytes.
func (s *FileStorage) GetFileSize(filename string) (int64, error) {
	info, err := os.Stat(s.Path(filename))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WriteFile writes data to filename through a temporary file so that an
// interrupted save never leaves a truncated artifact behind.
func (s *FileStorage) WriteFile(filename string, data []byte) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, s.Path(filename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filename, err)
	}
	return nil
}
