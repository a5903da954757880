// Package osfilesystem stores images and reports on the local disk.
//
// Writes are synced before they return, so a file renamed into place after a
// WriteFile is complete on disk even if the process dies right after.
package osfilesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/framegrab/pkg/ports"
)

// Options sets the permissions of created files and directories.
type Options struct {
	FileMode os.FileMode
	DirMode  os.FileMode
}

// FileSystem implements ports.FileSystem on the os package.
type FileSystem struct {
	fileMode os.FileMode
	dirMode  os.FileMode
}

// New creates a FileSystem with 0644 files and 0755 directories.
func New() *FileSystem {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a FileSystem; zero modes keep the defaults.
func NewWithOptions(opts Options) *FileSystem {
	f := &FileSystem{fileMode: 0644, dirMode: 0755}
	if opts.FileMode != 0 {
		f.fileMode = opts.FileMode
	}
	if opts.DirMode != 0 {
		f.dirMode = opts.DirMode
	}
	return f
}

func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile creates missing parent directories, writes data and syncs it.
func (f *FileSystem) WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, f.dirMode); err != nil {
			return fmt.Errorf("osfilesystem: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.fileMode)
	if err != nil {
		return fmt.Errorf("osfilesystem: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("osfilesystem: write %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("osfilesystem: sync %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("osfilesystem: close %s: %w", path, err)
	}
	return nil
}

// Rename replaces newPath with oldPath.
func (f *FileSystem) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return fmt.Errorf("osfilesystem: %w", err)
	}
	return nil
}

func (f *FileSystem) MkdirAll(path string) error {
	if err := os.MkdirAll(path, f.dirMode); err != nil {
		return fmt.Errorf("osfilesystem: %w", err)
	}
	return nil
}

func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("osfilesystem: %w", err)
	}
}

// Remove deletes a file or empty directory. A missing path is not an error.
func (f *FileSystem) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("osfilesystem: %w", err)
	}
	return nil
}

var _ ports.FileSystem = (*FileSystem)(nil)
