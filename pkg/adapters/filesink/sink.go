// Package filesink stores exported images in a local directory.
package filesink

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/user/framegrab/pkg/ports"
)

// Sink writes images into a directory. Each image is written to a hidden
// temporary file first and renamed into place.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// Put stores data as baseDir/name.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	path := s.Location(name)
	tmp := filepath.Join(s.baseDir, "."+name+".tmp")
	if err := s.fs.WriteFile(tmp, data); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Remove deletes baseDir/name. A missing file is not an error.
func (s *Sink) Remove(ctx context.Context, name string) error {
	if err := s.fs.Remove(s.Location(name)); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// Location returns the file path of name.
func (s *Sink) Location(name string) string {
	return filepath.Join(s.baseDir, name)
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
