package osfilesystem

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileSystem_WriteFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "frames", "frame_0042.ppm")

	if err := fs.WriteFile(path, []byte("P6\n2 1\n255\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "P6\n2 1\n255\n" {
		t.Errorf("unexpected contents %q", data)
	}

	// rewriting truncates
	if err := fs.WriteFile(path, []byte("P6")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if data, _ := fs.ReadFile(path); string(data) != "P6" {
		t.Errorf("expected truncated contents, got %q", data)
	}
}

func TestFileSystem_Modes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	fs := NewWithOptions(Options{FileMode: 0600, DirMode: 0700})
	dir := filepath.Join(t.TempDir(), "private")
	path := filepath.Join(dir, "summary.md")

	if err := fs.WriteFile(path, []byte("# Extraction Summary")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("expected a private file, got %v", info.Mode().Perm())
	}
	dirInfo, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if dirInfo.Mode().Perm()&0077 != 0 {
		t.Errorf("expected a private directory, got %v", dirInfo.Mode().Perm())
	}
}

func TestFileSystem_MkdirAllAndExists(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "out", "frames")

	if exists, err := fs.Exists(dir); err != nil || exists {
		t.Fatalf("expected missing directory, got %v, %v", exists, err)
	}
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if exists, err := fs.Exists(dir); err != nil || !exists {
		t.Errorf("expected directory to exist, got %v, %v", exists, err)
	}
}

func TestFileSystem_Remove(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "frame_0001.png")
	if err := fs.WriteFile(path, []byte{0x89}); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if exists, _ := fs.Exists(path); exists {
		t.Error("expected file to be removed")
	}
	if err := fs.Remove(path); err != nil {
		t.Errorf("expected removing a missing file to succeed, got %v", err)
	}
}

func TestFileSystem_Rename(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	oldPath := filepath.Join(tmpDir, ".frame_0001.png.tmp")
	newPath := filepath.Join(tmpDir, "frame_0001.png")
	if err := fs.WriteFile(oldPath, []byte("new")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(newPath, []byte("old"), 0644); err != nil {
		t.Fatalf("seed target: %v", err)
	}

	if err := fs.Rename(oldPath, newPath); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	data, err := fs.ReadFile(newPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("expected replaced contents, got %q", data)
	}
	if exists, _ := fs.Exists(oldPath); exists {
		t.Error("expected temporary file to be gone")
	}
	if err := fs.Rename(oldPath, newPath); err == nil {
		t.Error("expected error renaming a missing file")
	}
}
