package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()

	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "recording.json")
	testData := []byte(`{"id":"abc"}`)

	err := fs.WriteFile(testPath, testData)
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Read file
	data, err := fs.ReadFile(testPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fs := New()

	tmpDir, err := os.MkdirTemp("", "osfilesystem_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Write to nested path
	testPath := filepath.Join(tmpDir, "a", "b", "c", "test.txt")
	err = fs.WriteFile(testPath, []byte("test"))
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Verify file exists
	exists, err := fs.Exists(testPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()

	tmpDir, err := os.MkdirTemp("", "osfilesystem_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	testPath := filepath.Join(tmpDir, "a", "b", "c")
	err = fs.MkdirAll(testPath)
	if err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	exists, err := fs.Exists(testPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected directory to exist")
	}
}

func TestFileSystem_Exists(t *testing.T) {
	fs := New()

	tmpDir, err := os.MkdirTemp("", "osfilesystem_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Test existing file
	testPath := filepath.Join(tmpDir, "test.txt")
	os.WriteFile(testPath, []byte("test"), 0644)

	exists, err := fs.Exists(testPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}

	// Test non-existing file
	exists, err = fs.Exists(filepath.Join(tmpDir, "nonexistent.txt"))
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected file to not exist")
	}
}

func TestFileSystem_Size(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	testPath := filepath.Join(tmpDir, "clip.mp4")
	if err := fs.WriteFile(testPath, make([]byte, 1234)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	size, err := fs.Size(testPath)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 1234 {
		t.Errorf("expected 1234 bytes, got %d", size)
	}

	if _, err := fs.Size(filepath.Join(tmpDir, "missing.mp4")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := fs.Size(tmpDir); err == nil {
		t.Error("expected an error for a directory")
	}
}

func TestFileSystem_Remove(t *testing.T) {
	fs := New()

	tmpDir, err := os.MkdirTemp("", "osfilesystem_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Create file
	testPath := filepath.Join(tmpDir, "test.txt")
	os.WriteFile(testPath, []byte("test"), 0644)

	// Remove file
	err = fs.Remove(testPath)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// Verify removed
	exists, _ := fs.Exists(testPath)
	if exists {
		t.Error("expected file to be removed")
	}
}

func TestFileSystem_WriteFileAtomic(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "rec", "project.json")

	if err := fs.WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := fs.WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "two" {
		t.Errorf("expected %q, got %q", "two", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestFileSystem_ListDirs(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	for _, d := range []string{"b", "a", ".inprogress"} {
		os.MkdirAll(filepath.Join(tmpDir, d), 0755)
	}
	os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte("x"), 0644)

	names, err := fs.ListDirs(tmpDir)
	if err != nil {
		t.Fatalf("ListDirs failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected [a b], got %v", names)
	}

	names, err = fs.ListDirs(filepath.Join(tmpDir, "missing"))
	if err != nil || len(names) != 0 {
		t.Errorf("missing dir should list empty, got %v, %v", names, err)
	}
}

func TestFileSystem_RenameAndCopy(t *testing.T) {
	fs := New()
	tmpDir := t.TempDir()

	src := filepath.Join(tmpDir, ".inprogress", "id1")
	os.MkdirAll(src, 0755)
	os.WriteFile(filepath.Join(src, "display.mp4"), []byte("video"), 0644)

	dst := filepath.Join(tmpDir, "id1")
	if err := fs.Rename(src, dst); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if exists, _ := fs.Exists(src); exists {
		t.Error("source should be gone after rename")
	}

	out := filepath.Join(tmpDir, "exports", "copy.mp4")
	if err := fs.CopyFile(filepath.Join(dst, "display.mp4"), out); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "video" {
		t.Errorf("expected copied content, got %q", data)
	}

	if err := fs.RemoveAll(dst); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if exists, _ := fs.Exists(dst); exists {
		t.Error("expected directory to be removed")
	}
}
