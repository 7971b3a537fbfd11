package ports

import "io"

// FileSystem abstracts the file operations used by the recording store and
// the render engine.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating parent directories.
	WriteFile(path string, data []byte) error

	// WriteFileAtomic writes data to a temporary sibling and renames it
	// over path, so readers never observe a partial file.
	WriteFileAtomic(path string, data []byte) error

	// Create opens a new file for writing, truncating any existing one.
	Create(path string) (io.WriteCloser, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Size returns the length of a file in bytes.
	Size(path string) (int64, error)

	// Rename moves a file or directory.
	Rename(oldPath, newPath string) error

	// Remove deletes a file or empty directory.
	Remove(path string) error

	// RemoveAll deletes a path and everything below it.
	RemoveAll(path string) error

	// ListDirs returns the names of the immediate subdirectories of path.
	ListDirs(path string) ([]string, error)

	// CopyFile copies src to dst.
	CopyFile(src, dst string) error
}
