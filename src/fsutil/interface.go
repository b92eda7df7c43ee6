package fsutil

// FileStore provides an interface for file system operations
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// Size returns the size of a regular file in bytes
	Size(path string) (int64, error)
}
