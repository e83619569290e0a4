package internal

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return &StorageError{Path: path, Op: "write", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &StorageError{Path: path, Op: "rename", Err: err}
	}

	return nil
}

// EnsureDir creates dir if needed. Failures are only logged: the directory
// usually exists already, and a real problem surfaces on the following write.
func EnsureDir(dir string) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		LogDebug("Ignoring mkdir error for %s: %v", dir, err)
	}
}
