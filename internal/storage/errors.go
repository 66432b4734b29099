package storage

import "fmt"

// StorageError wraps a failure in a store operation with enough
// context to identify the operation, dataset kind and file involved.
type StorageError struct {
	Op      string // operation: "read", "append", "last_date"
	Dataset string // dataset kind: "prices", "positioning"
	Path    string // file path, empty for memory stores
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage %s failed for %s store %s: %v", e.Op, e.Dataset, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s failed for %s store: %v", e.Op, e.Dataset, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error.
func NewStorageError(op, dataset, path string, err error) *StorageError {
	return &StorageError{Op: op, Dataset: dataset, Path: path, Err: err}
}
