package revstore

import (
	"errors"
	"fmt"
)

// DuplicateRevisionError reports an append whose payload hashes to a
// revision id that already exists for the entity. The store treats a
// resubmitted identical payload as a hard error rather than deduplicating;
// the caller decides whether a resubmission is meaningful.
type DuplicateRevisionError struct {
	EntityKey  string
	RevisionID string
}

// Error implements the error interface.
func (e *DuplicateRevisionError) Error() string {
	return fmt.Sprintf("revision %s already exists for entity %s", e.RevisionID, e.EntityKey)
}

// IsDuplicate reports whether err is (or wraps) a DuplicateRevisionError.
func IsDuplicate(err error) bool {
	var d *DuplicateRevisionError
	return errors.As(err, &d)
}

// StorageError reports an underlying persistence failure. It propagates to
// the caller without internal retry; retry policy belongs to the storage
// collaborator.
type StorageError struct {
	Op   string // "append", "read revision", ...
	Path string
	Err  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying I/O error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}

// NotFoundError reports an absent entity or revision.
type NotFoundError struct {
	EntityKey  string
	RevisionID string // empty when the entity itself has no history
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.RevisionID != "" {
		return fmt.Sprintf("revision %s not found for entity %s", e.RevisionID, e.EntityKey)
	}
	return fmt.Sprintf("entity %s has no revisions", e.EntityKey)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
