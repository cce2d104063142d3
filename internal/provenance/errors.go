package provenance

import (
	"errors"
	"fmt"
)

// Sentinel errors for record lifecycle violations.
var (
	// ErrAlreadyCompleted is returned by MarkCompleted when the record is
	// already sealed. The original completion time is preserved.
	ErrAlreadyCompleted = errors.New("provenance record already completed")

	// ErrEntityIDSet is returned by SetEntityID when an entity id has
	// already been recorded.
	ErrEntityIDSet = errors.New("provenance record entity id already set")
)

// NotFoundError reports an absent run or IR in the store.
type NotFoundError struct {
	Kind string // "run" or "generation IR"
	ID   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
