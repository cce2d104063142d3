package ir

import (
	"errors"
	"fmt"
)

// SerializationError reports a payload that cannot be canonicalized.
//
// Canonicalization failures are never recoverable by retrying: the payload
// itself carries content (non-finite numbers, unsupported types) that has no
// deterministic canonical form. Callers must sanitize before hashing.
type SerializationError struct {
	// Path locates the offending value within the payload, e.g.
	// "params.weights[2]". Empty for the root value.
	Path string

	// Msg describes why the value cannot be canonicalized.
	Msg string
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cannot canonicalize %s: %s", e.Path, e.Msg)
	}
	return fmt.Sprintf("cannot canonicalize payload: %s", e.Msg)
}

// IsSerializationError reports whether err is (or wraps) a SerializationError.
func IsSerializationError(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}

// serErr builds a SerializationError at the given path.
func serErr(path, format string, args ...any) *SerializationError {
	return &SerializationError{Path: path, Msg: fmt.Sprintf(format, args...)}
}

// joinPath appends a path segment for error reporting.
func joinPath(base, seg string) string {
	if base == "" {
		return seg
	}
	return base + "." + seg
}
