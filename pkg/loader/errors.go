package loader

import "errors"

// Load failure classes. Every error returned by the loader wraps exactly one
// of them, so callers classify with [errors.Is].
var (
	// ErrInvalidArgument indicates a missing source reference or dependency.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound indicates the source does not exist.
	ErrNotFound = errors.New("source not found")
	// ErrFormat indicates a missing header row or a header without the required columns.
	ErrFormat = errors.New("invalid header")
	// ErrIO indicates any other read or parse failure.
	ErrIO = errors.New("read failure")
)
