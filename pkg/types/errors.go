package types

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the engine matches exactly one of
// these with errors.Is.
var (
	// ErrIO reports a missing or unreadable schema or database file. Raised
	// before anything is mutated.
	ErrIO = errors.New("file missing or unreadable")

	// ErrSchemaApply reports a schema script that failed against the
	// destination. The destination is left for inspection.
	ErrSchemaApply = errors.New("schema apply failed")

	// ErrRowCopy reports a single row that could not be inserted. Recorded
	// and skipped.
	ErrRowCopy = errors.New("row copy failed")

	// ErrTableCopy reports a table that could not be described or read.
	// Recorded and skipped.
	ErrTableCopy = errors.New("table copy failed")

	// ErrCommit reports a destination transaction that did not commit.
	ErrCommit = errors.New("commit failed")

	// ErrFailureThreshold reports a copy whose row failure rate exceeded
	// Config.FailureThreshold.
	ErrFailureThreshold = errors.New("row failure threshold exceeded")

	// ErrSwapLocked reports a source file held by another process at
	// replacement time. Neither file is lost.
	ErrSwapLocked = errors.New("database file is locked")

	// ErrUnexpected wraps anything else that halts a run.
	ErrUnexpected = errors.New("unexpected error")

	// ErrConfigInvalid reports an unusable Config.
	ErrConfigInvalid = errors.New("invalid config")
)

// Error carries an error kind together with the operation and path that
// produced it.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // operation being performed (load schema, backup, ...)
	Path string // file involved, if any
	Err  error  // underlying error
}

// NewError creates an Error of the given kind.
func NewError(kind error, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// KindOf returns the error kind carried by err, or ErrUnexpected when err
// carries none. It returns nil for a nil error.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrConfigInvalid) {
		return ErrConfigInvalid
	}
	return ErrUnexpected
}
