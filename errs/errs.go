// Package errs defines the disjoint error-kind taxonomy shared by the page
// file, buffer pool, and record manager layers.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which of the documented failure modes an Error carries.
// Unlike the original C enumeration this set is disjoint: every Kind maps
// to exactly one meaning.
type Kind int

const (
	OK Kind = iota
	FileNotFound
	CreateFailed
	NonExistingPage
	NumBytesFailed
	SeekFailed
	ReadFailed
	WriteFailed
	MemAllocFailed
	ShutdownFailed
	PageNotFound
	StrategyNotFound
	ForceFlushFailed
	NoFrame
	RecordNotExist
	NoMoreTuples
	InvalidSchema
	UnknownDataType
	NullPointer
	InvalidArg
)

var names = map[Kind]string{
	OK:               "OK",
	FileNotFound:     "FILE_NOT_FOUND",
	CreateFailed:     "CREATE_FAILED",
	NonExistingPage:  "NON_EXISTING_PAGE",
	NumBytesFailed:   "NUM_BYTES_FAILED",
	SeekFailed:       "SEEK_FAILED",
	ReadFailed:       "READ_FAILED",
	WriteFailed:      "WRITE_FAILED",
	MemAllocFailed:   "MEM_ALLOC_FAILED",
	ShutdownFailed:   "SHUTDOWN_FAILED",
	PageNotFound:     "PAGE_NOT_FOUND",
	StrategyNotFound: "STRATEGY_NOT_FOUND",
	ForceFlushFailed: "FORCE_FLUSH_FAILED",
	NoFrame:          "NO_FRAME",
	RecordNotExist:   "RECORD_NOT_EXIST",
	NoMoreTuples:     "NO_MORE_TUPLES",
	InvalidSchema:    "INVALID_SCHEMA",
	UnknownDataType:  "UNKNOWN_DATATYPE",
	NullPointer:      "NULL_POINTER",
	InvalidArg:       "INVALID_ARG",
}

// String renders the Kind's external name, e.g. "NON_EXISTING_PAGE".
func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned across package boundaries in this
// module. It carries a Kind a caller can switch on plus a human-readable
// message, and wraps a github.com/pkg/errors cause that records a stack
// trace from the point the Error was built. Formatting the Error itself
// with %+v prints only its Error() text; the trace is printed by
// formatting Unwrap()'s result with %+v.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As keep working.
func (e *Error) Unwrap() error { return e.err }

// New builds a Kind-tagged error with a stack trace rooted here.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg, err: errors.New(msg)}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap attaches a Kind to an existing error, preserving it as the cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, msg: msg, err: errors.Wrap(err, msg)}
}

// Is reports whether err (or any error it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// As extracts the Kind carried by err, if any.
func As(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return OK, false
}
