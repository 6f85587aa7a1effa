package store

import (
	"errors"
	"fmt"
)

// Error is the domain error returned by folder/file stores and the
// components built on them.
//
// These are business logic failures (entry missing, title conflict, denied
// access) as opposed to infrastructure failures. Remote backend failures are
// wrapped as ErrRemoteProvider and keep their cause for errors.Unwrap.
type Error struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the entry identifier or path the error relates to, when known.
	Path string

	// Cause is the underlying error, if any.
	Cause error
}

// ErrorCode categorizes store errors.
type ErrorCode int

const (
	// ErrNotFound indicates the entry or its parent does not exist.
	// Remote "not found" and a dangling identifier mapping both normalize
	// to this code.
	ErrNotFound ErrorCode = iota

	// ErrSecurityDenied indicates the security oracle rejected the caller.
	ErrSecurityDenied

	// ErrConflict indicates a title collision that survived suffixing, or
	// an edit lock held by another user.
	ErrConflict

	// ErrUnsupported indicates the backend cannot perform the operation,
	// e.g. pre-signed URLs on providers without them.
	ErrUnsupported

	// ErrUploadProtocol indicates a chunked-upload protocol violation:
	// a chunk overflowing BytesTotal or resuming a finalized session.
	ErrUploadProtocol

	// ErrRemoteProvider wraps a backend-specific remote failure.
	ErrRemoteProvider

	// ErrInvalidArgument indicates malformed parameters, such as an
	// identifier of the wrong kind for the store.
	ErrInvalidArgument

	// ErrCancelled indicates a long-running operation observed caller
	// cancellation. Work completed before the cancellation is retained.
	ErrCancelled
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = msg + ": " + e.Path
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound builds an ErrNotFound error for the given identifier.
func NotFound(path string) *Error {
	return &Error{Code: ErrNotFound, Message: "entry not found", Path: path}
}

// SecurityDenied builds an ErrSecurityDenied error.
func SecurityDenied(path string) *Error {
	return &Error{Code: ErrSecurityDenied, Message: "access denied", Path: path}
}

// Conflict builds an ErrConflict error with a formatted message.
func Conflict(format string, v ...any) *Error {
	return &Error{Code: ErrConflict, Message: fmt.Sprintf(format, v...)}
}

// Unsupported builds an ErrUnsupported error.
func Unsupported(op string) *Error {
	return &Error{Code: ErrUnsupported, Message: "operation not supported: " + op}
}

// UploadProtocol builds an ErrUploadProtocol error with a formatted message.
func UploadProtocol(format string, v ...any) *Error {
	return &Error{Code: ErrUploadProtocol, Message: fmt.Sprintf(format, v...)}
}

// RemoteProvider wraps a backend failure, never swallowing the cause.
func RemoteProvider(path string, cause error) *Error {
	return &Error{Code: ErrRemoteProvider, Message: "remote provider error", Path: path, Cause: cause}
}

// InvalidArgument builds an ErrInvalidArgument error with a formatted message.
func InvalidArgument(format string, v ...any) *Error {
	return &Error{Code: ErrInvalidArgument, Message: fmt.Sprintf(format, v...)}
}

// Cancelled builds an ErrCancelled error.
func Cancelled(op string) *Error {
	return &Error{Code: ErrCancelled, Message: "operation cancelled: " + op}
}

// CodeOf extracts the store error code from err. ok is false when err is not
// a store error.
func CodeOf(err error) (ErrorCode, bool) {
	var se *Error
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Code, true
}

// IsNotFound reports whether err is a store error with code ErrNotFound.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}

// IsConflict reports whether err is a store error with code ErrConflict.
func IsConflict(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrConflict
}
