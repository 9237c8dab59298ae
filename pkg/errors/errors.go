package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error for callers: it decides the HTTP status and
// whether the failed operation is worth retrying.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindConflict          Kind = "CONFLICT"
	KindNotFound          Kind = "NOT_FOUND"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindForbidden         Kind = "FORBIDDEN"
	KindLocalPersistence  Kind = "LOCAL_PERSISTENCE"
	KindRemoteUnreachable Kind = "REMOTE_UNREACHABLE"
	KindRemoteTimeout     Kind = "REMOTE_TIMEOUT"
	KindRemoteRejected    Kind = "REMOTE_REJECTED"
	KindInternal          Kind = "INTERNAL"
)

// AppError carries a machine-readable kind and a human message. The wrapped
// cause never reaches API responses; it is for logs only.
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the same operation can succeed without
// the caller changing its input.
func (e *AppError) Retryable() bool {
	switch e.Kind {
	case KindLocalPersistence, KindRemoteUnreachable, KindRemoteTimeout:
		return true
	}
	return false
}

func New(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Validation(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Err: err}
}

func Conflict(message string, err error) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource), Err: err}
}

func Unauthorized(err error) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: "unauthorized", Err: err}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func LocalPersistence(err error) *AppError {
	return &AppError{Kind: KindLocalPersistence, Message: "storage temporarily unavailable", Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal server error", Err: err}
}

// AsAppError unwraps err to the first AppError in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
