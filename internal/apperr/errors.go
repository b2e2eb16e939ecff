// Package apperr defines the error kinds shared by the matching and discovery pipeline.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide how to react without string matching.
type Kind string

const (
	KindUnknown                Kind = "UNKNOWN"
	KindInput                  Kind = "INPUT_ERROR"
	KindNotFound               Kind = "NOT_FOUND"
	KindEmbeddingUnavailable   Kind = "EMBEDDING_UNAVAILABLE"
	KindIndexUnavailable       Kind = "INDEX_UNAVAILABLE"
	KindAdapterFailure         Kind = "ADAPTER_FAILURE"
	KindValidationInconclusive Kind = "VALIDATION_INCONCLUSIVE"
)

var (
	ErrInput                  = &Error{Kind: KindInput}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrEmbeddingUnavailable   = &Error{Kind: KindEmbeddingUnavailable}
	ErrIndexUnavailable       = &Error{Kind: KindIndexUnavailable}
	ErrAdapterFailure         = &Error{Kind: KindAdapterFailure}
	ErrValidationInconclusive = &Error{Kind: KindValidationInconclusive}
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind      Kind
	Op        string
	Message   string
	Retryable bool
	Timeout   bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrInput) works
// regardless of op or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Timeout: isTimeout(err), Retryable: kind != KindInput}
}

func Input(op, format string, args ...any) *Error {
	return &Error{Kind: KindInput, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " not found"}
}

func EmbeddingUnavailable(op string, err error) *Error {
	return Wrap(KindEmbeddingUnavailable, op, err)
}

func IndexUnavailable(op string, err error) *Error {
	return Wrap(KindIndexUnavailable, op, err)
}

func AdapterFailure(source string, err error) *Error {
	return &Error{Kind: KindAdapterFailure, Op: "fetch " + source, Err: err, Timeout: isTimeout(err), Retryable: true}
}

func ValidationInconclusive(op, message string) *Error {
	return &Error{Kind: KindValidationInconclusive, Op: op, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether err is, or wraps, a deadline expiry.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Timeout {
		return true
	}
	return isTimeout(err)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
