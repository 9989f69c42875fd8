package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the normalized category of a failure. Every error surfaced by the
// data access layer carries exactly one kind; raw transport errors never
// escape unclassified.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindQuota      Kind = "quota"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindServer     Kind = "server"
	KindAborted    Kind = "aborted"
	KindUnknown    Kind = "unknown"
)

// Error is a classified application error. Status is the HTTP-like status of
// the underlying failure, zero when the request never reached the service.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error wrapping an underlying cause.
func NewError(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// Validationf creates a validation error. Validation failures are raised
// before any network I/O and are never retried.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrNotFound is thrown when a requested resource does not exist
	ErrNotFound = &Error{Kind: KindNotFound, Status: 404, Message: "resource not found"}

	// ErrAborted is thrown when an in-flight operation was cancelled by a
	// newer operation under the same request key
	ErrAborted = &Error{Kind: KindAborted, Message: "operation aborted"}
)

// networkSubstrings are message fragments that identify transport-level
// failures regardless of status code.
var networkSubstrings = []string{
	"failed to fetch",
	"network",
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"timed out",
	"broken pipe",
	"eof",
}

// Classify maps an HTTP-like status, an error name, and a message onto a
// Kind. First match wins, in this priority order: auth, validation, quota,
// not-found, conflict, network, server. Anything left is unknown.
func Classify(status int, name, message string) Kind {
	switch status {
	case 401, 403:
		return KindAuth
	case 400, 422:
		return KindValidation
	case 429:
		return KindQuota
	case 404:
		return KindNotFound
	case 409:
		return KindConflict
	}

	lower := strings.ToLower(message)
	if status == 0 || name == "AbortError" || name == "TimeoutError" || name == "NetworkError" {
		return KindNetwork
	}
	for _, s := range networkSubstrings {
		if strings.Contains(lower, s) {
			return KindNetwork
		}
	}
	if status >= 500 {
		return KindServer
	}
	return KindUnknown
}

// KindOf extracts the kind from any error. Context cancellation maps to
// KindAborted so registry-cancelled calls are distinguishable from genuine
// failures. Unclassified errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindAborted
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Retryable reports whether an error is eligible for automatic retry.
// Only transport failures and 5xx server errors qualify.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer:
		return true
	}
	return false
}

// IsAborted reports whether an error means the operation was cancelled
// rather than failed. Aborted operations are suppressed from user-facing
// error surfaces.
func IsAborted(err error) bool {
	return KindOf(err) == KindAborted
}

// userMessages maps error kinds to the message shown to the user.
var userMessages = map[Kind]string{
	KindNetwork:    "Connection problem. Check your network and try again.",
	KindAuth:       "You are not signed in, or your session has expired.",
	KindValidation: "Some of the entered data is invalid.",
	KindQuota:      "Too many requests. Please wait a moment.",
	KindNotFound:   "The requested item could not be found.",
	KindConflict:   "The item was changed elsewhere. Reload and try again.",
	KindServer:     "The service is having trouble. Please try again shortly.",
}

// UserMessage selects a user-facing message for an error by its kind.
// Unknown kinds fall back to a generic try-again message.
func UserMessage(err error) string {
	if msg, ok := userMessages[KindOf(err)]; ok {
		return msg
	}
	return "Something went wrong. Please try again."
}
