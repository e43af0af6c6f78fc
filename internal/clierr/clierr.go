// Package clierr defines structured error types for CLI commands.
// Errors carry a machine-readable code, a human-readable message,
// and optional details for scripted consumers.
package clierr

import (
	"errors"
	"fmt"
	"strconv"
)

// Error code constants: uppercase, underscore-separated, stable across minor versions.
const (
	TaskNotFound        = "TASK_NOT_FOUND"
	NotAuthenticated    = "NOT_AUTHENTICATED"
	InvalidCredentials  = "INVALID_CREDENTIALS"
	InvalidInput        = "INVALID_INPUT"
	InvalidStatus       = "INVALID_STATUS"
	InvalidPriority     = "INVALID_PRIORITY"
	InvalidDate         = "INVALID_DATE"
	InvalidTaskID       = "INVALID_TASK_ID"
	InvalidPageSize     = "INVALID_PAGE_SIZE"
	InvalidSort         = "INVALID_SORT"
	EmptyComment        = "EMPTY_COMMENT"
	NoIdentity          = "NO_IDENTITY"
	NotCommentAuthor    = "NOT_COMMENT_AUTHOR"
	ConfirmationReq     = "CONFIRMATION_REQUIRED"
	NoChanges           = "NO_CHANGES"
	ConfigNotFound      = "CONFIG_NOT_FOUND"
	ConfigAlreadyExists = "CONFIG_ALREADY_EXISTS"
	RequestFailed       = "REQUEST_FAILED"
	TokenExpired        = "TOKEN_EXPIRED"
	UnknownResource     = "UNKNOWN_RESOURCE"
	InternalError       = "INTERNAL_ERROR"
)

// Error represents a structured CLI error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// ExitCode returns 2 for InternalError, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// SilentError signals an exit code without additional output.
// Used when results were already written to stdout.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
