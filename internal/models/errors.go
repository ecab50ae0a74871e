package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Invocation setup
	ErrConfig  ErrorType = "config_error"
	ErrCatalog ErrorType = "catalog_error"

	// Repository synchronization
	ErrClone  ErrorType = "clone_error"
	ErrUpdate ErrorType = "update_error"
	ErrStage  ErrorType = "stage_error"

	// Aggregation
	ErrParse          ErrorType = "parse_error"
	ErrMergeCollision ErrorType = "merge_collision"

	// Lifecycle
	ErrLifecycle ErrorType = "lifecycle_error"
	ErrNotFound  ErrorType = "not_found"
)

// Error is a classified failure. Component is empty for errors that are not
// tied to a single catalog entry.
type Error struct {
	Type      ErrorType
	Component string
	Err       error
	// Output holds diagnostics captured from an external collaborator.
	Output string
}

// NewError returns an *Error of the given type wrapping err.
func NewError(t ErrorType, component string, err error) *Error {
	return &Error{Type: t, Component: component, Err: err}
}

// Errorf builds an *Error with a formatted cause.
func Errorf(t ErrorType, component, format string, args ...any) *Error {
	return &Error{Type: t, Component: component, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}
