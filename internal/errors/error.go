package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryCodec   Category = "codec"
	CategoryRPC     Category = "rpc"
	CategoryRender  Category = "render"
	CategoryIslands Category = "islands"
	CategoryStatic  Category = "static"
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
)

// StartError is a structured error with a code, an explanation and a fix
// suggestion.
type StartError struct {
	// Code is a unique error identifier (e.g., "E110").
	Code string

	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *StartError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *StartError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *StartError) WithSuggestion(s string) *StartError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *StartError) WithDetail(d string) *StartError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *StartError) Wrap(err error) *StartError {
	e.Wrapped = err
	return e
}

// New creates a StartError from a registered error code.
func New(code string) *StartError {
	template, ok := registry[code]
	if !ok {
		return &StartError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &StartError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		DocURL:     template.DocURL,
	}
}

// Newf creates a new StartError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *StartError {
	return &StartError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a StartError. Known framework errors
// get their own code; anything else gets code.
func FromError(err error, code string) *StartError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StartError); ok {
		return se
	}
	if known := codeFor(err); known != "" {
		code = known
	}
	return New(code).Wrap(err)
}
