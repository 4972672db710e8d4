package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vango-dev/start/pkg/chunks"
)

// Sentinel errors.
var (
	// ErrChunkNotFound is returned when the manifest has no such module.
	ErrChunkNotFound = chunks.ErrChunkNotFound

	// ErrExportNotFound is returned when a module lacks the export.
	ErrExportNotFound = chunks.ErrExportNotFound

	// ErrBodyTooLarge is returned when an RPC body exceeds the limit.
	ErrBodyTooLarge = errors.New("server: request body too large")
)

// Reason classifies a rejected RPC request.
type Reason int

const (
	// MethodNotAllowed means the request was not a POST.
	MethodNotAllowed Reason = iota + 1

	// InvalidRequest means the target or body could not be read.
	InvalidRequest
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case MethodNotAllowed:
		return "MethodNotAllowed"
	case InvalidRequest:
		return "InvalidRequest"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// ClassificationError rejects an RPC request before invocation.
type ClassificationError struct {
	Reason  Reason
	Message string
	Err     error
}

// Error implements error.
func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server: %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("server: %s: %s", e.Reason, e.Message)
}

// Unwrap returns the underlying error.
func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for the error.
func (e *ClassificationError) StatusCode() int {
	switch {
	case e.Reason == MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.Is(e.Err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func invalid(msg string, err error) *ClassificationError {
	return &ClassificationError{Reason: InvalidRequest, Message: msg, Err: err}
}

// InvocationError reports a server function that failed or panicked.
type InvocationError struct {
	Module string
	Export string
	Err    error

	// Panic and Stack are set when the function panicked.
	Panic any
	Stack []byte
}

// Error implements error.
func (e *InvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("server: %s#%s panicked: %v", e.Module, e.Export, e.Panic)
	}
	return fmt.Sprintf("server: %s#%s: %v", e.Module, e.Export, e.Err)
}

// Unwrap returns the error returned by the function.
func (e *InvocationError) Unwrap() error {
	return e.Err
}

// Cause is the error delivered to the client. Panic details stay on the
// server.
func (e *InvocationError) Cause() error {
	if e.Panic != nil || e.Err == nil {
		return errors.New("internal server error")
	}
	return e.Err
}
