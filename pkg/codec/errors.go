package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the codec.
var (
	// ErrUnsupported is wrapped by CodecError when a value has no encoding.
	ErrUnsupported = errors.New("codec: unsupported value")

	// ErrMaxDepth is returned when a payload nests deeper than MaxDepth.
	ErrMaxDepth = errors.New("codec: max depth exceeded")

	// ErrAbandoned terminates a stream closed before its terminal frame.
	ErrAbandoned = errors.New("codec: stream abandoned before terminal frame")

	// ErrScopeInUse is returned when a scope id is opened twice.
	ErrScopeInUse = errors.New("codec: scope id already open")
)

// MaxDepth bounds nesting in both directions.
const MaxDepth = 512

// CodecError reports a value that cannot be represented on the wire.
type CodecError struct {
	// Path locates the value inside the payload, e.g. "$.items[2].fn".
	Path string
	// Type is the Go type or wire tag that failed.
	Type string
	Err  error
}

// Error implements error.
func (e *CodecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("codec: %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("codec: %s at %s: %v", e.Type, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *CodecError) Unwrap() error {
	return e.Err
}

func unsupported(path, typ string) *CodecError {
	return &CodecError{Path: path, Type: typ, Err: ErrUnsupported}
}
