package domain

import (
	"errors"
	"fmt"
)

// ArgumentError signals a violated precondition on request input.
// It is answered with a 400 carrying Message verbatim.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return e.Message
}

// InvalidArgument builds an ArgumentError from a formatted message.
func InvalidArgument(format string, args ...any) error {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}

// ErrInvalidSessionSignature is returned when the session cookie does not match its signature.
// It is an ArgumentError so it is rejected with a 400, never downgraded to an anonymous session.
var ErrInvalidSessionSignature error = &ArgumentError{Message: "invalid restx session signature"}

// ParseError describes a request body that failed to parse as structured input.
type ParseError struct {
	Kind    string // Concrete failure kind, UpperCamel (e.g. "SyntaxError")
	Line    int    // 1-based
	Column  int    // 1-based
	Message string // Short message, without location
	Err     error  // Underlying decoder error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d: %s", e.Kind, e.Line, e.Column, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsArgumentError reports whether err carries an ArgumentError.
func IsArgumentError(err error) bool {
	var argErr *ArgumentError
	return errors.As(err, &argErr)
}
