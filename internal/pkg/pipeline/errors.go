package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so transport layers can map them
// to user-facing responses without string matching.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindModelUnavailable  ErrorKind = "model_unavailable"
	KindInferenceFailure  ErrorKind = "inference_failure"
	KindResizeOutOfRange  ErrorKind = "resize_out_of_range"
	KindStorageFailure    ErrorKind = "storage_failure"
)

type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the ErrorKind carried by err, or an empty kind if err was
// not produced by this package.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
