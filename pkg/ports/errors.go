package ports

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a terminal failure of a locate request.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindOutOfRange
	KindSeekFailed
	KindDecodeError
	KindExhausted
	KindEncodeFailed
	KindOpenFailed
	KindNotFound
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindOutOfRange:
		return "out_of_range"
	case KindSeekFailed:
		return "seek_failed"
	case KindDecodeError:
		return "decode_error"
	case KindExhausted:
		return "exhausted"
	case KindEncodeFailed:
		return "encode_failed"
	case KindOpenFailed:
		return "open_failed"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a failure kind together with the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds an *Error with a formatted cause.
func NewError(kind ErrorKind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapError attaches a kind to an existing error.
func WrapError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
