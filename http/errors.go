package http

import (
	"errors"
	"fmt"
)

// Kind classifies the errors returned by the request builder and the
// dispatch path.
type Kind int

const (
	// KindUsage is an operation on a builder that was already dispatched.
	KindUsage Kind = iota + 1

	// KindInvalidURI is a malformed or missing target URI.
	KindInvalidURI

	// KindSerialization is a request body that cannot be encoded as JSON.
	KindSerialization

	// KindTransport is a connection, TLS or protocol failure, including
	// faults while draining the response body.
	KindTransport

	// KindEncoding is a response body that is not valid UTF-8 when JSON
	// decoding was requested.
	KindEncoding

	// KindDeserialization is response text that is not a single JSON value
	// of the requested shape.
	KindDeserialization
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage error"
	case KindInvalidURI:
		return "invalid uri"
	case KindSerialization:
		return "serialization error"
	case KindTransport:
		return "transport error"
	case KindEncoding:
		return "encoding error"
	case KindDeserialization:
		return "deserialization error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors, one per Kind. Every *Error matches the sentinel of its
// kind with errors.Is.
var (
	ErrBuilderConsumed = errors.New("request builder already dispatched")
	ErrInvalidURI      = errors.New("invalid uri")
	ErrSerialization   = errors.New("serialization error")
	ErrTransport       = errors.New("transport error")
	ErrEncoding        = errors.New("encoding error")
	ErrDeserialization = errors.New("deserialization error")
)

var sentinelByKind = map[Kind]error{
	KindUsage:           ErrBuilderConsumed,
	KindInvalidURI:      ErrInvalidURI,
	KindSerialization:   ErrSerialization,
	KindTransport:       ErrTransport,
	KindEncoding:        ErrEncoding,
	KindDeserialization: ErrDeserialization,
}

// Error is the error type returned by RequestBuilder operations.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op is the builder operation that failed, e.g. "uri" or "recv_json".
	Op string

	// Err is the underlying cause. It may be nil.
	Err error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinelByKind[e.Kind]
	return ok && sentinel == target
}

// KindOf returns the Kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// TLSInitError is the value NewClient panics with when the TLS backend
// cannot be initialised.
type TLSInitError struct {
	Err error
}

func (e *TLSInitError) Error() string {
	return fmt.Sprintf("http: cannot initialise TLS: %v", e.Err)
}

func (e *TLSInitError) Unwrap() error {
	return e.Err
}
