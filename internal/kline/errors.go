package kline

import "fmt"

// Kind classifies why a frame was rejected.
type Kind int

const (
	// KindMalformedPayload: the frame is not JSON or carries no kline object.
	KindMalformedPayload Kind = iota + 1
	// KindFieldError: a required kline field is missing or has the wrong shape.
	KindFieldError
)

func (k Kind) String() string {
	switch k {
	case KindMalformedPayload:
		return "malformed_payload"
	case KindFieldError:
		return "field_error"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode for every rejected frame.
type DecodeError struct {
	Kind  Kind
	Field string // set for KindFieldError
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Kind == KindFieldError {
		return fmt.Sprintf("kline: field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("kline: %s: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(err error) error {
	return &DecodeError{Kind: KindMalformedPayload, Err: err}
}

func fieldErr(field string, err error) error {
	return &DecodeError{Kind: KindFieldError, Field: field, Err: err}
}
