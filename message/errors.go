package message

import "fmt"

// FramingError is returned by the decoder when the wire bytes cannot be
// interpreted as a valid message: an unknown type tag, a truncated read, a
// length declaration that does not match what follows, or a payload that
// exceeds the wire limit. The transport should treat this as fatal for the
// connection it came from.
type FramingError struct {
	Op  string // which decode step failed, e.g. "tag", "header", "payload"
	Err error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("message: framing error in %s: %v", e.Op, e.Err)
}

func (e *FramingError) Unwrap() error { return e.Err }

func framingErrorf(op, format string, args ...any) error {
	return &FramingError{Op: op, Err: fmt.Errorf(format, args...)}
}

// ConstructionError is returned by a smart constructor when asked to build a
// variant that violates one of its shape invariants (e.g. a GET constructor
// given a non-GET/GETX type, or a sharer list longer than 65535 entries).
// These are programming errors: callers should treat them as fatal.
type ConstructionError struct {
	Field string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("message: construction error for field %s: %v", e.Field, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

func constructionErrorf(field, format string, args ...any) error {
	return &ConstructionError{Field: field, Err: fmt.Errorf(format, args...)}
}

// StateError is returned by a direction-sensitive setter when called on a
// message whose direction forbids it, e.g. SetReplyRequired on an incoming
// message.
type StateError struct {
	Method string
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("message: state error calling %s: %v", e.Method, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

func stateErrorf(method, format string, args ...any) error {
	return &StateError{Method: method, Err: fmt.Errorf(format, args...)}
}
