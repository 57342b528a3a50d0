package sioclient

import "fmt"

// EncodeError reports a packet whose payload could not be serialized
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode: %v", e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed inbound frame. Raw carries the
// offending wire text.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
