package jetstream

import (
	"fmt"
)

// DecodeError indicates a malformed or unexpected frame. The payload is retained for diagnostic logging only.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding event: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Preview returns at most max bytes of the payload, for log lines.
func (e *DecodeError) Preview(max int) string {
	if len(e.Payload) <= max {
		return string(e.Payload)
	}
	return string(e.Payload[:max]) + "..."
}

// TransportError indicates a connection-level failure. It ends the stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport (%s): %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
