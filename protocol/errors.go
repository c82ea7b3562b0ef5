package protocol

import (
	"errors"
	"fmt"

	"github.com/sireader/core/frame"
)

// ErrTimeout is returned when no frame arrives within an allowed window.
var ErrTimeout = errors.New("protocol: timeout waiting for frame")

// ErrQueueCleared is returned to any waiter blocked on the message queue
// when the queue is cleared (on Stop, or explicitly).
var ErrQueueCleared = errors.New("protocol: message queue cleared")

// InvalidMessageError reports that a frame arrived but did not carry the
// command byte the caller was expecting.
type InvalidMessageError struct {
	Received    frame.Frame
	Expected    byte
	HasExpected bool
}

func (e *InvalidMessageError) Error() string {
	if e.HasExpected {
		return fmt.Sprintf("protocol: unexpected message 0x%02X, expected 0x%02X", e.Received.Command(), e.Expected)
	}
	return fmt.Sprintf("protocol: unexpected message 0x%02X", e.Received.Command())
}

// ConfigurationMismatchError reports that the station is not configured the
// way the driver requires (extended protocol, handshake mode). Always
// fatal to the driver's startup sequence.
type ConfigurationMismatchError struct {
	Msg string
}

func (e *ConfigurationMismatchError) Error() string {
	return e.Msg
}

// PortFailureError wraps a failure from the underlying Port (write, baud
// rate change, or open). Always fatal.
type PortFailureError struct {
	Err error
}

func (e *PortFailureError) Error() string {
	return fmt.Sprintf("protocol: port failure: %v", e.Err)
}

func (e *PortFailureError) Unwrap() error {
	return e.Err
}

// DecodeFailureError wraps a card-decode error. Should not occur for
// in-spec cards; treated the same as Timeout/InvalidMessage (a recoverable
// per-card PROCESSING_ERROR), never fatal.
type DecodeFailureError struct {
	Err error
}

func (e *DecodeFailureError) Error() string {
	return fmt.Sprintf("protocol: decode failure: %v", e.Err)
}

func (e *DecodeFailureError) Unwrap() error {
	return e.Err
}
