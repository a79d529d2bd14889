package bus

import (
	"errors"
	"fmt"
)

var (
	ErrBusClosed        = errors.New("bus closed")
	ErrAlreadyStarted   = errors.New("worker already started")
	ErrNilHandler       = errors.New("nil handler")
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrMissingHandler   = errors.New("missing handler")
	ErrShutdownTimeout  = errors.New("worker shutdown timed out")
)

// MalformedMessageError reports a payload whose shape did not match its
// kind. Detected at dispatch, never at enqueue.
type MalformedMessageError struct {
	Msg  Message
	Want string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message %s kind=%s: payload %T, want %s",
		e.Msg.ID, e.Msg.Kind, e.Msg.Payload, e.Want)
}

// Malformed builds the error a handler returns when its type assertion
// on the payload fails.
func Malformed(msg Message, want string) error {
	return &MalformedMessageError{Msg: msg, Want: want}
}

// HandlerPanicError wraps a recovered panic from a message handler so it
// can be logged like any other per-message failure.
type HandlerPanicError struct {
	Msg   Message
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panic on message %s kind=%s: %v", e.Msg.ID, e.Msg.Kind, e.Value)
}
