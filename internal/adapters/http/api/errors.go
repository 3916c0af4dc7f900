package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBodyTooLarge = errors.New("request body too large")
)

// Messages returned to callers for rejected bodies.
const (
	missingKeysMessage    = "Invalid request body: Missing required keys."
	malformedBodyMessage  = "Invalid request body: malformed JSON."
	invalidStartMessage   = "Invalid request body: startTime is not a valid timestamp."
	bodyTooLargeMessage   = "Request body too large."
	internalServerMessage = "internal server error"
)

// Error carries the failing operation, a sentinel kind for errors.Is, and
// the message shown to the caller.
type Error struct {
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and kind; msg is what the caller sees.
func WrapKind(op string, kind error, msg string, err error) error {
	return &Error{Op: op, Kind: kind, Message: msg, Err: err}
}

// NewKind builds an error of kind with a caller-facing message.
func NewKind(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Message: msg}
}
