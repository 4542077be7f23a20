package protocol

import (
	"errors"
	"fmt"
)

// ErrFrameTooLarge means the frame header declared a negative length or one
// above the configured maximum. There is no resync point after it.
var ErrFrameTooLarge = errors.New("declared frame length out of range")

// DecodeError reports a payload that matches no known layout. Framing has
// already advanced past the frame, so the connection can continue.
type DecodeError struct {
	Kind   PacketKind
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
}

func newDecodeError(kind PacketKind, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
