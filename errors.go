package cbus

import "errors"

// Sentinel errors. Call sites that need frame-specific context wrap them
// with fmt.Errorf("...: %w", err).
var (
	ErrBadChecksum      = errors.New("cbus: bad frame checksum")
	ErrShortFrame       = errors.New("cbus: short frame")
	ErrUnknownEnvelope  = errors.New("cbus: unknown packet envelope")
	ErrTruncatedPayload = errors.New("cbus: truncated application payload")

	ErrConfirmTimeout = errors.New("cbus: confirmation timeout")
	ErrConfirmNack    = errors.New("cbus: confirmation nack")
	ErrAbandoned      = errors.New("cbus: command abandoned after max attempts")
	ErrConnectionLost = errors.New("cbus: connection lost")
	ErrFatalProtocol  = errors.New("cbus: fatal protocol error")
	ErrClosed         = errors.New("cbus: engine closed")
)
