package client

import "errors"

// Client-internal error kinds (spec §7). These never appear on the wire —
// they classify failures the worker or a public method can hit locally.
var (
	ErrNotConnected     = errors.New("client: not connected")
	ErrFrameTooLarge    = errors.New("client: frame too large")
	ErrTimeout          = errors.New("client: timeout")
	ErrConnectionClosed = errors.New("client: connection closed")
	ErrCancelled        = errors.New("client: operation cancelled")
)

// protocolError wraps an unexpected-response condition with its reason,
// modeling spec §7's Protocol(<reason>) kind.
type protocolError struct{ reason string }

func (e *protocolError) Error() string { return "client: protocol: " + e.reason }

func newProtocolError(reason string) error { return &protocolError{reason: reason} }

// decodeError wraps a payload-decode failure, modeling spec §7's
// Decode(<reason>) kind.
type decodeError struct{ reason string }

func (e *decodeError) Error() string { return "client: decode: " + e.reason }

func newDecodeError(reason string) error { return &decodeError{reason: reason} }
