// Package wire implements the RMI frame codec: a 4-byte big-endian length
// prefix followed by that many payload bytes. It has no knowledge of
// commands or responses — those live in internal/rmiproto.
package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"
)

// HeaderSize is the length of the frame length-prefix in bytes.
const HeaderSize = 4

// Read errors. Callers distinguish these with errors.Is.
var (
	// ErrTimeout means the deadline elapsed before a full frame arrived.
	ErrTimeout = errors.New("wire: timeout")
	// ErrClosed means the peer closed the connection mid-frame.
	ErrClosed = errors.New("wire: connection closed")
	// ErrFrameTooLarge means the announced length exceeded the caller's cap.
	ErrFrameTooLarge = errors.New("wire: frame too large")
)

// EncodeFrame returns the wire representation of payload: a 4-byte
// big-endian length prefix followed by payload itself. A nil payload
// encodes the same as an empty one.
func EncodeFrame(payload []byte) []byte {
	frame := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame[:HeaderSize], uint32(len(payload)))
	copy(frame[HeaderSize:], payload)
	return frame
}

// WriteFrame encodes and writes payload to w in one Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(EncodeFrame(payload))
	return err
}

// deadlineConn is satisfied by net.Conn; ReadFrame falls back to plain
// io.Reader semantics (no deadline support) when conn doesn't implement it.
type deadlineConn interface {
	SetReadDeadline(t time.Time) error
}

// ReadFrame reads one frame from r: a 4-byte big-endian length prefix, then
// exactly that many payload bytes.
//
// If maxBytes > 0 and the announced length exceeds it, ReadFrame returns
// ErrFrameTooLarge without attempting to drain the announced payload — the
// caller owns deciding whether the connection is still usable.
//
// If deadline is non-zero and r implements SetReadDeadline (as net.Conn
// does), the deadline is applied to both the header and payload reads; a
// timeout is reported as ErrTimeout. Any short read (EOF before the header
// or before length bytes are collected) is reported as ErrClosed. Any other
// I/O error is returned as-is.
func ReadFrame(r io.Reader, maxBytes uint32, deadline time.Time) ([]byte, error) {
	if dc, ok := r.(deadlineConn); ok {
		if err := dc.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, classifyReadErr(err)
	}

	length := binary.BigEndian.Uint32(header)
	if maxBytes > 0 && length > maxBytes {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, classifyReadErr(err)
		}
	}
	return payload, nil
}

func classifyReadErr(err error) error {
	if err == nil {
		return nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrClosed
	}
	return err
}

// PayloadEquals reports whether payload is byte-for-byte equal to text.
func PayloadEquals(payload []byte, text string) bool {
	return string(payload) == text
}

// PayloadStartsWith reports whether payload begins with text.
func PayloadStartsWith(payload []byte, text string) bool {
	if len(payload) < len(text) {
		return false
	}
	return string(payload[:len(text)]) == text
}
