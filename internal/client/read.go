package client

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

// readStep bounds each individual Read call so the stop flag and overall
// deadline are both re-checked at least this often (spec §5 "Timeouts":
// "reads are broken into ≤1 s steps").
const readStep = time.Second

// readExact fills buf completely, reading in ≤readStep chunks against conn
// so the stop channel is observed between chunks even while the overall
// deadline has time left. onProgress, if non-nil, is called after every
// successful chunk with the cumulative bytes read so far.
func readExact(conn net.Conn, buf []byte, deadline time.Time, stop <-chan struct{}, onProgress func(total int)) error {
	total := 0
	for total < len(buf) {
		select {
		case <-stop:
			return ErrCancelled
		default:
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		step := readStep
		if remaining < step {
			step = remaining
		}
		if err := conn.SetReadDeadline(time.Now().Add(step)); err != nil {
			return err
		}

		n, err := conn.Read(buf[total:])
		total += n
		if n > 0 && onProgress != nil {
			onProgress(total)
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrConnectionClosed
			}
			return err
		}
	}
	return nil
}

// readFrame reads one length-prefixed frame from conn using readExact for
// both the header and the payload, so cancellation and step timeouts apply
// throughout — unlike wire.ReadFrame, which reads header and payload each
// in one uninterruptible call.
func readFrame(conn net.Conn, maxBytes uint32, deadline time.Time, stop <-chan struct{}, onProgress func(received int)) ([]byte, error) {
	_, payload, err := readFrameWithLength(conn, maxBytes, deadline, stop, onProgress)
	return payload, err
}

// readFrameWithLength is readFrame but also returns the announced length,
// known as soon as the 4-byte header arrives — before the body read (and
// its progress callbacks) begins.
func readFrameWithLength(conn net.Conn, maxBytes uint32, deadline time.Time, stop <-chan struct{}, onProgress func(received int)) (uint32, []byte, error) {
	header := make([]byte, wire.HeaderSize)
	if err := readExact(conn, header, deadline, stop, nil); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(header)
	if maxBytes > 0 && length > maxBytes {
		return length, nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if length == 0 {
		return length, payload, nil
	}
	if err := readExact(conn, payload, deadline, stop, onProgress); err != nil {
		return length, nil, err
	}
	return length, payload, nil
}

// readDownloadBody reads the second DOWNLOAD frame (the file contents),
// reporting (received, total) after every chunk as it arrives (spec §4.3
// "Progress reporting"). A HEARTBEAT may be interleaved between the OK
// acknowledgement and the body, or between the acknowledgement and any
// retry (spec §3 invariant, spec §8 invariant 3), so each candidate frame
// is checked and discarded the same way receiveSkippingHeartbeats does. A
// frame can only be a HEARTBEAT if its length matches that literal payload,
// so only those candidate frames withhold progress until the content is
// confirmed non-heartbeat — this keeps real transfers reporting per chunk
// without ever publishing a bogus (received, total) for a heartbeat.
func readDownloadBody(conn net.Conn, deadline time.Time, stop <-chan struct{}, onProgress func(received, total uint64)) ([]byte, error) {
	heartbeatLen := uint32(len(rmiproto.VerbHeartbeat))
	for {
		header := make([]byte, wire.HeaderSize)
		if err := readExact(conn, header, deadline, stop, nil); err != nil {
			return nil, err
		}
		total := binary.BigEndian.Uint32(header)
		payload := make([]byte, total)
		maybeHeartbeat := total == heartbeatLen
		if total > 0 {
			var progress func(received int)
			if !maybeHeartbeat {
				progress = func(received int) {
					if onProgress != nil {
						onProgress(uint64(received), uint64(total))
					}
				}
			}
			if err := readExact(conn, payload, deadline, stop, progress); err != nil {
				return nil, err
			}
		}
		if wire.PayloadEquals(payload, rmiproto.VerbHeartbeat) {
			continue
		}
		if (total == 0 || maybeHeartbeat) && onProgress != nil {
			onProgress(uint64(total), uint64(total))
		}
		return payload, nil
	}
}

// receiveSkippingHeartbeats reads frames until one is not a bare HEARTBEAT
// payload, retrying against the same overall deadline (spec §4.3 response
// parser rule, invariant 3).
func receiveSkippingHeartbeats(conn net.Conn, maxBytes uint32, deadline time.Time, stop <-chan struct{}) ([]byte, error) {
	for {
		payload, err := readFrame(conn, maxBytes, deadline, stop, nil)
		if err != nil {
			return nil, err
		}
		if wire.PayloadEquals(payload, "HEARTBEAT") {
			continue
		}
		return payload, nil
	}
}
