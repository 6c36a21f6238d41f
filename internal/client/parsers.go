package client

import (
	"errors"
	"net"
	"time"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

// isFatal reports whether err should tear down the connection (spec §7
// "I/O errors on the socket are fatal") versus being recorded against a
// per-request result while the connection stays alive.
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCancelled), errors.Is(err, ErrFrameTooLarge):
		return false
	case errors.Is(err, ErrConnectionClosed):
		return true
	}
	var pe *protocolError
	var de *decodeError
	if errors.As(err, &pe) || errors.As(err, &de) {
		return false
	}
	return true
}

// doOK runs the Ok-kind response parser (spec §4.3 table). It never returns
// a fatal error for protocol-level outcomes — only genuine socket failure
// propagates.
func (c *Client) doOK(conn net.Conn, req request) (stopClean bool, err error) {
	payload, recvErr := receiveSkippingHeartbeats(conn, 256, time.Now().Add(okTimeout), c.stop)
	if recvErr != nil {
		if isFatal(recvErr) {
			return false, recvErr
		}
		c.setLastError(recvErr.Error())
		return req.disconnectAfterOK, nil
	}

	switch {
	case wire.PayloadEquals(payload, rmiproto.RespOK):
		c.clearLastError()
	case wire.PayloadStartsWith(payload, rmiproto.RespErrPrefix):
		c.setLastError(string(payload))
	default:
		c.setLastError(newProtocolError("unexpected response: " + string(payload)).Error())
	}

	if req.disconnectAfterOK {
		return true, nil
	}
	if req.restartAfterOK && c.LastError() == "" {
		return c.doPostUploadRestart(conn)
	}
	return false, nil
}

// doPostUploadRestart implements spec §4.3 upload step 5: send RESTART and
// read its response. Only an OK ack disconnects; an ERR or unexpected
// response is a per-request protocol error (spec §7) and the session stays
// alive, matching the original client's post-upload restart handling.
func (c *Client) doPostUploadRestart(conn net.Conn) (stopClean bool, err error) {
	var lastSent time.Time
	if werr := writeCommand(conn, rmiproto.VerbRestart, &lastSent); werr != nil {
		return false, werr
	}
	payload, recvErr := receiveSkippingHeartbeats(conn, 256, time.Now().Add(okTimeout), c.stop)
	if recvErr != nil {
		if isFatal(recvErr) {
			return false, recvErr
		}
		c.setLastError(recvErr.Error())
		return false, nil
	}
	if !wire.PayloadEquals(payload, rmiproto.RespOK) {
		c.setLastError(string(payload))
		return false, nil
	}
	return true, nil
}

// doVersion runs the Version-kind response parser.
func (c *Client) doVersion(conn net.Conn) error {
	payload, err := receiveSkippingHeartbeats(conn, 256, time.Now().Add(versionTimeout), c.stop)
	if err != nil {
		if isFatal(err) {
			return err
		}
		c.setVersion(VersionInfo{Err: err.Error()})
		return nil
	}
	n, perr := rmiproto.ParseVersion(payload)
	if perr != nil {
		c.setVersion(VersionInfo{Err: perr.Error()})
		return nil
	}
	c.setVersion(VersionInfo{Value: n})
	return nil
}

// doList runs the List-kind response parser.
func (c *Client) doList(conn net.Conn, path string) error {
	payload, err := receiveSkippingHeartbeats(conn, 0, time.Now().Add(listTimeout), c.stop)
	if err != nil {
		if isFatal(err) {
			return err
		}
		c.setListResult(path, ListResult{Err: err.Error()})
		return nil
	}
	entries := rmiproto.ParseListing(payload)
	c.setListResult(path, ListResult{Entries: entries})
	return nil
}

// doDownload runs the Download-kind response parser: an Ok-shaped
// acknowledgement, then, only on OK, a second frame carrying the whole
// file with streaming progress (spec §4.3, §6.2, invariant 6).
func (c *Client) doDownload(conn net.Conn, path string, lastSent *time.Time) error {
	ack, err := receiveSkippingHeartbeats(conn, 256, time.Now().Add(downloadAckTime), c.stop)
	if err != nil {
		if isFatal(err) {
			return err
		}
		c.setDownloadError(path, 0, 0, err.Error())
		return nil
	}
	if !wire.PayloadEquals(ack, rmiproto.RespOK) {
		c.setDownloadError(path, 0, 0, newProtocolError(string(ack)).Error())
		return nil
	}
	*lastSent = time.Now()

	deadline := time.Now().Add(downloadBodyTime)
	data, err := readDownloadBody(conn, deadline, c.stop, func(received, total uint64) {
		c.setDownloadProgress(path, received, total)
	})
	if err != nil {
		received, total, _ := c.GetDownloadProgress(path)
		if isFatal(err) {
			return err
		}
		c.setDownloadError(path, received, total, err.Error())
		return nil
	}
	c.setDownloadDone(path, data)
	return nil
}
