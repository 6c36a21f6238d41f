package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

// pollInterval bounds how long the main loop waits for either a stop signal
// or a queued request before checking the idle-heartbeat clock (spec §4.3
// "Main loop": "wait up to ~100 ms").
const pollInterval = 100 * time.Millisecond

const (
	authTimeout      = 5 * time.Second
	heartbeatTimeout = 2 * time.Second
	okTimeout        = 5 * time.Second
	versionTimeout   = 3 * time.Second
	listTimeout      = 5 * time.Second
	downloadAckTime  = 5 * time.Second
	downloadBodyTime = 15 * time.Second
	screencapTimeout = 15 * time.Second
)

// runWorker is the whole worker lifetime: connect path, then the main loop,
// until stop or a fatal error (spec §4.3).
func (c *Client) runWorker(cfg Config) {
	defer close(c.done)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	conn, err := c.connectAndAuth(cfg)
	if err != nil {
		c.setLastError(err.Error())
		c.setStatus(StatusError)
		return
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer conn.Close()

	c.clearLastError()
	c.setStatus(StatusConnected)
	c.mainLoop(conn)
}

// connectAndAuth implements spec §4.3's "Connect path".
func (c *Client) connectAndAuth(cfg Config) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, authTimeout)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	authCmd := fmt.Sprintf("%s %s %s", rmiproto.VerbAuth, cfg.Username, cfg.Password)
	if err := wire.WriteFrame(conn, []byte(authCmd)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: send auth: %w", err)
	}

	payload, err := receiveSkippingHeartbeats(conn, 256, time.Now().Add(authTimeout), c.stop)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: auth response: %w", err)
	}
	if !wire.PayloadEquals(payload, rmiproto.RespOK) {
		conn.Close()
		return nil, fmt.Errorf("client: auth failed: %s", string(payload))
	}
	return conn, nil
}

// mainLoop drains the request queue, interleaving idle heartbeats, until
// stopped or a fatal I/O error occurs (spec §4.3 "Main loop").
func (c *Client) mainLoop(conn net.Conn) {
	lastSent := time.Now()
	for {
		select {
		case <-c.stop:
			c.setStatus(StatusDisconnected)
			return
		case req := <-c.reqs:
			stopClean, err := c.handleRequest(conn, req, &lastSent)
			if err != nil {
				c.setLastError(err.Error())
				c.setStatus(StatusError)
				return
			}
			if stopClean {
				c.setStatus(StatusDisconnected)
				return
			}
		case <-time.After(pollInterval):
			if time.Since(lastSent) < heartbeatInterval {
				continue
			}
			if err := c.sendHeartbeat(conn, &lastSent); err != nil {
				c.setLastError(err.Error())
				c.setStatus(StatusError)
				return
			}
		}
	}
}

func (c *Client) sendHeartbeat(conn net.Conn, lastSent *time.Time) error {
	if err := writeCommand(conn, rmiproto.VerbHeartbeat, lastSent); err != nil {
		return err
	}
	payload, err := receiveSkippingHeartbeats(conn, 256, time.Now().Add(heartbeatTimeout), c.stop)
	if err != nil {
		return err
	}
	if !wire.PayloadEquals(payload, rmiproto.RespOK) {
		return errors.New("client: heartbeat: unexpected response")
	}
	return nil
}

func writeCommand(conn net.Conn, text string, lastSent *time.Time) error {
	if err := wire.WriteFrame(conn, []byte(text)); err != nil {
		return fmt.Errorf("client: write: %w", err)
	}
	*lastSent = time.Now()
	return nil
}

// handleRequest sends req and runs its response-kind parser. stopClean
// means the worker should transition to Disconnected and return without
// treating it as a failure; a non-nil err is a fatal I/O error.
func (c *Client) handleRequest(conn net.Conn, req request, lastSent *time.Time) (stopClean bool, err error) {
	if req.uploadData != nil {
		return c.doUpload(conn, req, lastSent)
	}

	if err := writeCommand(conn, req.text, lastSent); err != nil {
		return false, err
	}

	switch req.kind {
	case rmiproto.KindNone:
		return false, nil
	case rmiproto.KindOK:
		return c.doOK(conn, req)
	case rmiproto.KindVersion:
		return false, c.doVersion(conn)
	case rmiproto.KindList:
		return false, c.doList(conn, req.targetPath)
	case rmiproto.KindDownload:
		return false, c.doDownload(conn, req.targetPath, lastSent)
	case rmiproto.KindScreencap:
		return false, c.doScreencap(conn)
	default:
		return false, nil
	}
}
