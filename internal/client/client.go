// Package client implements the controller side of the RMI protocol: a
// background worker that owns one TCP connection, multiplexes queued
// outbound commands against inbound responses and heartbeats, and publishes
// results to independently-locked stores a caller (typically a UI thread)
// polls via snapshot getters.
package client

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l16dev/rmi/internal/rmiproto"
)

var nextClientID atomic.Uint64

// heartbeatInterval is how long the worker waits since its last outbound
// frame before sending an idle HEARTBEAT (spec §4.3 "Main loop").
const heartbeatInterval = 5 * time.Second

// queueDepth bounds the outbound request queue. The original names no
// specific bound; a caller that floods requests faster than the serialized
// wire can drain them is a programming error, so Enqueue on a full queue
// blocks rather than silently drops (matching the "FIFO, thread-safe" mutex
// + condition-variable shape from spec §4.4 without an unbounded backlog).
const queueDepth = 64

// Client is one controller connection to an RMI server. The zero value is
// not usable; construct with New.
type Client struct {
	id uint64

	mu      sync.Mutex // guards the fields below and worker lifecycle
	running bool
	stop    chan struct{}
	done    chan struct{}
	reqs    chan request
	conn    net.Conn // owned exclusively by the worker goroutine once set

	status atomic.Int32

	errMu   sync.Mutex
	lastErr string

	versionMu sync.Mutex
	version   VersionInfo

	screencapMu  sync.Mutex
	screencap    ScreencapResult
	screencapSeq uint64

	fileMu    sync.Mutex
	lists     map[string]*ListResult
	downloads map[string]*DownloadResult
}

// New constructs a Client and assigns it the next process-wide id (spec §9
// "Global state" — a single atomic counter initialized at process start,
// used to name saved screencaps).
func New() *Client {
	return &Client{
		id:        nextClientID.Add(1),
		lists:     make(map[string]*ListResult),
		downloads: make(map[string]*DownloadResult),
	}
}

// ID returns the process-wide id assigned to this client at construction.
func (c *Client) ID() uint64 { return c.id }

// RemoteAddr returns the connected peer's address, or nil if no worker has
// established a connection yet.
func (c *Client) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.RemoteAddr()
}

// Status returns the client's current lifecycle state.
func (c *Client) Status() Status { return Status(c.status.Load()) }

func (c *Client) setStatus(s Status) { c.status.Store(int32(s)) }

// LastError returns the most recent client-visible error message, or "" if
// the last operation succeeded.
func (c *Client) LastError() string {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

func (c *Client) setLastError(msg string) {
	c.errMu.Lock()
	c.lastErr = msg
	c.errMu.Unlock()
}

func (c *Client) clearLastError() { c.setLastError("") }

// ResetLastError clears the last-error string. Useful for a caller (such
// as a single-shot CLI) that wants to distinguish "this request produced
// no error" from a stale error left over from an earlier one.
func (c *Client) ResetLastError() { c.clearLastError() }

// Connect launches the worker: dial, authenticate, then serve the request
// queue until Disconnect or a fatal error. Connect may only be called again
// once the previous worker has joined (spec §3 "Lifecycles"); calling it
// while a worker is still running returns an error without starting a new
// one.
func (c *Client) Connect(cfg Config) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("client: previous worker has not joined")
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.reqs = make(chan request, queueDepth)
	c.mu.Unlock()

	c.setStatus(StatusConnecting)
	go c.runWorker(cfg)
	return nil
}

// Disconnect sets the stop flag, wakes the worker, and joins it. It is a
// no-op if no worker is running. The final state is Disconnected unless an
// error already moved it to Error (spec §5 "Cancellation").
func (c *Client) Disconnect() {
	c.mu.Lock()
	stop := c.stop
	c.mu.Unlock()
	if stop == nil {
		return
	}
	c.stopOnce()
	<-c.done
}

func (c *Client) stopOnce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

// enqueue pushes req onto the outbound queue. It fails with ErrNotConnected
// if no worker is running to drain it.
func (c *Client) enqueue(req request) error {
	c.mu.Lock()
	running := c.running
	reqs := c.reqs
	c.mu.Unlock()
	if !running {
		return ErrNotConnected
	}
	reqs <- req
	return nil
}

// SendQuit enqueues QUIT, which disconnects cleanly once its OK/ERR arrives.
func (c *Client) SendQuit() error {
	return c.enqueue(request{text: rmiproto.VerbQuit, kind: rmiproto.KindOK, disconnectAfterOK: true})
}

// SendRestart enqueues RESTART, which, like QUIT, disconnects once its
// OK/ERR arrives; the server closes the connection after acknowledging it.
func (c *Client) SendRestart() error {
	return c.enqueue(request{text: rmiproto.VerbRestart, kind: rmiproto.KindOK, disconnectAfterOK: true})
}

// RequestVersion enqueues VERSION.
func (c *Client) RequestVersion() error {
	return c.enqueue(request{text: rmiproto.VerbVersion, kind: rmiproto.KindVersion})
}

// SendPress enqueues a low-level PRESS for keycode.
func (c *Client) SendPress(keycode int) error {
	return c.enqueue(request{text: fmt.Sprintf("%s %d", rmiproto.VerbPress, keycode), kind: rmiproto.KindOK})
}

// SendPressInput enqueues a high-level PRESS_INPUT for keycode.
func (c *Client) SendPressInput(keycode int) error {
	return c.enqueue(request{text: fmt.Sprintf("%s %d", rmiproto.VerbPressInput, keycode), kind: rmiproto.KindOK})
}

// SendOpen enqueues OPEN for target.
func (c *Client) SendOpen(target string) error {
	return c.enqueue(request{text: rmiproto.VerbOpen + " " + target, kind: rmiproto.KindOK})
}

// RequestList enqueues LIST for path. The result is retrieved with
// GetFileList(path) once its version advances.
func (c *Client) RequestList(path string) error {
	return c.enqueue(request{text: rmiproto.VerbList + " " + path, kind: rmiproto.KindList, targetPath: path})
}

// RequestDownload enqueues DOWNLOAD for path. Progress and the final result
// are retrieved with GetDownloadProgress/GetDownloadResult(path).
func (c *Client) RequestDownload(path string) error {
	return c.enqueue(request{text: rmiproto.VerbDownload + " " + path, kind: rmiproto.KindDownload, targetPath: path})
}

// RequestDelete enqueues DELETE for path.
func (c *Client) RequestDelete(path string) error {
	return c.enqueue(request{text: rmiproto.VerbDelete + " " + path, kind: rmiproto.KindOK})
}

// RequestScreencap enqueues SCREENCAP.
func (c *Client) RequestScreencap() error {
	return c.enqueue(request{text: rmiproto.VerbScreencap, kind: rmiproto.KindScreencap})
}

// UploadFile reads localPath and enqueues an UPLOAD to remotePath (spec
// §4.3 "Upload request"). The read happens synchronously in the caller so a
// missing or oversized local file is reported immediately rather than
// silently queued.
func (c *Client) UploadFile(localPath, remotePath string) error {
	return c.uploadFile(localPath, remotePath, false)
}

// UploadFileAndRestart is UploadFile followed by RESTART once the upload's
// OK arrives, then a clean stop (spec §4.3 step 5).
func (c *Client) UploadFileAndRestart(localPath, remotePath string) error {
	return c.uploadFile(localPath, remotePath, true)
}

func (c *Client) uploadFile(localPath, remotePath string, restartAfter bool) error {
	data, err := readUploadPayload(localPath)
	if err != nil {
		c.setLastError(err.Error())
		return err
	}
	text := fmt.Sprintf("%s %s %d", rmiproto.VerbUpload, remotePath, len(data))
	return c.enqueue(request{
		text:           text,
		kind:           rmiproto.KindOK,
		targetPath:     remotePath,
		uploadData:     data,
		restartAfterOK: restartAfter,
	})
}
