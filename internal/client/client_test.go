package client

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

// fakeServer is a hand-scripted stand-in for the RMI server, giving tests
// full control over response bytes and timing (spec §8 end-to-end
// scenarios are literal byte sequences, not "whatever internal/server
// happens to do").
type fakeServer struct {
	t        *testing.T
	listener net.Listener
	conns    chan net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fs := &fakeServer{t: t, listener: ln, conns: make(chan net.Conn, 1)}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fs.conns <- conn
	}()
	t.Cleanup(func() { ln.Close() })
	return fs
}

func (fs *fakeServer) addr() (string, int) {
	tcpAddr := fs.listener.Addr().(*net.TCPAddr)
	return tcpAddr.IP.String(), tcpAddr.Port
}

func (fs *fakeServer) accept() net.Conn {
	fs.t.Helper()
	select {
	case conn := <-fs.conns:
		fs.t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		fs.t.Fatal("timed out waiting for client connection")
		return nil
	}
}

func (fs *fakeServer) recv(conn net.Conn) []byte {
	fs.t.Helper()
	payload, err := wire.ReadFrame(conn, 0, time.Now().Add(2*time.Second))
	require.NoError(fs.t, err)
	return payload
}

func (fs *fakeServer) send(conn net.Conn, text string) {
	fs.t.Helper()
	require.NoError(fs.t, wire.WriteFrame(conn, []byte(text)))
}

func waitForStatus(t *testing.T, c *Client, want Status) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status never reached %s, stuck at %s (lastErr=%q)", want, c.Status(), c.LastError())
}

func acceptAndAuth(t *testing.T, fs *fakeServer) net.Conn {
	t.Helper()
	conn := fs.accept()
	payload := fs.recv(conn)
	require.True(t, wire.PayloadStartsWith(payload, rmiproto.VerbAuth))
	fs.send(conn, rmiproto.RespOK)
	return conn
}

func TestConnectAuthSuccess(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	c.Disconnect()
	waitForStatus(t, c, StatusDisconnected)
}

func TestConnectAuthFailure(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "wrong"}))
	conn := fs.accept()
	fs.recv(conn)
	fs.send(conn, rmiproto.ErrResponse(rmiproto.ErrAuthFailed))

	waitForStatus(t, c, StatusError)
	require.Contains(t, c.LastError(), "auth failed")
}

func TestConnectCannotRelaunchBeforeJoin(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	err := c.Connect(Config{Host: host, Port: port})
	require.Error(t, err)

	acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)
	c.Disconnect()
}

func TestVersionWithHeartbeatInterleaving(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.RequestVersion())
	payload := fs.recv(conn)
	require.Equal(t, rmiproto.VerbVersion, string(payload))

	fs.send(conn, rmiproto.VerbHeartbeat)
	fs.send(conn, "VERSION 42")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.GetVersionInfo().Value != 42 {
		time.Sleep(5 * time.Millisecond)
	}
	info := c.GetVersionInfo()
	require.Equal(t, uint64(42), info.Value)
	require.Empty(t, info.Err)

	c.Disconnect()
}

func TestListParsing(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.RequestList("/tmp"))
	payload := fs.recv(conn)
	require.Equal(t, "LIST /tmp", string(payload))
	fs.send(conn, "D\tbin\nF\thello.txt\t5\n")

	deadline := time.Now().Add(2 * time.Second)
	var result ListResult
	for time.Now().Before(deadline) {
		var ok bool
		result, ok = c.GetFileList("/tmp")
		if ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.ElementsMatch(t, []rmiproto.FileEntry{
		{Name: "bin", IsDir: true},
		{Name: "hello.txt", Size: 5},
	}, result.Entries)

	c.Disconnect()
}

func TestDownloadProgressAndCompletion(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.RequestDownload("/tmp/f"))
	payload := fs.recv(conn)
	require.Equal(t, "DOWNLOAD /tmp/f", string(payload))
	fs.send(conn, rmiproto.RespOK)
	require.NoError(t, wire.WriteFrame(conn, []byte("hello")))

	deadline := time.Now().Add(2 * time.Second)
	var result DownloadResult
	for time.Now().Before(deadline) {
		var ok bool
		result, ok = c.GetDownloadResult("/tmp/f")
		if ok && !result.InProgress {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, result.InProgress)
	require.Equal(t, uint64(5), result.Received)
	require.Equal(t, uint64(5), result.Total)
	require.Equal(t, []byte("hello"), result.Data)
	require.Empty(t, result.Err)

	c.Disconnect()
}

func TestDownloadFailureRecordsPartial(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.RequestDownload("/tmp/missing"))
	fs.recv(conn)
	fs.send(conn, rmiproto.ErrResponse(rmiproto.ErrDownload))

	deadline := time.Now().Add(2 * time.Second)
	var result DownloadResult
	for time.Now().Before(deadline) {
		var ok bool
		result, ok = c.GetDownloadResult("/tmp/missing")
		if ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, result.InProgress)
	require.NotEmpty(t, result.Err)

	c.Disconnect()
}

func TestUploadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "payload")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0644))

	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.UploadFile(local, "/remote/payload"))
	cmd := fs.recv(conn)
	require.Equal(t, "UPLOAD /remote/payload 5", string(cmd))
	body := fs.recv(conn)
	require.Equal(t, []byte("hello"), body)
	fs.send(conn, rmiproto.RespOK)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.LastError() != "" {
		time.Sleep(5 * time.Millisecond)
	}
	require.Empty(t, c.LastError())

	c.Disconnect()
}

func TestDownloadSkipsHeartbeatBeforeBody(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.RequestDownload("/tmp/f"))
	payload := fs.recv(conn)
	require.Equal(t, "DOWNLOAD /tmp/f", string(payload))
	fs.send(conn, rmiproto.RespOK)
	fs.send(conn, rmiproto.VerbHeartbeat)
	require.NoError(t, wire.WriteFrame(conn, []byte("hello")))

	deadline := time.Now().Add(2 * time.Second)
	var result DownloadResult
	for time.Now().Before(deadline) {
		var ok bool
		result, ok = c.GetDownloadResult("/tmp/f")
		if ok && !result.InProgress {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.False(t, result.InProgress)
	require.Equal(t, uint64(5), result.Received)
	require.Equal(t, uint64(5), result.Total)
	require.Equal(t, []byte("hello"), result.Data)
	require.Empty(t, result.Err)

	c.Disconnect()
}

func TestUploadAndRestartSurvivesRestartError(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "payload")
	require.NoError(t, os.WriteFile(local, []byte("hello"), 0644))

	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.UploadFileAndRestart(local, "/remote/payload"))
	cmd := fs.recv(conn)
	require.Equal(t, "UPLOAD /remote/payload 5", string(cmd))
	body := fs.recv(conn)
	require.Equal(t, []byte("hello"), body)
	fs.send(conn, rmiproto.RespOK)

	restartCmd := fs.recv(conn)
	require.Equal(t, rmiproto.VerbRestart, string(restartCmd))
	fs.send(conn, rmiproto.ErrResponse(rmiproto.ErrRestart))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.LastError() == "" {
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, c.LastError())
	require.Equal(t, StatusConnected, c.Status())

	c.Disconnect()
}

func TestUploadMissingLocalFileNeverTouchesSocket(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	err := c.UploadFile(filepath.Join(t.TempDir(), "nope"), "/remote/x")
	require.Error(t, err)

	// Nothing reaches the server: a short read times out with no frame.
	_, rerr := wire.ReadFrame(conn, 0, time.Now().Add(300*time.Millisecond))
	require.ErrorIs(t, rerr, wire.ErrTimeout)

	c.Disconnect()
}

func TestQuitDisconnectsCleanly(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.SendQuit())
	payload := fs.recv(conn)
	require.Equal(t, rmiproto.VerbQuit, string(payload))
	fs.send(conn, rmiproto.RespOK)

	waitForStatus(t, c, StatusDisconnected)
}

func TestScreencapRejectsOversizedDimensions(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	conn := acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	require.NoError(t, c.RequestScreencap())
	fs.recv(conn)

	fake := make([]byte, 24)
	copy(fake, pngSignature)
	// width/height = 5000 each, both over the 4096 cap.
	fake[16], fake[17], fake[18], fake[19] = 0, 0, 0x13, 0x88
	fake[20], fake[21], fake[22], fake[23] = 0, 0, 0x13, 0x88
	require.NoError(t, wire.WriteFrame(conn, fake))

	deadline := time.Now().Add(2 * time.Second)
	var result ScreencapResult
	for time.Now().Before(deadline) && result.Err == "" {
		result = c.GetScreencapImage()
		time.Sleep(5 * time.Millisecond)
	}
	require.NotEmpty(t, result.Err)
	require.Contains(t, result.Err, "4096")

	c.Disconnect()
}

func TestDisconnectWithoutPendingRequestJoinsPromptly(t *testing.T) {
	fs := newFakeServer(t)
	c := New()
	host, port := fs.addr()

	require.NoError(t, c.Connect(Config{Host: host, Port: port, Username: "l16", Password: "l16"}))
	acceptAndAuth(t, fs)
	waitForStatus(t, c, StatusConnected)

	start := time.Now()
	c.Disconnect()
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, StatusDisconnected, c.Status())
}
