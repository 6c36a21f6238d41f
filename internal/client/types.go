package client

import "github.com/l16dev/rmi/internal/rmiproto"

// Status is the client's connection lifecycle state (spec §3 "Lifecycles").
// Transitions are monotonic within one worker's lifetime:
// Disconnected -> Connecting -> Connected -> {Disconnected | Error}.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

// String renders the status the way a status bar would, matching
// statusLabel() in the original client.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Config is a connection attempt's addressing and credentials (spec §3
// "Client configuration").
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// request is one entry in the outbound queue (spec §3 "Client request").
// uploadData is set only for an UPLOAD request (kind KindOK); text already
// carries the fully-formed command line.
type request struct {
	text              string
	kind              rmiproto.ResponseKind
	targetPath        string // key into the file/download stores
	uploadData        []byte
	disconnectAfterOK bool
	restartAfterOK    bool
}

// VersionInfo is the VERSION result store (spec §3 "Version counter").
type VersionInfo struct {
	Value   uint64
	Err     string
	Version uint64
}

// ListResult is one path's LIST result (spec §3 "File listing entry").
type ListResult struct {
	Entries []rmiproto.FileEntry
	Err     string
	Version uint64
}

// DownloadResult is one path's DOWNLOAD result (spec §3 "Download result").
type DownloadResult struct {
	Data       []byte
	Err        string
	Received   uint64
	Total      uint64
	InProgress bool
	Version    uint64
}

// ScreencapResult is the SCREENCAP result store (spec §3 "Screencap result").
type ScreencapResult struct {
	PNG     []byte
	Pixels  []byte // decoded RGBA8, row-major, width*height*4 bytes
	Width   int
	Height  int
	Err     string
	Version uint64
}
