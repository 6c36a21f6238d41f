package client

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/l16dev/rmi/internal/wire"
)

// maxUploadBytes is the largest local file UploadFile will read (spec §4.3
// upload step 1: "fail if size > 2^32-1").
const maxUploadBytes = 1<<32 - 1

// readUploadPayload reads localPath synchronously in the caller, before the
// request ever reaches the queue, so a missing or oversized file is
// reported immediately (spec §7 "Upload payload resolution failures...do
// not touch the socket").
func readUploadPayload(localPath string) ([]byte, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("client: upload: %w", err)
	}
	if info.Size() < 0 || uint64(info.Size()) > maxUploadBytes {
		return nil, fmt.Errorf("client: upload: %s exceeds max upload size", localPath)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("client: upload: %w", err)
	}
	return data, nil
}

// doUpload sends the UPLOAD command frame, the file bytes as a second
// frame, then runs the Ok-kind parser on the single response (spec §4.3
// "Upload request").
func (c *Client) doUpload(conn net.Conn, req request, lastSent *time.Time) (stopClean bool, err error) {
	if werr := writeCommand(conn, req.text, lastSent); werr != nil {
		return false, werr
	}
	if werr := wire.WriteFrame(conn, req.uploadData); werr != nil {
		return false, fmt.Errorf("client: upload body: %w", werr)
	}
	*lastSent = time.Now()
	return c.doOK(conn, req)
}
