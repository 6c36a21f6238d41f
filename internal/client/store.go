package client

import (
	"fmt"
	"os"

	"github.com/l16dev/rmi/internal/rmiproto"
)

// GetVersionInfo returns a snapshot of the VERSION result store.
func (c *Client) GetVersionInfo() VersionInfo {
	c.versionMu.Lock()
	defer c.versionMu.Unlock()
	return c.version
}

func (c *Client) setVersion(v VersionInfo) {
	c.versionMu.Lock()
	v.Version = c.version.Version + 1
	c.version = v
	c.versionMu.Unlock()
}

// GetFileList returns a snapshot of the LIST result for path, and whether
// any result has been recorded for it yet.
func (c *Client) GetFileList(path string) (ListResult, bool) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	r, ok := c.lists[path]
	if !ok {
		return ListResult{}, false
	}
	cp := *r
	cp.Entries = append([]rmiproto.FileEntry(nil), cp.Entries...)
	return cp, true
}

// GetDownloadResult returns a snapshot of the DOWNLOAD result for path, and
// whether any result has been recorded for it yet.
func (c *Client) GetDownloadResult(path string) (DownloadResult, bool) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	r, ok := c.downloads[path]
	if !ok {
		return DownloadResult{}, false
	}
	cp := *r
	cp.Data = append([]byte(nil), cp.Data...)
	return cp, true
}

// GetDownloadProgress is a convenience accessor over GetDownloadResult
// returning just (received, total, in_progress).
func (c *Client) GetDownloadProgress(path string) (received, total uint64, inProgress bool) {
	r, ok := c.GetDownloadResult(path)
	if !ok {
		return 0, 0, false
	}
	return r.Received, r.Total, r.InProgress
}

func (c *Client) setListResult(path string, r ListResult) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	prev := c.lists[path]
	if prev != nil {
		r.Version = prev.Version + 1
	} else {
		r.Version = 1
	}
	cp := r
	c.lists[path] = &cp
}

func (c *Client) downloadEntry(path string) *DownloadResult {
	d := c.downloads[path]
	if d == nil {
		d = &DownloadResult{}
		c.downloads[path] = d
	}
	return d
}

// setDownloadProgress records an in-progress chunk under the file lock,
// bumping version on every mutation (spec §4.3 "Progress reporting",
// invariant 5).
func (c *Client) setDownloadProgress(path string, received, total uint64) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	d := c.downloadEntry(path)
	d.Received = received
	d.Total = total
	d.InProgress = true
	d.Err = ""
	d.Version++
}

func (c *Client) setDownloadDone(path string, data []byte) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	d := c.downloadEntry(path)
	d.Data = data
	d.Received = uint64(len(data))
	d.Total = uint64(len(data))
	d.InProgress = false
	d.Err = ""
	d.Version++
}

func (c *Client) setDownloadError(path string, received, total uint64, errMsg string) {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	d := c.downloadEntry(path)
	d.Received = received
	if total > 0 {
		d.Total = total
	}
	d.InProgress = false
	d.Err = errMsg
	d.Version++
}

// GetScreencapImage returns a snapshot of the decoded screencap result.
func (c *Client) GetScreencapImage() ScreencapResult {
	c.screencapMu.Lock()
	defer c.screencapMu.Unlock()
	return c.screencap
}

// GetScreencapPNG returns just the raw PNG bytes of the last screencap.
func (c *Client) GetScreencapPNG() []byte {
	c.screencapMu.Lock()
	defer c.screencapMu.Unlock()
	return append([]byte(nil), c.screencap.PNG...)
}

func (c *Client) setScreencapError(msg string) {
	c.screencapMu.Lock()
	defer c.screencapMu.Unlock()
	c.screencap.Err = msg
	c.screencap.Version++
}

func (c *Client) setScreencap(png, pixels []byte, width, height int) {
	c.screencapMu.Lock()
	defer c.screencapMu.Unlock()
	c.screencap = ScreencapResult{
		PNG:     png,
		Pixels:  pixels,
		Width:   width,
		Height:  height,
		Version: c.screencap.Version + 1,
	}
}

// SaveLastScreencap writes the last-received screencap PNG to dir, named
// screencap_<clientID>_<n>.png where n is a per-client monotonic counter
// (supplemental feature grounded on the original client's
// saveLastScreencap, spec expansion §"SUPPLEMENTED FEATURES" item 1).
func (c *Client) SaveLastScreencap(dir string) (string, error) {
	png := c.GetScreencapPNG()
	if len(png) == 0 {
		return "", fmt.Errorf("client: no screencap available")
	}
	c.screencapMu.Lock()
	c.screencapSeq++
	seq := c.screencapSeq
	c.screencapMu.Unlock()

	path := fmt.Sprintf("%s/screencap_%d_%d.png", dir, c.id, seq)
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", err
	}
	return path, nil
}
