package server

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

func uploadDeadline() time.Time {
	return time.Now().Add(uploadFrameTimeout)
}

// dispatchUpload implements UPLOAD (spec §4.2, §6.2): read the announced
// size, receive exactly that many bytes as the next frame, and write them
// to path — atomically replacing the server's own binary when path names
// it (spec §4.2 "Upload self-replacement invariant", §6.5).
func (s *Server) dispatchUpload(connID string, conn net.Conn, cmd rmiproto.Command) {
	if len(cmd.Args) < 2 {
		writeErr(conn, rmiproto.ErrUpload)
		return
	}
	path := cmd.Args[0]
	size, err := parseNonNegativeUint32(cmd.Args[1])
	if err != nil {
		writeErr(conn, rmiproto.ErrUpload)
		return
	}

	frame, err := wire.ReadFrame(conn, 0, uploadDeadline())
	if err != nil {
		writeErr(conn, rmiproto.ErrUpload)
		return
	}
	if uint32(len(frame)) != size {
		writeErr(conn, rmiproto.ErrUpload)
		return
	}

	if err := writeUploadedFile(s, path, frame); err != nil {
		log.Printf("[%s] upload %s failed: %v", connID, path, err)
		writeErr(conn, rmiproto.ErrUpload)
		return
	}

	log.Printf("[%s] uploaded %s (%s)", connID, path, humanize.Bytes(uint64(len(frame))))
	_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
}

// writeUploadedFile writes data to path, staging to path+".new" and
// atomically renaming when path is the server's own executable so that a
// concurrent reader always sees either the fully-old or fully-new image
// (spec §6.5 self-update contract).
func writeUploadedFile(s *Server, path string, data []byte) error {
	if !s.isSelfBinaryPath(path) {
		return os.WriteFile(path, data, 0644)
	}

	tmp := path + ".new"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0777); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// dispatchList implements LIST (spec §4.2, §6.2).
func (s *Server) dispatchList(connID string, conn net.Conn, cmd rmiproto.Command) {
	if len(cmd.Args) < 1 {
		writeErr(conn, rmiproto.ErrList)
		return
	}
	entries, err := listDirectory(cmd.Args[0])
	if err != nil {
		log.Printf("[%s] list %s failed: %v", connID, cmd.Args[0], err)
		writeErr(conn, rmiproto.ErrList)
		return
	}
	_ = wire.WriteFrame(conn, rmiproto.EncodeListing(entries))
}

func listDirectory(path string) ([]rmiproto.FileEntry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	entries := make([]rmiproto.FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			entries = append(entries, rmiproto.FileEntry{Name: de.Name(), IsDir: true})
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, rmiproto.FileEntry{Name: de.Name(), Size: uint64(info.Size())})
	}
	return entries, nil
}

// dispatchDownload implements DOWNLOAD (spec §4.2, §6.2): OK, then a
// second frame carrying the whole file, only on success.
func (s *Server) dispatchDownload(connID string, conn net.Conn, cmd rmiproto.Command) {
	if len(cmd.Args) < 1 {
		writeErr(conn, rmiproto.ErrDownload)
		return
	}
	data, err := os.ReadFile(cmd.Args[0])
	if err != nil {
		log.Printf("[%s] download %s failed: %v", connID, cmd.Args[0], err)
		writeErr(conn, rmiproto.ErrDownload)
		return
	}
	if err := wire.WriteFrame(conn, []byte(rmiproto.RespOK)); err != nil {
		return
	}
	log.Printf("[%s] downloading %s (%s)", connID, cmd.Args[0], humanize.Bytes(uint64(len(data))))
	_ = wire.WriteFrame(conn, data)
}

// dispatchDelete implements DELETE (spec §4.2): recursive remove, refusing
// "/" and the empty path.
func (s *Server) dispatchDelete(connID string, conn net.Conn, cmd rmiproto.Command) {
	if len(cmd.Args) < 1 {
		writeErr(conn, rmiproto.ErrDelete)
		return
	}
	path := cmd.Args[0]
	if path == "" || filepath.Clean(path) == "/" {
		writeErr(conn, rmiproto.ErrDelete)
		return
	}
	if err := os.RemoveAll(path); err != nil {
		log.Printf("[%s] delete %s failed: %v", connID, path, err)
		writeErr(conn, rmiproto.ErrDelete)
		return
	}
	_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
}

func writeErr(conn net.Conn, reason string) {
	_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(reason)))
}
