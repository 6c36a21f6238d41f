package server

import (
	"log"
	"net"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/sysaction"
	"github.com/l16dev/rmi/internal/version"
	"github.com/l16dev/rmi/internal/wire"
)

// uploadFrameTimeout bounds the wait for the file-content frame that
// follows an UPLOAD command frame.
const uploadFrameTimeout = 30 * time.Second

// dispatch processes one command frame while the connection is in READY.
// It returns the accept-loop outcome and whether the connection must close.
func (s *Server) dispatch(connID string, conn net.Conn, payload []byte) (outcome, bool) {
	cmd := rmiproto.ParseCommand(payload)

	switch cmd.Verb {
	case rmiproto.VerbQuit:
		_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
		return outcomeShutdown, true

	case rmiproto.VerbRestart:
		if !s.canRestart() {
			_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrRestart)))
			return outcomeContinue, false
		}
		_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
		return outcomeRestart, true

	case rmiproto.VerbVersion:
		n, err := version.Counter()
		if err != nil {
			_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrVersion)))
			return outcomeContinue, false
		}
		_ = wire.WriteFrame(conn, rmiproto.FormatVersion(n))
		return outcomeContinue, false

	case rmiproto.VerbHeartbeat:
		_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
		return outcomeContinue, false

	case rmiproto.VerbPress:
		s.dispatchPress(conn, cmd, sysaction.PressKey)
		return outcomeContinue, false

	case rmiproto.VerbPressInput:
		s.dispatchPress(conn, cmd, sysaction.PressInput)
		return outcomeContinue, false

	case rmiproto.VerbOpen:
		if len(cmd.Args) < 1 {
			_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrOpen)))
			return outcomeContinue, false
		}
		if err := sysaction.OpenApp(cmd.Args[0]); err != nil {
			log.Printf("[%s] open %s failed: %v", connID, cmd.Args[0], err)
			_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrOpen)))
			return outcomeContinue, false
		}
		_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
		return outcomeContinue, false

	case rmiproto.VerbUpload:
		s.dispatchUpload(connID, conn, cmd)
		return outcomeContinue, false

	case rmiproto.VerbList:
		s.dispatchList(connID, conn, cmd)
		return outcomeContinue, false

	case rmiproto.VerbDownload:
		s.dispatchDownload(connID, conn, cmd)
		return outcomeContinue, false

	case rmiproto.VerbDelete:
		s.dispatchDelete(connID, conn, cmd)
		return outcomeContinue, false

	case rmiproto.VerbScreencap:
		s.dispatchScreencap(connID, conn)
		return outcomeContinue, false

	default:
		_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrUnknownCommand)))
		return outcomeContinue, false
	}
}

func (s *Server) dispatchPress(conn net.Conn, cmd rmiproto.Command, inject func(int) error) {
	if len(cmd.Args) < 1 {
		_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrPress)))
		return
	}
	code, err := parseStrictInt(cmd.Args[0])
	if err != nil {
		_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrPress)))
		return
	}
	if err := inject(int(code)); err != nil {
		_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrPress)))
		return
	}
	_ = wire.WriteFrame(conn, []byte(rmiproto.RespOK))
}

func (s *Server) dispatchScreencap(connID string, conn net.Conn) {
	data, err := sysaction.CaptureScreen()
	if err != nil {
		log.Printf("[%s] screencap failed: %v", connID, err)
		_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrScreencap)))
		return
	}
	log.Printf("[%s] screencap %s", connID, humanize.Bytes(uint64(len(data))))
	_ = wire.WriteFrame(conn, data)
}
