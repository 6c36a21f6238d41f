package server

import (
	"log"
	"net"
	"time"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

// connState is the per-connection authentication state; it does not
// duplicate the outcome type because auth failure/success only ever
// transitions within a single call to handleConnection.
type connState struct {
	authed   int // authAttempts made so far
	loggedIn bool
}

// handleConnection runs one connection through AWAIT_AUTH then READY until
// it closes, quits, or requests a restart. A single read-with-deadline loop
// covers both states, matching the original's single poll() loop that
// dispatches heartbeats regardless of auth state.
func (s *Server) handleConnection(connID string, conn net.Conn) outcome {
	st := &connState{}

	for {
		payload, err := wire.ReadFrame(conn, maxCommandBytes, time.Now().Add(HeartbeatInterval))
		if err == wire.ErrTimeout {
			if werr := wire.WriteFrame(conn, []byte(rmiproto.VerbHeartbeat)); werr != nil {
				log.Printf("[%s] heartbeat send failed: %v", connID, werr)
				return outcomeContinue
			}
			continue
		}
		if err != nil {
			log.Printf("[%s] read failed: %v", connID, err)
			return outcomeContinue
		}
		if len(payload) == 0 {
			continue
		}

		if !st.loggedIn {
			result, done := s.handleAuthFrame(connID, conn, st, payload)
			if done {
				return result
			}
			continue
		}

		result, done := s.dispatch(connID, conn, payload)
		if done {
			return result
		}
	}
}

// handleAuthFrame processes one frame while the connection is still in
// AWAIT_AUTH. done is true once the connection must close (three failed
// attempts) — the caller returns result in that case.
func (s *Server) handleAuthFrame(connID string, conn net.Conn, st *connState, payload []byte) (outcome, bool) {
	cmd := rmiproto.ParseCommand(payload)
	if cmd.Verb == rmiproto.VerbAuth && len(cmd.Args) >= 2 {
		attempt := rmiproto.Credentials{Username: cmd.Args[0], Password: cmd.Args[1]}
		if attempt.Equal(s.credential) {
			if err := wire.WriteFrame(conn, []byte(rmiproto.RespOK)); err != nil {
				return outcomeContinue, true
			}
			st.loggedIn = true
			log.Printf("[%s] authenticated", connID)
			return outcomeContinue, false
		}
	}

	st.authed++
	if st.authed >= maxAuthAttempts {
		_ = wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrAuthFailed)))
		log.Printf("[%s] auth failed after %d attempts", connID, st.authed)
		return outcomeContinue, true
	}
	if err := wire.WriteFrame(conn, []byte(rmiproto.ErrResponse(rmiproto.ErrAuthRequired))); err != nil {
		return outcomeContinue, true
	}
	return outcomeContinue, false
}
