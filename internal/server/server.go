// Package server implements the RMI server's per-connection state machine:
// AWAIT_AUTH, READY, command dispatch, idle heartbeats, self-restart, and
// self-update (spec §4.2). The server handles exactly one connection at a
// time, matching spec §1's explicit non-goal of multi-client fan-out.
package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/l16dev/rmi/internal/rmiproto"
	"github.com/l16dev/rmi/internal/wire"
)

// HeartbeatInterval is RMI_HEARTBEAT_MS from spec §4.2: how long the server
// waits for readable data before emitting an idle HEARTBEAT.
const HeartbeatInterval = 5 * time.Second

// maxAuthAttempts is the number of failed AUTH attempts tolerated before
// the connection is closed with "ERR auth failed" (spec §4.2).
const maxAuthAttempts = 3

// maxCommandBytes bounds a command frame; commands are short ASCII text.
const maxCommandBytes = 4096

// outcome is the per-connection result the accept loop acts on.
type outcome int

const (
	outcomeContinue outcome = iota
	outcomeShutdown
	outcomeRestart
)

// Server owns the listener and dispatches accepted connections one at a
// time (spec §1: single-client server).
type Server struct {
	listener   net.Listener
	credential rmiproto.Credentials
	selfPath   string
	args       []string
}

// New creates a Server bound to addr, authenticating against credential.
// selfPath is the executable path used for self-restart/self-update
// detection; args are the argv RESTART re-execs with.
func New(addr string, credential rmiproto.Credentials, selfPath string, args []string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return &Server{listener: ln, credential: credential, selfPath: selfPath, args: args}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until a QUIT or RESTART command ends the
// accept loop. On RESTART it re-execs the process with the original argv
// and never returns on success.
func (s *Server) Serve() error {
	defer s.listener.Close()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() { //nolint:staticcheck
				continue
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		connID := uuid.NewString()
		log.Printf("[%s] client connected from %s", connID, conn.RemoteAddr())

		result := s.handleConnection(connID, conn)
		conn.Close()

		switch result {
		case outcomeShutdown:
			log.Printf("[%s] shutdown requested", connID)
			return nil
		case outcomeRestart:
			log.Printf("[%s] restart requested, re-executing", connID)
			return s.execSelf()
		}
	}
}

