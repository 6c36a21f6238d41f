//go:build !windows

package server

import (
	"fmt"
	"os"
	"syscall"
)

// execSelf re-execs the current process image with the original argv,
// replacing the running process the way the original's execv(argv[0], argv)
// does. It only returns on failure.
func (s *Server) execSelf() error {
	path := s.selfPath
	if path == "" {
		var err error
		path, err = os.Executable()
		if err != nil {
			return fmt.Errorf("server: restart: resolve self path: %w", err)
		}
	}
	args := s.args
	if len(args) == 0 {
		args = os.Args
	}
	return syscall.Exec(path, args, os.Environ())
}
