//go:build windows

package server

import (
	"fmt"
	"os"
	"os/exec"
)

// execSelf has no true process-image replacement on Windows, so it spawns
// a fresh copy of itself and exits the current process once the child has
// started — the closest equivalent to the original's execv-based restart.
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
	cmd := exec.Command(path, args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("server: restart: spawn %s: %w", path, err)
	}
	os.Exit(0)
	return nil
}
