package server

import (
	"os"
	"path/filepath"
)

// resolvedSelfPath returns the server's own executable path, preferring the
// configured selfPath (needed on platforms/containers where os.Executable
// can't resolve a stable path) and falling back to os.Executable — the
// portable equivalent of the original's /proc/self/exe readlink with its
// fixed-path fallback (spec §9 supplemental feature 2).
func (s *Server) resolvedSelfPath() (string, error) {
	if s.selfPath != "" {
		return s.selfPath, nil
	}
	return os.Executable()
}

// isSelfBinaryPath reports whether path refers to the server's own
// executable, comparing absolute paths after symlink resolution so a
// caller uploading to a relative or symlinked path is still detected
// (spec §4.2 upload self-replacement invariant).
func (s *Server) isSelfBinaryPath(path string) bool {
	self, err := s.resolvedSelfPath()
	if err != nil {
		return false
	}
	selfAbs, err1 := filepath.Abs(self)
	pathAbs, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(selfAbs); err == nil {
		selfAbs = resolved
	}
	if resolved, err := filepath.EvalSymlinks(pathAbs); err == nil {
		pathAbs = resolved
	}
	return selfAbs == pathAbs
}

// canRestart verifies the self binary is a regular file with mode 0777,
// mirroring check_restart_permissions in the original server.
func (s *Server) canRestart() bool {
	self, err := s.resolvedSelfPath()
	if err != nil {
		return false
	}
	info, err := os.Stat(self)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode().Perm() == 0777
}
