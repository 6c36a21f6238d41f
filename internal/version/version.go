// Package version supplies the RMI server's VERSION counter and the
// build-time string reported in startup logs. The build string is set via
// -ldflags the way the teacher's version package is; the counter itself is
// derived from host state so it advances across host reboots the way the
// original's build number would advance across releases.
package version

import (
	"github.com/shirou/gopsutil/v4/host"
)

// These are set at build time via -ldflags, matching the teacher's pattern.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Counter returns the value reported by the VERSION command: the host's
// boot time as a Unix timestamp. It only ever increases across reboots of
// the machine the server runs on, satisfying the "monotonically increasing"
// framing spec.md leaves informal for this counter.
func Counter() (uint64, error) {
	boot, err := host.BootTime()
	if err != nil {
		return 0, err
	}
	return boot, nil
}
