package envlayer

import (
	"os"
	"strconv"
	"strings"
)

// DistroID is a best-effort reading of /etc/os-release's ID field, used by
// the package-manager adapter selector (spec §4.1, §9 "distribution
// detection happens once at startup and selects the variant").
func DistroID() string {
	b, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		if id, ok := strings.CutPrefix(line, "ID="); ok {
			return strings.Trim(id, `"`)
		}
	}
	return ""
}

// SystemdExists detects whether systemd is the running init system, used by
// the Systemd Unit Manager (spec §4.6) to decide whether AutomaticByPlatform
// auto-assessment can be configured at all.
func SystemdExists() bool {
	fi, err := os.Lstat("/run/systemd/system")
	return err == nil && fi.IsDir()
}

// Getpid returns the current process id, used by the Lifecycle Manager to
// stamp CoreState with an owning pid (spec §4.5.1).
func Getpid() int { return os.Getpid() }

// ProcessAlive reports whether pid refers to a running process, probed via
// the /proc filesystem the way the teacher probes container state rather
// than sending a signal (no process-liveness library appears anywhere in
// the pack; this is a necessary stdlib/procfs implementation, see
// DESIGN.md).
func ProcessAlive(pid int) bool {
	_, err := os.Stat("/proc/" + strconv.Itoa(pid))
	return err == nil
}
