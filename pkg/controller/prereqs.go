package controller

import (
	"os/exec"

	"github.com/netfault/faultctl/pkg/logging"
)

// RequiredBinaries lists every external binary a fault run may shell
// out to: tc/ifconfig/nsenter for link faults, stress-ng for node
// faults, cgget for the cgroup CPU-share read stress_cpu node faults
// make, and cat, which no code path in this module invokes itself.
var RequiredBinaries = []string{"tc", "ifconfig", "nsenter", "stress-ng", "cat", "cgget"}

// CheckPrerequisites resolves every entry in RequiredBinaries with
// exec.LookPath and logs one startup warning per binary it cannot find,
// so a missing binary is reported once, up front, rather than only
// surfacing as a shelled-out "command not found" failure the first time
// some strategy happens to reach for it. A missing binary does not
// abort the run: many configurations only ever exercise a subset of
// RequiredBinaries, and the original makes no such check at all.
func CheckPrerequisites(logger *logging.Logger) {
	for _, bin := range RequiredBinaries {
		if _, err := exec.LookPath(bin); err != nil {
			if logger != nil {
				logger.Warn("required binary not found on PATH", "binary", bin)
			}
		}
	}
}
