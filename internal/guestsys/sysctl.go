package guestsys

import (
	"fmt"
	"os"
	"path"
	"strings"
)

// SysRoot is where sysctl keys are written. It is a variable so tests can
// point it at a scratch directory.
var SysRoot = "/proc/sys"

// SetSysctl sets the kernel parameters (sysctls) needed by a sandboxed
// environment. Keys are dotted ("kernel.yama.ptrace_scope") and mapped to
// their paths under SysRoot.
func SetSysctl(sc map[string]string) error {
	for k, v := range sc {
		kp := strings.ReplaceAll(k, ".", "/")

		if err := os.WriteFile(
			path.Join(SysRoot, kp),
			[]byte(v),
			0o644,
		); err != nil {
			return fmt.Errorf("write sysctl (%s: %s): %w", kp, v, err)
		}
	}

	return nil
}
