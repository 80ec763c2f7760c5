package operations

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/juliansj/crouton/internal/guestsys"
	"github.com/juliansj/crouton/internal/state"
)

// ReexecOpts holds the options for the Reexec operation.
type ReexecOpts struct {
	// Name is the environment name.
	Name string
	// Args is the command exec'd inside the environment.
	Args []string
}

// Reexec is the second leg of Enter. The mount namespace was already joined
// by gons before the runtime started; the remaining namespaces are joined
// here, then the command replaces the process image.
func Reexec(opts *ReexecOpts) error {
	env, err := state.Load(opts.Name)
	if err != nil {
		return fmt.Errorf("load environment state: %w", err)
	}

	for _, kind := range guestsys.JoinableNamespaces {
		nsPath := fmt.Sprintf("/proc/%d/ns/%s", env.Pid, kind)

		if err := guestsys.Setns(nsPath, kind); err != nil {
			return fmt.Errorf("join %s namespace: %w", kind, err)
		}
	}

	binary, err := exec.LookPath(opts.Args[0])
	if err != nil {
		return fmt.Errorf("find command binary: %w", err)
	}

	if err := unix.Exec(binary, opts.Args, os.Environ()); err != nil {
		return fmt.Errorf("exec command: %w", err)
	}

	return nil
}
