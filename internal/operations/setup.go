package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/juliansj/crouton/internal/guestsys"
	"github.com/juliansj/crouton/internal/hooks"
	"github.com/juliansj/crouton/internal/state"
	"github.com/juliansj/crouton/internal/validation"
	"github.com/juliansj/crouton/pkg/cleanup"
)

// setupCapabilities are required before touching /proc/sys or moving pids
// between cgroups.
var setupCapabilities = []string{"CAP_SYS_ADMIN"}

// SetupOpts holds the options for the Setup operation.
type SetupOpts struct {
	// Name is the environment name.
	Name string
	// Bundle is the directory holding the environment's config.json.
	Bundle string
	// PID is the process placed into the environment's cgroup. Zero means
	// the calling process.
	PID int
}

// Setup prepares an environment from its bundle: kernel parameters, cgroup
// placement, and poststop hooks registered on the cleanup stack. State is
// persisted for a later Enter.
func Setup(opts *SetupOpts) error {
	if err := validation.EnvironmentName(opts.Name); err != nil {
		return fmt.Errorf("validate environment name: %w", err)
	}

	bundle, err := filepath.Abs(opts.Bundle)
	if err != nil {
		return fmt.Errorf("absolute path from bundle: %w", err)
	}

	config, err := os.ReadFile(filepath.Join(bundle, "config.json"))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var spec *specs.Spec
	if err := json.Unmarshal(config, &spec); err != nil {
		return fmt.Errorf("unmarshall config: %w", err)
	}

	pid := opts.PID
	if pid == 0 {
		pid = os.Getpid()
	}

	if err := guestsys.RequireCapabilities(setupCapabilities...); err != nil {
		return fmt.Errorf("check capabilities: %w", err)
	}

	if spec.Linux != nil && spec.Linux.Sysctl != nil {
		if err := guestsys.SetSysctl(spec.Linux.Sysctl); err != nil {
			return fmt.Errorf("set sysctls: %w", err)
		}
	}

	if spec.Linux != nil && spec.Linux.Resources != nil {
		if err := guestsys.AddCgroup(
			opts.Name,
			spec.Linux.Resources,
			pid,
		); err != nil {
			return fmt.Errorf("add to cgroup: %w", err)
		}
	}

	env := state.New(opts.Name, bundle, pid)
	if err := env.Save(); err != nil {
		return fmt.Errorf("save environment state: %w", err)
	}

	// In self mode this process is the environment's session, so its exit
	// is the environment's end: poststop hooks run from the cleanup stack.
	// With an external pid the environment outlives setup and Teardown
	// runs them instead.
	if opts.PID == 0 && spec.Hooks != nil && len(spec.Hooks.Poststop) > 0 {
		poststop := spec.Hooks.Poststop
		cleanup.Push(func() {
			// Poststop hook failures are reported, never fatal.
			if err := hooks.ExecHooks(poststop, &env.State); err != nil {
				fmt.Fprintf(os.Stderr, "poststop hooks: %s\n", err)
			}
		})
	}

	return nil
}
