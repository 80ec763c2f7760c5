package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/juliansj/crouton/internal/guestsys"
	"github.com/juliansj/crouton/internal/hooks"
	"github.com/juliansj/crouton/internal/state"
	"github.com/juliansj/crouton/internal/validation"
)

// TeardownOpts holds the options for the Teardown operation.
type TeardownOpts struct {
	// Name is the environment name.
	Name string
}

// Teardown dismantles an environment set up around an external pid: runs
// its poststop hooks, removes its cgroup, and discards its state. The
// cgroup must be empty by the time this runs.
func Teardown(opts *TeardownOpts) error {
	if err := validation.EnvironmentName(opts.Name); err != nil {
		return fmt.Errorf("validate environment name: %w", err)
	}

	env, err := state.Load(opts.Name)
	if err != nil {
		return fmt.Errorf("load environment state: %w", err)
	}

	config, err := os.ReadFile(filepath.Join(env.Bundle, "config.json"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config file: %w", err)
	}

	if config != nil {
		var spec *specs.Spec
		if err := json.Unmarshal(config, &spec); err != nil {
			return fmt.Errorf("unmarshall config: %w", err)
		}

		if spec.Hooks != nil && len(spec.Hooks.Poststop) > 0 {
			// Poststop hook failures are reported, never fatal.
			if err := hooks.ExecHooks(
				spec.Hooks.Poststop,
				&env.State,
			); err != nil {
				fmt.Fprintf(os.Stderr, "poststop hooks: %s\n", err)
			}
		}

		if spec.Linux != nil && spec.Linux.Resources != nil {
			if err := guestsys.DeleteCgroup(opts.Name); err != nil {
				return fmt.Errorf("delete cgroup: %w", err)
			}
		}
	}

	if err := state.Remove(opts.Name); err != nil {
		return fmt.Errorf("remove environment state: %w", err)
	}

	return nil
}
