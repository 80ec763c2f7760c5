package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/juliansj/crouton/internal/guestsys"
	"github.com/juliansj/crouton/internal/state"
	"github.com/juliansj/crouton/internal/validation"
)

// EnterOpts holds the options for the Enter operation.
type EnterOpts struct {
	// Name is the environment name.
	Name string
	// Args is the command run inside the environment.
	Args []string
	// LogFile is passed through to the re-executed process.
	LogFile string
}

// Enter runs a command inside an environment's namespaces. Mount namespaces
// cannot be joined from a running Go process, so Enter re-executes itself
// with the gons environment set and hands the command to the hidden reexec
// leg, which finishes the join before exec'ing it.
func Enter(opts *EnterOpts) error {
	if err := validation.EnvironmentName(opts.Name); err != nil {
		return fmt.Errorf("validate environment name: %w", err)
	}

	if len(opts.Args) == 0 {
		return fmt.Errorf("no command to run")
	}

	env, err := state.Load(opts.Name)
	if err != nil {
		return fmt.Errorf("load environment state: %w", err)
	}

	if err := applySysctls(env.Bundle); err != nil {
		return fmt.Errorf("apply sysctls: %w", err)
	}

	nsEnv, err := guestsys.NamespaceEnv(
		env.Pid,
		guestsys.ReexecNamespaces,
	)
	if err != nil {
		return fmt.Errorf("build namespace env: %w", err)
	}

	args := []string{"reexec"}
	if opts.LogFile != "" {
		args = append(args, "--log", opts.LogFile)
	}
	args = append(args, opts.Name, "--")
	args = append(args, opts.Args...)

	cmd := exec.Command("/proc/self/exe", args...)
	cmd.Env = append(os.Environ(), nsEnv...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("reexec into environment: %w", err)
	}

	return nil
}

// applySysctls re-applies the kernel parameters the bundle declares, so
// keys that drifted since setup are restored before the command runs. A
// bundle without a config is left alone.
func applySysctls(bundle string) error {
	config, err := os.ReadFile(filepath.Join(bundle, "config.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var spec *specs.Spec
	if err := json.Unmarshal(config, &spec); err != nil {
		return fmt.Errorf("unmarshall config: %w", err)
	}

	if spec.Linux == nil || spec.Linux.Sysctl == nil {
		return nil
	}

	return guestsys.SetSysctl(spec.Linux.Sysctl)
}
