// Package hooks runs the lifecycle hooks an environment's bundle declares.
// Hooks receive the environment state on stdin, OCI style, so the same hook
// binaries work under any runtime.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// ExecHooks runs each hook in order, feeding it the serialized environment
// state on stdin. A hook with a timeout is killed when it elapses. The
// first failing hook stops the run.
func ExecHooks(hooks []specs.Hook, state *specs.State) error {
	s, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal environment state: %w", err)
	}

	for _, h := range hooks {
		ctx := context.Background()

		if h.Timeout != nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(
				ctx,
				time.Duration(*h.Timeout)*time.Second,
			)
			defer cancel()
		}

		binary, err := exec.LookPath(h.Path)
		if err != nil {
			return fmt.Errorf("find hook binary: %w", err)
		}

		cmd := exec.CommandContext(ctx, binary)
		if len(h.Args) > 0 {
			cmd.Args = h.Args
		}
		cmd.Env = h.Env
		cmd.Stdin = strings.NewReader(string(s))

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("execute hook %s: %w", h.Path, err)
		}
	}

	return nil
}
