package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/operations"
)

func hostcmdCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hostcmd [flags] [PAYLOAD...]",
		Short:   "Relay a command to the host agent",
		Example: "  crouton hostcmd version",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			lock, _ := cmd.Flags().GetString("lock")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			return operations.HostCommand(&operations.HostCommandOpts{
				Payload:  strings.Join(args, " "),
				In:       cmd.InOrStdin(),
				Out:      cmd.OutOrStdout(),
				Dir:      dir,
				LockPath: lock,
				Timeout:  timeout,
			})
		},
	}

	cmd.Flags().StringP("dir", "", "", "Transport directory (default well-known path)")
	cmd.Flags().StringP("lock", "", "", "Lock file path (default well-known path)")
	cmd.Flags().DurationP("timeout", "t", 3*time.Second, "Transaction timeout")

	return cmd
}
