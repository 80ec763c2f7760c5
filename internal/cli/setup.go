package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/operations"
	"github.com/juliansj/crouton/pkg/cleanup"
)

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "setup [flags] ENVIRONMENT_NAME",
		Short:   "Set up an environment from its bundle",
		Example: "  crouton setup --bundle /var/lib/crouton/bullseye bullseye",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			bundle, _ := cmd.Flags().GetString("bundle")
			pid, _ := cmd.Flags().GetInt("pid")

			// Poststop hooks registered during setup run on exit,
			// signalled or not.
			defer cleanup.Run()

			if err := operations.Setup(&operations.SetupOpts{
				Name:   name,
				Bundle: bundle,
				PID:    pid,
			}); err != nil {
				return fmt.Errorf("setup: %w", err)
			}

			return nil
		},
	}

	cwd, _ := os.Getwd()
	cmd.Flags().StringP("bundle", "b", cwd, "Path to bundle directory")
	cmd.Flags().IntP("pid", "p", 0, "Process to place into the environment cgroup (default this process)")

	return cmd
}
