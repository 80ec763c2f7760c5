package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/logging"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "crouton",
		Short:        "Set up and manage sandboxed Linux environments.",
		Long:         "Set up and manage sandboxed Linux environments; installs the toolkit scripts, prepares environments, and relays commands to the host agent.",
		Example:      "",
		Version:      "0.0.1",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logfile, _ := cmd.Flags().GetString("log")
			debug, _ := cmd.Flags().GetBool("debug")

			if logfile != "" {
				logger, err := logging.NewLogger(logfile, debug)
				if err != nil {
					return fmt.Errorf("initialise logging: %w", err)
				}

				cmd.Root().SetErr(logging.NewErrorWriter(logger))
			}

			return nil
		},
	}

	cmd.AddCommand(
		installCmd(),
		setupCmd(),
		teardownCmd(),
		enterCmd(),
		hostcmdCmd(),
		releaseCmd(),
		reexecCmd(),
	)

	cmd.PersistentFlags().StringP(
		"log",
		"l",
		"",
		"Destination to write error logs (default is stderr)",
	)

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	cmd.CompletionOptions.HiddenDefaultCmd = true

	return cmd
}
