package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/operations"
)

func enterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "enter [flags] ENVIRONMENT_NAME -- COMMAND...",
		Short:   "Run a command inside an environment",
		Example: "  crouton enter bullseye -- bash -l",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			logFile, _ := cmd.Root().Flags().GetString("log")

			if err := operations.Enter(&operations.EnterOpts{
				Name:    name,
				Args:    args[1:],
				LogFile: logFile,
			}); err != nil {
				return fmt.Errorf("enter: %w", err)
			}

			return nil
		},
	}

	return cmd
}
