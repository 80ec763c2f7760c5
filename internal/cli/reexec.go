package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/operations"
)

func reexecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reexec [flags] ENVIRONMENT_NAME -- COMMAND...",
		Short:   "Reexec leg of enter\n\n \033[31m ⚠ FOR INTERNAL USE ONLY - DO NOT RUN DIRECTLY ⚠ \033[0m",
		Example: "\n -- FOR INTERNAL USE ONLY --",
		Args:    cobra.MinimumNArgs(2),
		Hidden:  true, // this command is only used internally
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := operations.Reexec(&operations.ReexecOpts{
				Name: name,
				Args: args[1:],
			}); err != nil {
				return fmt.Errorf("reexec: %w", err)
			}

			return nil
		},
	}

	return cmd
}
