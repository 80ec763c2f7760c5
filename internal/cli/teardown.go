package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/operations"
)

func teardownCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "teardown [flags] ENVIRONMENT_NAME",
		Short:   "Dismantle an environment set up around an external pid",
		Example: "  crouton teardown bullseye",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := operations.Teardown(&operations.TeardownOpts{
				Name: name,
			}); err != nil {
				return fmt.Errorf("teardown: %w", err)
			}

			return nil
		},
	}

	return cmd
}
