package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/fail"
	"github.com/juliansj/crouton/pkg/release"
)

func releaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Query the known release sequences",
	}

	cmd.AddCommand(releaseCompareCmd(), releaseListCmd())

	return cmd
}

func releaseCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "compare RELEASE_A RELEASE_B",
		Short:   "Order two releases of the same distribution",
		Example: "  crouton release compare buster bookworm",
		Args:    cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			// An unknown release name is a bug in the calling script,
			// not a runtime condition.
			n, err := release.Compare(args[0], args[1])
			if err != nil {
				fail.With(2, "release compare: %s", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)
		},
	}
}

func releaseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List every known release, oldest first per distribution",
		Example: "  crouton release list",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range release.Supported() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
