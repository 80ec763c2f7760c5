package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/juliansj/crouton/internal/operations"
)

func installCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "install [flags]",
		Short:   "Install the toolkit scripts from a manifest",
		Example: "  crouton install --manifest scripts/manifest.yaml --prefix /usr/local",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, _ := cmd.Flags().GetString("manifest")
			prefix, _ := cmd.Flags().GetString("prefix")
			release, _ := cmd.Flags().GetString("release")

			if err := operations.Install(&operations.InstallOpts{
				Manifest: manifest,
				Prefix:   prefix,
				Release:  release,
				Version:  cmd.Root().Version,
			}); err != nil {
				return fmt.Errorf("install: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringP("manifest", "m", "manifest.yaml", "Path to install manifest")
	cmd.Flags().StringP("prefix", "p", "/usr/local", "Installation prefix")
	cmd.Flags().StringP("release", "r", "", "Target release name")

	return cmd
}
