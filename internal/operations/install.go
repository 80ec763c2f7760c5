package operations

import (
	"fmt"

	"github.com/juliansj/crouton/internal/install"
	"github.com/juliansj/crouton/pkg/release"
)

// InstallOpts holds the options for the Install operation.
type InstallOpts struct {
	// Manifest is the path of the YAML install manifest.
	Manifest string
	// Prefix is the directory the manifest entries are installed under.
	Prefix string
	// Release is the target release name, available to expanded entries.
	Release string
	// Version is the toolkit version, available to expanded entries.
	Version string
}

// Install places the toolkit scripts listed in the manifest under the
// prefix.
func Install(opts *InstallOpts) error {
	if opts.Release != "" {
		if _, err := release.Ordinal(opts.Release); err != nil {
			return fmt.Errorf("validate release: %w", err)
		}
	}

	if err := install.Run(opts.Manifest, opts.Prefix, install.Data{
		Prefix:  opts.Prefix,
		Release: opts.Release,
		Version: opts.Version,
	}); err != nil {
		return fmt.Errorf("install manifest: %w", err)
	}

	return nil
}
