package guestsys

import (
	"fmt"
	"strings"

	"github.com/syndtr/gocapability/capability"
)

func findCapability(name string) (capability.Cap, error) {
	want := strings.TrimPrefix(strings.ToUpper(name), "CAP_")

	for _, c := range capability.List() {
		if strings.ToUpper(c.String()) == want {
			return c, nil
		}
	}

	return 0, fmt.Errorf("unknown capability '%s'", name)
}

// RequireCapabilities verifies that the current process holds the named
// capabilities in its effective set. Setup steps that write to /proc/sys or
// move processes between cgroups call this before touching anything.
func RequireCapabilities(names ...string) error {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return fmt.Errorf("initialise capabilities: %w", err)
	}

	if err := caps.Load(); err != nil {
		return fmt.Errorf("load capabilities: %w", err)
	}

	for _, name := range names {
		c, err := findCapability(name)
		if err != nil {
			return err
		}

		if !caps.Get(capability.EFFECTIVE, c) {
			return fmt.Errorf("missing capability '%s'", name)
		}
	}

	return nil
}
