package main

import (
	"fmt"
	"os"

	"github.com/thediveo/gons"

	"github.com/juliansj/crouton/internal/cli"
)

func main() {
	if err := gons.Status(); err != nil {
		os.Stderr.Write(
			fmt.Appendf(nil, "failed to join namespaces: %s\n", err),
		)
		os.Exit(1)
	}

	if err := cli.RootCmd().Execute(); err != nil {
		os.Stderr.Write(fmt.Appendf(nil, "failed to execute: %s\n", err))
		os.Exit(1)
	}
}
