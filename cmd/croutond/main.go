package main

import (
	"os"

	"github.com/juliansj/crouton/internal/agent"
)

func main() {
	if err := agent.Cmd().Execute(); err != nil {
		os.Exit(1)
	}
}
