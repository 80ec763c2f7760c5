// Package state persists per-environment runtime facts: which pid anchors
// the environment's namespaces, where its bundle lives, what was last done
// to it. Written by setup, read by enter.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Root is where environment state lives, one directory per environment.
// It is a variable so tests can point it at a scratch directory.
var Root = "/run/crouton"

var ErrNotFound = errors.New("unknown environment")

// Environment is the persisted record. The OCI state block carries the
// name (ID), init pid, bundle path and status.
type Environment struct {
	specs.State
	Release string `json:"release,omitempty"`
}

func New(name, bundle string, pid int) *Environment {
	return &Environment{
		State: specs.State{
			Version: specs.Version,
			ID:      name,
			Status:  specs.StateCreated,
			Pid:     pid,
			Bundle:  bundle,
		},
	}
}

// Path returns the state file location for an environment name.
func Path(name string) string {
	return filepath.Join(Root, name, "state.json")
}

func (e *Environment) Save() error {
	if err := os.MkdirAll(filepath.Join(Root, e.ID), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(Path(e.ID), b, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

func Load(name string) (*Environment, error) {
	b, err := os.ReadFile(Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var e Environment
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	return &e, nil
}

// Remove discards an environment's state directory. Removing state that was
// never saved is not an error.
func Remove(name string) error {
	if err := os.RemoveAll(filepath.Join(Root, name)); err != nil {
		return fmt.Errorf("remove state directory: %w", err)
	}

	return nil
}
