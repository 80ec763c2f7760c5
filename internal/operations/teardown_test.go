package operations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juliansj/crouton/internal/state"
)

func TestTeardown_RunsPoststopAndRemovesState(t *testing.T) {
	state.Root = t.TempDir()

	bundle := t.TempDir()
	marker := filepath.Join(bundle, "poststop_ran")

	hook := filepath.Join(bundle, "hook.sh")
	require.NoError(t, os.WriteFile(
		hook,
		[]byte("#!/bin/sh\ntouch "+marker+"\n"),
		0o755,
	))

	config := `{
  "ociVersion": "1.2.0",
  "hooks": {
    "poststop": [{"path": "` + hook + `"}]
  }
}`
	require.NoError(t, os.WriteFile(
		filepath.Join(bundle, "config.json"),
		[]byte(config),
		0o644,
	))

	env := state.New("test-environment", bundle, os.Getpid())
	require.NoError(t, env.Save())

	require.NoError(t, Teardown(&TeardownOpts{Name: "test-environment"}))

	_, err := os.Stat(marker)
	assert.NoError(t, err, "poststop hook did not run")

	_, err = state.Load("test-environment")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestTeardown_UnknownEnvironment(t *testing.T) {
	state.Root = t.TempDir()

	err := Teardown(&TeardownOpts{Name: "no-such-environment"})
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestTeardown_InvalidName(t *testing.T) {
	err := Teardown(&TeardownOpts{Name: "-bad"})
	assert.ErrorContains(t, err, "validate environment name")
}
