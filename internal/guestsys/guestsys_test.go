package guestsys_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/juliansj/crouton/internal/guestsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSysctl(t *testing.T) {
	prev := guestsys.SysRoot
	guestsys.SysRoot = t.TempDir()
	t.Cleanup(func() { guestsys.SysRoot = prev })

	require.NoError(t, os.MkdirAll(
		guestsys.SysRoot+"/net/ipv4", 0o755,
	))

	err := guestsys.SetSysctl(map[string]string{
		"net.ipv4.ip_forward": "1",
	})
	require.NoError(t, err)

	got, err := os.ReadFile(guestsys.SysRoot + "/net/ipv4/ip_forward")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

func TestSetSysctlUnknownKey(t *testing.T) {
	prev := guestsys.SysRoot
	guestsys.SysRoot = t.TempDir()
	t.Cleanup(func() { guestsys.SysRoot = prev })

	err := guestsys.SetSysctl(map[string]string{
		"kernel.no.such.key": "1",
	})
	assert.ErrorContains(t, err, "write sysctl")
}

func TestNamespaceEnv(t *testing.T) {
	pid := os.Getpid()

	env, err := guestsys.NamespaceEnv(pid, []string{"mnt", "net"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		fmt.Sprintf("gons_mnt=/proc/%d/ns/mnt", pid),
		fmt.Sprintf("gons_net=/proc/%d/ns/net", pid),
	}, env)
}

func TestNamespaceEnvUnsupportedKind(t *testing.T) {
	_, err := guestsys.NamespaceEnv(os.Getpid(), []string{"mnt", "chroot"})
	assert.ErrorContains(t, err, "unsupported namespace")
}

func TestNamespaceEnvMissingProcess(t *testing.T) {
	_, err := guestsys.NamespaceEnv(0, []string{"mnt"})
	assert.ErrorContains(t, err, "stat namespace path")
}

func TestSetnsRejectsNonNamespaceFile(t *testing.T) {
	err := guestsys.Setns("/dev/null", "net")
	assert.ErrorIs(t, err, guestsys.ErrInvalidNamespacePath)
}

func TestSetnsRejectsUnsupportedKind(t *testing.T) {
	err := guestsys.Setns("/proc/self/ns/net", "time2")
	assert.ErrorContains(t, err, "unsupported namespace")
}

func TestRequireCapabilitiesUnknownName(t *testing.T) {
	err := guestsys.RequireCapabilities("CAP_FLY")
	assert.ErrorContains(t, err, "unknown capability")
}

func TestRequireCapabilitiesNoNames(t *testing.T) {
	require.NoError(t, guestsys.RequireCapabilities())
}
