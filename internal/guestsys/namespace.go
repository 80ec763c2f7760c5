package guestsys

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var ErrInvalidNamespacePath = errors.New("invalid namespace path")

// namespaceFlags maps the /proc/<pid>/ns entry names onto their clone flags,
// used to check that a namespace path really is the kind we expect before
// joining it.
var namespaceFlags = map[string]int{
	"mnt":    unix.CLONE_NEWNS,
	"uts":    unix.CLONE_NEWUTS,
	"ipc":    unix.CLONE_NEWIPC,
	"net":    unix.CLONE_NEWNET,
	"pid":    unix.CLONE_NEWPID,
	"user":   unix.CLONE_NEWUSER,
	"cgroup": unix.CLONE_NEWCGROUP,
}

// ReexecNamespaces must be joined before the Go runtime starts and so go
// through the gons environment and a re-exec.
var ReexecNamespaces = []string{"mnt"}

// JoinableNamespaces can be joined by a running process with Setns. The pid
// namespace is left out: setns only moves future children there, and enter
// replaces the current process image rather than forking.
var JoinableNamespaces = []string{"uts", "ipc", "net"}

// NamespaceEnv builds the gons_<ns>=<path> environment entries that make a
// re-executed process join pid's namespaces before the Go runtime starts.
// Joining a mount namespace from a running Go process is not reliable, so
// enter re-executes itself with these variables set.
func NamespaceEnv(pid int, kinds []string) ([]string, error) {
	env := make([]string, 0, len(kinds))

	for _, kind := range kinds {
		if _, ok := namespaceFlags[kind]; !ok {
			return nil, fmt.Errorf("unsupported namespace '%s'", kind)
		}

		nsPath := fmt.Sprintf("/proc/%d/ns/%s", pid, kind)
		if _, err := os.Stat(nsPath); err != nil {
			return nil, fmt.Errorf("stat namespace path: %w", err)
		}

		env = append(env, fmt.Sprintf("gons_%s=%s", kind, nsPath))
	}

	return env, nil
}

// Setns joins the namespace at path directly. Only namespaces that a
// multithreaded process may still join (net, uts, ipc) should be passed
// here; mount namespaces must go through NamespaceEnv and a re-exec.
func Setns(path, kind string) error {
	flag, ok := namespaceFlags[kind]
	if !ok {
		return fmt.Errorf("unsupported namespace '%s'", kind)
	}

	fd, err := openNSPath(path, flag)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if _, _, errno := unix.Syscall(unix.SYS_SETNS, uintptr(fd), 0, 0); errno != 0 {
		return fmt.Errorf("setns into %s namespace: %w", kind, errno)
	}

	return nil
}

func openNSPath(path string, flag int) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open namespace path: %w", err)
	}

	nsType, err := unix.IoctlRetInt(fd, unix.NS_GET_NSTYPE)
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("%w: not a namespace file (%s)", ErrInvalidNamespacePath, path)
	}

	if nsType != flag {
		unix.Close(fd)
		return -1, fmt.Errorf("%w: wrong namespace type (%s)", ErrInvalidNamespacePath, path)
	}

	return fd, nil
}
