package guestsys

import (
	"fmt"

	"github.com/containerd/cgroups/v3"
	"github.com/containerd/cgroups/v3/cgroup1"
	"github.com/containerd/cgroups/v3/cgroup2"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func legacyPath(name string) string {
	return fmt.Sprintf("/crouton/%s", name)
}

func unifiedSlice(name string) string {
	return fmt.Sprintf("crouton-%s.slice", name)
}

// AddCgroup places pid into the environment's cgroup, creating it with the
// given resource limits if needed. Unified and legacy hierarchies are
// handled transparently.
func AddCgroup(name string, resources *specs.LinuxResources, pid int) error {
	if cgroups.Mode() == cgroups.Unified {
		res := cgroup2.ToResources(resources)

		cg, err := cgroup2.NewSystemd("/", unifiedSlice(name), -1, res)
		if err != nil {
			return fmt.Errorf("create unified cgroup: %w", err)
		}

		if err := cg.AddProc(uint64(pid)); err != nil {
			return fmt.Errorf("add pid to unified cgroup: %w", err)
		}

		return nil
	}

	cg, err := cgroup1.New(cgroup1.StaticPath(legacyPath(name)), resources)
	if err != nil {
		return fmt.Errorf("create legacy cgroup: %w", err)
	}

	if err := cg.Add(cgroup1.Process{Pid: pid}); err != nil {
		return fmt.Errorf("add pid to legacy cgroup: %w", err)
	}

	return nil
}

// DeleteCgroup removes the environment's cgroup once its last process has
// exited.
func DeleteCgroup(name string) error {
	if cgroups.Mode() == cgroups.Unified {
		cg, err := cgroup2.LoadSystemd("/", unifiedSlice(name))
		if err != nil {
			return fmt.Errorf("load unified cgroup: %w", err)
		}

		if err := cg.Delete(); err != nil {
			return fmt.Errorf("delete unified cgroup: %w", err)
		}

		return nil
	}

	cg, err := cgroup1.Load(cgroup1.StaticPath(legacyPath(name)))
	if err != nil {
		return fmt.Errorf("load legacy cgroup: %w", err)
	}

	if err := cg.Delete(); err != nil {
		return fmt.Errorf("delete legacy cgroup: %w", err)
	}

	return nil
}
