// Package release orders the distribution releases the toolchain can
// bootstrap, so installers can gate features on "this release or newer"
// without string comparison tricks.
package release

import (
	"fmt"
	"slices"
)

// Sequences are oldest-first. Appending to the end is the only safe edit;
// ordinals are positions within a sequence.
var (
	debianReleases = []string{
		"wheezy",
		"jessie",
		"stretch",
		"buster",
		"bullseye",
		"bookworm",
		"trixie",
		"sid",
	}

	ubuntuReleases = []string{
		"precise",
		"trusty",
		"xenial",
		"bionic",
		"focal",
		"jammy",
		"noble",
	}
)

var distros = map[string][]string{
	"debian": debianReleases,
	"ubuntu": ubuntuReleases,
}

// Distro returns the distribution a release name belongs to.
func Distro(name string) (string, error) {
	for distro, seq := range distros {
		if slices.Contains(seq, name) {
			return distro, nil
		}
	}

	return "", fmt.Errorf("unknown release '%s'", name)
}

// Ordinal returns the position of name within its distribution's release
// sequence, oldest release first.
func Ordinal(name string) (int, error) {
	for _, seq := range distros {
		if i := slices.Index(seq, name); i >= 0 {
			return i, nil
		}
	}

	return -1, fmt.Errorf("unknown release '%s'", name)
}

// Compare orders two releases of the same distribution: -1 if a is older
// than b, 0 if equal, 1 if newer. Comparing releases across distributions
// is an error; there is no meaningful order between them.
func Compare(a, b string) (int, error) {
	da, err := Distro(a)
	if err != nil {
		return 0, err
	}

	db, err := Distro(b)
	if err != nil {
		return 0, err
	}

	if da != db {
		return 0, fmt.Errorf(
			"cannot compare '%s' (%s) with '%s' (%s)", a, da, b, db,
		)
	}

	oa, _ := Ordinal(a)
	ob, _ := Ordinal(b)

	switch {
	case oa < ob:
		return -1, nil
	case oa > ob:
		return 1, nil
	}
	return 0, nil
}

// AtLeast reports whether name is min or newer within the same
// distribution.
func AtLeast(name, min string) (bool, error) {
	n, err := Compare(name, min)
	if err != nil {
		return false, err
	}

	return n >= 0, nil
}

// Supported returns every release name the toolchain knows, grouped by
// distribution, oldest first within each group.
func Supported() []string {
	names := make([]string, 0, len(debianReleases)+len(ubuntuReleases))
	names = append(names, debianReleases...)
	names = append(names, ubuntuReleases...)
	return names
}
