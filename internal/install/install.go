// Package install places toolkit scripts into an environment from a YAML
// manifest. Entries are copied verbatim or expanded as templates, and every
// write is staged next to the target and renamed into place so a crashed
// install never leaves a half-written script behind.
package install

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultMode = os.FileMode(0o755)

// Entry is one file in the manifest. Source is relative to the manifest,
// Target is relative to the install prefix. Mode is octal ("0755"); empty
// means 0755. Expand runs the source through text/template before install.
type Entry struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Mode   string `yaml:"mode"`
	Expand bool   `yaml:"expand"`
}

type Manifest struct {
	Entries []Entry `yaml:"entries"`
}

// Data is the value set available to expanded entries.
type Data struct {
	Prefix  string
	Release string
	Version string
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if len(m.Entries) == 0 {
		return nil, fmt.Errorf("manifest lists no entries")
	}

	for i, e := range m.Entries {
		if err := validateEntry(e); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
	}

	return &m, nil
}

func validateEntry(e Entry) error {
	if e.Source == "" {
		return fmt.Errorf("missing source")
	}

	if e.Target == "" {
		return fmt.Errorf("missing target")
	}

	if filepath.IsAbs(e.Target) {
		return fmt.Errorf("target '%s' must be relative to the prefix", e.Target)
	}

	clean := filepath.Clean(e.Target)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("target '%s' escapes the prefix", e.Target)
	}

	if _, err := parseMode(e.Mode); err != nil {
		return err
	}

	return nil
}

func parseMode(s string) (os.FileMode, error) {
	if s == "" {
		return defaultMode, nil
	}

	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode '%s': %w", s, err)
	}

	return os.FileMode(n), nil
}

// Run installs every manifest entry under prefix. Source paths resolve
// relative to the manifest file itself.
func Run(manifestPath, prefix string, data Data) error {
	m, err := Load(manifestPath)
	if err != nil {
		return err
	}

	base := filepath.Dir(manifestPath)

	for _, e := range m.Entries {
		if err := installEntry(base, prefix, e, data); err != nil {
			return fmt.Errorf("install '%s': %w", e.Target, err)
		}
	}

	return nil
}

func installEntry(base, prefix string, e Entry, data Data) error {
	content, err := os.ReadFile(filepath.Join(base, e.Source))
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	if e.Expand {
		content, err = expand(e.Source, content, data)
		if err != nil {
			return err
		}
	}

	mode, err := parseMode(e.Mode)
	if err != nil {
		return err
	}

	target := filepath.Join(prefix, e.Target)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	return writeAtomic(target, content, mode)
}

func expand(name string, content []byte, data Data) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("expand template: %w", err)
	}

	return buf.Bytes(), nil
}

// writeAtomic stages the content in the target's directory and renames it
// into place, so readers either see the old script or the new one in full.
func writeAtomic(target string, content []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".crouton-install-*")
	if err != nil {
		return fmt.Errorf("stage target: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write staged target: %w", err)
	}

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("set mode: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close staged target: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	return nil
}
