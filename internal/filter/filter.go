// Package filter wraps the system awk so that output stays line-buffered
// even when piped. Stock awk block-buffers stdout as soon as it is not a
// terminal, which stalls anything streaming single lines through it.
package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// argv picks the best available interpreter: mawk can be told to flush per
// line, stdbuf can force line buffering onto any awk, and plain awk is the
// last resort for input that arrives in large chunks anyway.
func argv(program string) ([]string, error) {
	if program == "" {
		return nil, fmt.Errorf("empty filter program")
	}

	if mawk, err := exec.LookPath("mawk"); err == nil {
		return []string{mawk, "-W", "interactive", program}, nil
	}

	if stdbuf, err := exec.LookPath("stdbuf"); err == nil {
		if awk, err := exec.LookPath("awk"); err == nil {
			return []string{stdbuf, "-oL", awk, program}, nil
		}
	}

	if awk, err := exec.LookPath("awk"); err == nil {
		return []string{awk, program}, nil
	}

	return nil, fmt.Errorf("locate awk: %w", exec.ErrNotFound)
}

// Unbuffered builds a command that runs program with line-buffered output.
// The caller wires up the command's stdio and runs it.
func Unbuffered(program string) (*exec.Cmd, error) {
	args, err := argv(program)
	if err != nil {
		return nil, err
	}

	return exec.Command(args[0], args[1:]...), nil
}

// Run streams r through program into w until EOF or ctx is done.
func Run(ctx context.Context, program string, r io.Reader, w io.Writer) error {
	args, err := argv(program)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = r
	cmd.Stdout = w
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run filter: %w (%s)", err, msg)
		}

		return fmt.Errorf("run filter: %w", err)
	}

	return nil
}
