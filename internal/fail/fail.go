// Package fail terminates the process with a formatted diagnostic and a
// caller-chosen exit code. It is for conditions no caller can recover from,
// at binary entrypoints and argument validation.
package fail

import (
	"fmt"
	"io"
	"os"
)

var (
	exit           = os.Exit
	out  io.Writer = os.Stderr
)

// With prints the formatted message to stderr, appends a newline, and exits
// the process with code. It never returns.
func With(code int, format string, args ...any) {
	fmt.Fprintf(out, format+"\n", args...)
	exit(code)
}
