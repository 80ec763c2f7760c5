package filter_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/juliansj/crouton/internal/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireAwk(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("awk"); err != nil {
		t.Skip("awk not installed")
	}
}

func TestRunPassesLinesThrough(t *testing.T) {
	requireAwk(t)

	var out bytes.Buffer
	err := filter.Run(context.Background(), "{print}", strings.NewReader("a\nb\n"), &out)

	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out.String())
}

func TestRunTransforms(t *testing.T) {
	requireAwk(t)

	var out bytes.Buffer
	err := filter.Run(context.Background(), `{print "got " $0}`, strings.NewReader("ping\n"), &out)

	require.NoError(t, err)
	assert.Equal(t, "got ping\n", out.String())
}

func TestRunEmptyProgram(t *testing.T) {
	err := filter.Run(context.Background(), "", strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "empty filter program")
}

func TestRunHonoursContext(t *testing.T) {
	requireAwk(t)

	// Stdin must be an *os.File here so Run is not left waiting on a copy
	// goroutine after the interpreter is killed.
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = filter.Run(ctx, "{print}", pr, &bytes.Buffer{})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestUnbufferedWrapsProgram(t *testing.T) {
	requireAwk(t)

	cmd, err := filter.Unbuffered("{print $1}")
	require.NoError(t, err)

	require.NotEmpty(t, cmd.Args)
	assert.Equal(t, "{print $1}", cmd.Args[len(cmd.Args)-1])
}
