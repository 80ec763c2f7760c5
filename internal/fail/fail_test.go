package fail

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	var code int

	prevOut, prevExit := out, exit
	out = &buf
	exit = func(c int) { code = c }
	t.Cleanup(func() { out, exit = prevOut, prevExit })

	With(3, "unknown release '%s'", "warty")

	require.Equal(t, 3, code)
	assert.Equal(t, "unknown release 'warty'\n", buf.String())
}
