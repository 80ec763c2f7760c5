package operations

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/juliansj/crouton/pkg/relay"
)

// HostCommandOpts holds the options for the HostCommand operation.
type HostCommandOpts struct {
	// Payload is the request text. Empty means read it from In.
	Payload string
	// In supplies the payload when none is given on the command line.
	In io.Reader
	// Out receives the response verbatim.
	Out io.Writer
	// Dir and LockPath override the well-known transport paths.
	Dir      string
	LockPath string
	// Timeout bounds the whole relay transaction.
	Timeout time.Duration
}

// HostCommand relays a request to the host agent and prints the response.
// Transport failures come back over the same channel as marker responses
// and are printed the same way; this operation never fails the caller on a
// degraded transport.
func HostCommand(opts *HostCommandOpts) error {
	payload := opts.Payload
	if payload == "" {
		raw, err := io.ReadAll(opts.In)
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		payload = string(raw)
	}

	if !strings.HasSuffix(payload, "\n") {
		payload += "\n"
	}

	client := &relay.Client{
		Dir:      opts.Dir,
		LockPath: opts.LockPath,
		Timeout:  opts.Timeout,
	}

	if _, err := io.WriteString(opts.Out, client.SendWire(payload)); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}
