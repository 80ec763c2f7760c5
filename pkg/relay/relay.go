// Package relay implements the synchronous command channel between a
// process in a sandboxed environment and the host-side agent. A request is
// written to one named pipe and the reply is read back from a second, with
// an advisory file lock serializing whole transactions and a hard deadline
// bounding the lot.
//
// The transport (the pipe directory, both FIFOs, and the lock file) is
// created and owned by the agent. The client only ever opens these paths;
// it never creates, deletes, or resizes them. A missing or malformed
// transport is a degraded-mode condition, not an error that aborts the
// caller: see SendWire.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultDir is the well-known transport directory.
	DefaultDir = "/run/crouton/ext"

	// DefaultLockPath is the well-known advisory lock file. It lives
	// outside the transport directory so the agent can recreate the pipes
	// without invalidating in-flight lock handles.
	DefaultLockPath = "/run/lock/crouton-relay"

	// DefaultTimeout bounds a whole transaction: lock acquisition, the
	// request write, and the response read.
	DefaultTimeout = 3 * time.Second

	// RequestPipe and ResponsePipe are the FIFO names inside the
	// transport directory, named from the agent's point of view.
	RequestPipe  = "in"
	ResponsePipe = "out"

	// Marker prefixes synthesized error responses. Callers that receive
	// wire-format responses must check for it before treating the payload
	// as a genuine agent reply.
	Marker = "E"
)

// retryInterval is how often blocked opens, reads, and lock attempts are
// retried while waiting out the deadline.
const retryInterval = 25 * time.Millisecond

// ErrTimeout is the cause recorded on a TransportError when the transaction
// deadline elapses.
var ErrTimeout = errors.New("transaction timed out")

// ErrNotPipe is the cause recorded on a TransportError when a transport
// path exists but is not a FIFO.
var ErrNotPipe = errors.New("not a named pipe")

// TransportError is the degraded-mode result of Send: the transport was
// missing, malformed, or did not complete a transaction in time. It is the
// only error kind Send returns.
type TransportError struct {
	// Path is the offending transport path. Empty for timeouts that
	// cannot be pinned to a single path.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *TransportError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client relays single request/response transactions to the agent. The
// zero value uses the package defaults; fields may be overridden before
// first use.
type Client struct {
	// Dir is the transport directory containing the request and response
	// pipes.
	Dir string

	// LockPath is the advisory lock file serializing transactions across
	// processes.
	LockPath string

	// Timeout bounds the whole locked transaction.
	Timeout time.Duration
}

// NewClient returns a client for the well-known transport paths.
func NewClient() *Client {
	return &Client{
		Dir:      DefaultDir,
		LockPath: DefaultLockPath,
		Timeout:  DefaultTimeout,
	}
}

func (c *Client) dir() string {
	if c.Dir == "" {
		return DefaultDir
	}
	return c.Dir
}

func (c *Client) lockPath() string {
	if c.LockPath == "" {
		return DefaultLockPath
	}
	return c.LockPath
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// RequestPath returns the path of the request pipe.
func (c *Client) RequestPath() string {
	return filepath.Join(c.dir(), RequestPipe)
}

// ResponsePath returns the path of the response pipe.
func (c *Client) ResponsePath() string {
	return filepath.Join(c.dir(), ResponsePipe)
}

// Send writes payload to the request pipe and returns the full contents of
// the response pipe. Payloads are opaque bytes, newline-terminated by
// convention; the response is returned verbatim. The returned error is
// always a *TransportError; there is no other failure mode, and in
// particular an agent reply that merely looks unhappy is still a success
// here.
//
// One transaction is outstanding at a time per pipe pair. Send blocks for
// at most the client timeout and never leaves the lock held on return.
func (c *Client) Send(payload string) (string, error) {
	if terr := c.checkTransport(); terr != nil {
		return "", terr
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout())
	defer cancel()

	lock, terr := c.acquireLock(ctx)
	if terr != nil {
		return "", terr
	}
	defer lock.Close()

	deadline, _ := ctx.Deadline()

	// Open the response pipe before writing the request so no response
	// byte can be missed. The read side of a FIFO opens without a writer
	// present.
	out, err := os.OpenFile(
		c.ResponsePath(),
		os.O_RDONLY|syscall.O_NONBLOCK,
		0,
	)
	if err != nil {
		return "", &TransportError{Path: c.ResponsePath(), Err: err}
	}
	defer out.Close()

	// The whole bounded-wait contract rests on this deadline; a pipe that
	// cannot take one is as unusable as a missing pipe.
	if err := out.SetReadDeadline(deadline); err != nil {
		return "", &TransportError{Path: c.ResponsePath(), Err: err}
	}

	if terr := c.writeRequest(ctx, payload); terr != nil {
		return "", terr
	}

	resp, terr := c.readResponse(ctx, out)
	if terr != nil {
		return "", terr
	}
	return resp, nil
}

// SendWire is Send with the shell-facing wire convention: it always returns
// a response string, synthesizing a Marker-prefixed diagnostic when the
// transport fails. Callers that must never abort (UI integration glue) use
// this form and check IsError.
func (c *Client) SendWire(payload string) string {
	resp, err := c.Send(payload)
	if err != nil {
		return Marker + err.Error()
	}
	return resp
}

// IsError reports whether a wire-format response is a synthesized transport
// diagnostic rather than an agent reply.
func IsError(response string) bool {
	return strings.HasPrefix(response, Marker)
}

// checkTransport verifies the transport preconditions: the directory
// exists, and both pipes exist and are FIFOs. The lock file is checked by
// opening it in acquireLock.
func (c *Client) checkTransport() *TransportError {
	info, err := os.Stat(c.dir())
	if err != nil {
		return &TransportError{Path: c.dir(), Err: err}
	}
	if !info.IsDir() {
		return &TransportError{Path: c.dir(), Err: syscall.ENOTDIR}
	}

	for _, p := range []string{c.RequestPath(), c.ResponsePath()} {
		info, err := os.Stat(p)
		if err != nil {
			return &TransportError{Path: p, Err: err}
		}
		if info.Mode()&os.ModeNamedPipe == 0 {
			return &TransportError{Path: p, Err: ErrNotPipe}
		}
	}

	return nil
}

// acquireLock takes the exclusive advisory lock, retrying until the
// deadline. The lock file is opened, never created; closing the returned
// file releases the lock.
func (c *Client) acquireLock(ctx context.Context) (*os.File, *TransportError) {
	f, err := os.OpenFile(c.lockPath(), os.O_RDONLY, 0)
	if err != nil {
		return nil, &TransportError{Path: c.lockPath(), Err: err}
	}

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return f, nil
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, &TransportError{Path: c.lockPath(), Err: err}
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, c.timeoutError()
		case <-ticker.C:
		}
	}
}

// writeRequest writes payload verbatim to the request pipe and closes it,
// delivering EOF to the agent. Opening the write side of a FIFO fails with
// ENXIO until the agent holds the read side, so the open is retried until
// the deadline.
func (c *Client) writeRequest(ctx context.Context, payload string) *TransportError {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	var in *os.File
	for {
		f, err := os.OpenFile(
			c.RequestPath(),
			os.O_WRONLY|syscall.O_NONBLOCK,
			0,
		)
		if err == nil {
			in = f
			break
		}
		if !errors.Is(err, unix.ENXIO) {
			return &TransportError{Path: c.RequestPath(), Err: err}
		}

		select {
		case <-ctx.Done():
			return c.timeoutError()
		case <-ticker.C:
		}
	}
	defer in.Close()

	deadline, _ := ctx.Deadline()
	if err := in.SetWriteDeadline(deadline); err != nil {
		return &TransportError{Path: c.RequestPath(), Err: err}
	}

	if _, err := in.WriteString(payload); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return c.timeoutError()
		}
		return &TransportError{Path: c.RequestPath(), Err: err}
	}

	return nil
}

// readResponse reads the response pipe to EOF. A FIFO read side opened
// before any writer reports EOF immediately, so empty reads are retried
// until the agent connects; EOF after at least one byte is the end of the
// response.
func (c *Client) readResponse(ctx context.Context, out *os.File) (string, *TransportError) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	var response []byte
	chunk := make([]byte, 4096)

	for {
		n, err := out.Read(chunk)
		if n > 0 {
			response = append(response, chunk[:n]...)
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			if len(response) > 0 {
				return string(response), nil
			}
			// No writer yet; wait for the agent to connect.
		case errors.Is(err, os.ErrDeadlineExceeded):
			return "", c.timeoutError()
		default:
			return "", &TransportError{Path: c.ResponsePath(), Err: err}
		}

		select {
		case <-ctx.Done():
			return "", c.timeoutError()
		case <-ticker.C:
		}
	}
}

func (c *Client) timeoutError() *TransportError {
	return &TransportError{
		Err: fmt.Errorf("%w after %s", ErrTimeout, c.timeout()),
	}
}
