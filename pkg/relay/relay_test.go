package relay_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/juliansj/crouton/pkg/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newTransport creates a healthy transport (directory, both FIFOs, lock
// file) under a temp dir and returns a client pointed at it.
func newTransport(t *testing.T) *relay.Client {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "ext")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, syscall.Mkfifo(filepath.Join(dir, relay.RequestPipe), 0o600))
	require.NoError(t, syscall.Mkfifo(filepath.Join(dir, relay.ResponsePipe), 0o600))

	lock := filepath.Join(t.TempDir(), "lock")
	require.NoError(t, os.WriteFile(lock, nil, 0o600))

	return &relay.Client{Dir: dir, LockPath: lock, Timeout: 3 * time.Second}
}

// serve handles n transactions sequentially the way the agent does: block
// until a requester connects, read the request to EOF, write back the
// handler's response.
func serve(t *testing.T, c *relay.Client, n int, handle func(string) string) {
	t.Helper()

	go func() {
		for i := 0; i < n; i++ {
			in, err := os.OpenFile(c.RequestPath(), os.O_RDONLY, 0)
			if err != nil {
				return
			}
			req, err := io.ReadAll(in)
			in.Close()
			if err != nil {
				return
			}

			out, err := os.OpenFile(c.ResponsePath(), os.O_WRONLY, 0)
			if err != nil {
				return
			}
			out.WriteString(handle(string(req)))
			out.Close()
		}
	}()
}

func TestSendPingPong(t *testing.T) {
	c := newTransport(t)
	serve(t, c, 1, func(req string) string {
		assert.Equal(t, "ping", req)
		return "pong"
	})

	resp, err := c.Send("ping")
	assert.NoError(t, err)
	assert.Equal(t, "pong", resp)
}

func TestSendEchoRoundTrip(t *testing.T) {
	scenarios := map[string]string{
		"test plain word":          "hello",
		"test newline terminated":  "version\n",
		"test embedded specials":   "x $HOME `cmd` \"quoted\" 'single' \\back",
		"test multiline payload":   "line one\nline two\nline three\n",
		"test leading error shape": "not actually an error",
	}

	for scenario, payload := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			c := newTransport(t)
			serve(t, c, 1, func(req string) string { return req })

			resp, err := c.Send(payload)
			assert.NoError(t, err)
			assert.Equal(t, payload, resp)
		})
	}
}

func TestSendMissingDirectory(t *testing.T) {
	c := &relay.Client{
		Dir:      filepath.Join(t.TempDir(), "nonexistent"),
		LockPath: filepath.Join(t.TempDir(), "lock"),
		Timeout:  time.Second,
	}

	resp, err := c.Send("ping")
	assert.Empty(t, resp)

	var terr *relay.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, c.Dir, terr.Path)

	wire := c.SendWire("ping")
	assert.True(t, relay.IsError(wire))
	assert.Contains(t, wire, c.Dir)
}

func TestSendMissingPipe(t *testing.T) {
	c := newTransport(t)
	require.NoError(t, os.Remove(c.ResponsePath()))

	_, err := c.Send("ping")

	var terr *relay.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, c.ResponsePath(), terr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSendNotAPipe(t *testing.T) {
	c := newTransport(t)
	require.NoError(t, os.Remove(c.RequestPath()))
	require.NoError(t, os.WriteFile(c.RequestPath(), []byte("regular"), 0o600))

	_, err := c.Send("ping")

	assert.ErrorIs(t, err, relay.ErrNotPipe)
	assert.True(t, relay.IsError(c.SendWire("ping")))
}

func TestSendMissingLockFile(t *testing.T) {
	c := newTransport(t)
	require.NoError(t, os.Remove(c.LockPath))

	_, err := c.Send("ping")

	var terr *relay.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, c.LockPath, terr.Path)
}

func TestSendTimesOutWithoutAgent(t *testing.T) {
	c := newTransport(t)
	c.Timeout = 300 * time.Millisecond

	start := time.Now()
	_, err := c.Send("ping")
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, relay.ErrTimeout)
	assert.Less(t, elapsed, 2*time.Second)

	// The lock must not be left held.
	f, err := os.OpenFile(c.LockPath, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()
	assert.NoError(t, unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB))
}

func TestSendTimesOutOnHeldLock(t *testing.T) {
	c := newTransport(t)
	c.Timeout = 300 * time.Millisecond

	holder, err := os.OpenFile(c.LockPath, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_EX))

	start := time.Now()
	wire := c.SendWire("ping")
	elapsed := time.Since(start)

	assert.True(t, relay.IsError(wire))
	assert.Less(t, elapsed, 2*time.Second)

	require.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_UN))

	// Released cleanly: the lock is immediately acquirable again.
	assert.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_EX|unix.LOCK_NB))
}

func TestSendResponsePipeReplacedByRegularFile(t *testing.T) {
	c := newTransport(t)
	c.Timeout = time.Second

	holder, err := os.OpenFile(c.LockPath, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_EX))

	done := make(chan error, 1)
	go func() {
		_, err := c.Send("ping")
		done <- err
	}()

	// While Send waits on the lock, swap the response pipe for a regular
	// file. Regular files take no read deadline, so the transaction must
	// fail there rather than silently running unbounded.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.Remove(c.ResponsePath()))
	require.NoError(t, os.WriteFile(c.ResponsePath(), nil, 0o600))
	require.NoError(t, unix.Flock(int(holder.Fd()), unix.LOCK_UN))

	err = <-done

	var terr *relay.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, c.ResponsePath(), terr.Path)
	assert.ErrorIs(t, err, os.ErrNoDeadline)
}

func TestConcurrentSendsNeverInterleave(t *testing.T) {
	const callers = 8

	c := newTransport(t)
	serve(t, c, callers, func(req string) string { return req })

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			payload := string(rune('a'+i)) + "-payload\n"
			resp, err := c.Send(payload)
			assert.NoError(t, err)
			assert.Equal(t, payload, resp)
		}()
	}
	wg.Wait()
}

func TestIsError(t *testing.T) {
	assert.True(t, relay.IsError("Etransport unavailable: /run/crouton/ext"))
	assert.False(t, relay.IsError("pong"))
	assert.False(t, relay.IsError(""))
}

func TestTransportErrorUnwrap(t *testing.T) {
	terr := &relay.TransportError{Path: "/some/path", Err: os.ErrNotExist}

	assert.True(t, errors.Is(terr, os.ErrNotExist))
	assert.Contains(t, terr.Error(), "/some/path")
}
