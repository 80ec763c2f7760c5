// Package agent implements the reference host agent for the command relay.
// It owns the transport files the relay client refuses to create, serves one
// request at a time, and answers over the response pipe. The production
// agent lives on the host side of the sandbox boundary; this one exists for
// development and tests.
package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/juliansj/crouton/internal/filter"
	"github.com/juliansj/crouton/pkg/relay"
)

const (
	pollInterval = 25 * time.Millisecond
	readSlice    = 100 * time.Millisecond
)

// Handler answers one relayed command. It receives the request's arguments
// (the words after the command itself) and returns the response body. A
// returned error is delivered to the client as a marker response.
type Handler func(args []string) (string, error)

// Options configures an Agent. Zero values fall back to the relay defaults,
// so an empty Options serves the standard transport location.
type Options struct {
	Dir          string
	LockPath     string
	Echo         bool
	Transform    string
	Version      string
	ReplyTimeout time.Duration
	Logger       *slog.Logger
}

type Agent struct {
	opts     Options
	handlers map[string]Handler
	log      *slog.Logger
}

func New(opts Options) *Agent {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	a := &Agent{
		opts:     opts,
		handlers: make(map[string]Handler),
		log:      log,
	}

	a.Handle("ping", func([]string) (string, error) {
		return "pong", nil
	})
	a.Handle("version", func([]string) (string, error) {
		return a.version(), nil
	})

	return a
}

// Handle registers a handler for the given command word, replacing any
// previous registration.
func (a *Agent) Handle(command string, h Handler) {
	a.handlers[command] = h
}

func (a *Agent) dir() string {
	if a.opts.Dir != "" {
		return a.opts.Dir
	}
	return relay.DefaultDir
}

func (a *Agent) lockPath() string {
	if a.opts.LockPath != "" {
		return a.opts.LockPath
	}
	return relay.DefaultLockPath
}

func (a *Agent) version() string {
	if a.opts.Version != "" {
		return a.opts.Version
	}
	return "dev"
}

func (a *Agent) replyTimeout() time.Duration {
	if a.opts.ReplyTimeout > 0 {
		return a.opts.ReplyTimeout
	}
	return relay.DefaultTimeout
}

// Setup creates the transport files: the directory, both pipes and the lock
// file. Existing pipes are reused so a restarted agent picks up where the
// last one stopped. The returned teardown removes everything Setup made;
// callers register it on their cleanup stack.
func (a *Agent) Setup() (func(), error) {
	if err := os.MkdirAll(a.dir(), 0o755); err != nil {
		return nil, fmt.Errorf("create transport directory: %w", err)
	}

	for _, name := range []string{relay.RequestPipe, relay.ResponsePipe} {
		if err := makeFifo(filepath.Join(a.dir(), name)); err != nil {
			return nil, err
		}
	}

	lock, err := os.OpenFile(a.lockPath(), os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	lock.Close()

	dir, lockPath := a.dir(), a.lockPath()
	teardown := func() {
		os.Remove(filepath.Join(dir, relay.RequestPipe))
		os.Remove(filepath.Join(dir, relay.ResponsePipe))
		os.Remove(lockPath)
	}

	return teardown, nil
}

func makeFifo(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.Mode()&os.ModeNamedPipe != 0 {
			return nil
		}
		return fmt.Errorf("%s exists and is not a named pipe", path)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := unix.Mkfifo(path, 0o620); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}

	// Mkfifo modes pass through the umask; pin the group-writable mode the
	// relay convention expects.
	if err := os.Chmod(path, 0o620); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}

	return nil
}

// Serve handles relayed commands until ctx is done. Transaction failures are
// logged and served past; only cancellation ends the loop.
func (a *Agent) Serve(ctx context.Context) error {
	a.log.Info("agent serving", "dir", a.dir(), "echo", a.opts.Echo)

	for {
		err := a.serveOne(ctx)
		if err == nil {
			continue
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.log.Info("agent stopping")
			return nil
		}

		a.log.Error("serve transaction", "err", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
		}
	}
}

func (a *Agent) serveOne(ctx context.Context) error {
	req, err := a.readRequest(ctx)
	if err != nil {
		return err
	}

	a.log.Debug("request", "payload", strings.TrimRight(req, "\n"))

	return a.writeResponse(ctx, a.dispatch(ctx, req))
}

// readRequest opens the request pipe and reads one request: everything up
// to the writer closing its end. With no writer connected a nonblocking
// read reports EOF, so an empty EOF means keep waiting, and EOF after data
// means the request is complete.
func (a *Agent) readRequest(ctx context.Context) (string, error) {
	in, err := os.OpenFile(
		filepath.Join(a.dir(), relay.RequestPipe),
		os.O_RDONLY|unix.O_NONBLOCK,
		0,
	)
	if err != nil {
		return "", fmt.Errorf("open request pipe: %w", err)
	}
	defer in.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var buf []byte
	chunk := make([]byte, 4096)

	for {
		if err := in.SetReadDeadline(time.Now().Add(readSlice)); err != nil {
			return "", fmt.Errorf("set read deadline: %w", err)
		}

		n, err := in.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			continue
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) > 0 {
					return string(buf), nil
				}
			} else if !errors.Is(err, os.ErrDeadlineExceeded) {
				return "", fmt.Errorf("read request: %w", err)
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Agent) dispatch(ctx context.Context, req string) string {
	if a.opts.Transform != "" {
		var out bytes.Buffer
		if err := filter.Run(ctx, a.opts.Transform, strings.NewReader(req), &out); err != nil {
			a.log.Error("transform request", "err", err)
			return relay.Marker + "transform failed: " + err.Error() + "\n"
		}
		req = out.String()
	}

	fields := strings.Fields(req)
	if len(fields) == 0 {
		if a.opts.Echo {
			return req
		}
		return relay.Marker + "empty request\n"
	}

	if h, ok := a.handlers[fields[0]]; ok {
		resp, err := h(fields[1:])
		if err != nil {
			return relay.Marker + err.Error() + "\n"
		}
		return strings.TrimRight(resp, "\n") + "\n"
	}

	if a.opts.Echo {
		return req
	}

	return fmt.Sprintf("%sunknown command: %s\n", relay.Marker, fields[0])
}

// writeResponse opens the response pipe and delivers the response. The
// well-behaved client already holds the read end open before it sends a
// request, so ENXIO here means the client went away; retry briefly, then
// drop the response.
func (a *Agent) writeResponse(ctx context.Context, resp string) error {
	deadline := time.Now().Add(a.replyTimeout())

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var out *os.File
	for {
		f, err := os.OpenFile(
			filepath.Join(a.dir(), relay.ResponsePipe),
			os.O_WRONLY|unix.O_NONBLOCK,
			0,
		)
		if err == nil {
			out = f
			break
		}
		if !errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("open response pipe: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no reader on response pipe")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	defer out.Close()

	if err := out.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := out.WriteString(resp); err != nil {
		return fmt.Errorf("write response: %w", err)
	}

	return nil
}
