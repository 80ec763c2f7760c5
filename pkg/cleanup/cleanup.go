// Package cleanup guarantees teardown actions run exactly once however the
// process exits: normally, or on an interrupt-class signal (SIGINT, SIGHUP,
// SIGTERM). It replaces the shell idiom of composing a trap string and
// re-installing it as work is layered on.
package cleanup

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalExitCode is the exit code used when the stack fires because of a
// signal, distinguishing signal-triggered termination from a normal exit.
const SignalExitCode = 2

// trapSignals are the interrupt-class signals the stack fires on.
var trapSignals = []os.Signal{os.Interrupt, syscall.SIGHUP, syscall.SIGTERM}

// Action is a single teardown step. Actions are expected to be infallible
// or best-effort; the stack does not catch failures, so an Action that
// panics aborts teardown the same way a failing shell trap would.
type Action func()

// Stack holds an ordered list of teardown actions. The most recently pushed
// action runs first, followed by everything installed before it, so each
// action sees the effects of the actions pushed after it already undone.
//
// The zero value is not usable; call New.
type Stack struct {
	mu      sync.Mutex
	actions []Action
	saved   [][]Action
	notify  chan os.Signal
	armed   bool
	fired   bool

	// exit is called at the end of the signal leg. Swapped out in tests.
	exit func(code int)
}

// New returns an empty, unarmed stack. Signal handling is armed by the
// first call to Install or Push.
func New() *Stack {
	return &Stack{exit: os.Exit}
}

// Install replaces the composed action list wholesale and arms signal
// handling. The most recent call wins. Actions run front to back.
func (s *Stack) Install(actions ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fired {
		return
	}

	s.actions = actions
	s.arm()
}

// Push saves the current composed list and prepends action to it, so that
// action runs before everything installed so far. A later Pop restores
// exactly the list saved here.
func (s *Stack) Push(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fired {
		return
	}

	prev := make([]Action, len(s.actions))
	copy(prev, s.actions)
	s.saved = append(s.saved, prev)

	s.actions = append([]Action{action}, s.actions...)
	s.arm()
}

// Pop restores the most recently saved composed list. Popping with nothing
// saved clears the list.
func (s *Stack) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fired {
		return
	}

	if n := len(s.saved); n > 0 {
		s.actions = s.saved[n-1]
		s.saved = s.saved[:n-1]
	} else {
		s.actions = nil
	}
}

// Run executes the composed list for a normal exit. It does not force an
// exit code; the caller's natural exit code is preserved. Defer it from
// main:
//
//	stack := cleanup.New()
//	defer stack.Run()
//
// Run is a no-op if the stack already fired.
func (s *Stack) Run() {
	actions, ok := s.begin()
	if !ok {
		return
	}
	for _, action := range actions {
		action()
	}
}

// Depth returns the number of actions in the composed list.
func (s *Stack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// arm registers the signal watcher. Caller holds s.mu.
func (s *Stack) arm() {
	if s.armed {
		return
	}

	s.notify = make(chan os.Signal, 1)
	signal.Notify(s.notify, trapSignals...)
	s.armed = true

	go func() {
		<-s.notify
		s.fire()
	}()
}

// begin claims the right to run teardown. It disables signal delivery for
// all remaining signal classes before returning, so a second signal during
// teardown gets the default disposition rather than re-entering the stack.
// Reports false if the stack already fired.
func (s *Stack) begin() ([]Action, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fired {
		return nil, false
	}
	s.fired = true

	if s.armed {
		signal.Stop(s.notify)
		close(s.notify)
	}

	return s.actions, true
}

// fire is the signal leg: run the composed list, then exit with the
// sentinel code. An empty list still exits; the sentinel code is part of
// the signal contract, not of any particular action.
func (s *Stack) fire() {
	actions, ok := s.begin()
	if !ok {
		return
	}

	for _, action := range actions {
		action()
	}

	s.exit(SignalExitCode)
}

var defaultStack = New()

// Install replaces the composed action list on the process-wide stack.
func Install(actions ...Action) { defaultStack.Install(actions...) }

// Push prepends action to the process-wide stack.
func Push(action Action) { defaultStack.Push(action) }

// Pop restores the previously saved list on the process-wide stack.
func Pop() { defaultStack.Pop() }

// Run executes the process-wide stack for a normal exit.
func Run() { defaultStack.Run() }
