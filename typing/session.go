package typing

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"typing-simulator/surface"
)

// State of a simulation session
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	// StateFailed means the surface rejected a mutation
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can no longer change state
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Session is one simulated typing run bound to a surface. It is only
// mutated by the engine goroutine that runs it.
type Session struct {
	id      string
	surface surface.Surface
	text    []rune

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	state     atomic.Int32
	committed atomic.Int64

	mu  sync.Mutex
	err error
}

func newSession(parent context.Context, s surface.Surface, text string) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:      uuid.NewString(),
		surface: s,
		text:    []rune(text),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// ID is unique per session
func (s *Session) ID() string { return s.id }

// SurfaceID identifies the surface being driven
func (s *Session) SurfaceID() string { return s.surface.ID() }

// Text returns the target text
func (s *Session) Text() string { return string(s.text) }

// State returns the current state
func (s *Session) State() State { return State(s.state.Load()) }

// Committed is the number of target characters already typed correctly
func (s *Session) Committed() int { return int(s.committed.Load()) }

// Cancel asks the session to stop at its next checkpoint. A typo correction
// already in progress is finished first.
func (s *Session) Cancel() { s.cancel() }

// Done is closed once the session reached a terminal state
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends. It returns nil on completion,
// ErrCancelled on cancellation and the surface error on failure.
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

// Err is the terminal error, nil while running or after completion
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) end(state State, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(state))
	s.cancel()
}
