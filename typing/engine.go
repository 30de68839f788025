// Package typing drives an editable surface character by character with
// human-like timing, injecting and correcting typos on the way.
package typing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"typing-simulator/logger"
	"typing-simulator/stealth"
	"typing-simulator/surface"
)

// ErrCancelled is returned by Session.Wait for runs stopped before the end
var ErrCancelled = errors.New("typing session cancelled")

// Observer is told about every session state transition
type Observer func(s *Session, state State)

// Option customizes an Engine
type Option func(*Engine)

// WithRand replaces the random source. It is wrapped for concurrent use.
func WithRand(r stealth.Rand) Option {
	return func(e *Engine) { e.rng = stealth.Lock(r) }
}

// WithSleeper replaces the wall-clock sleeper
func WithSleeper(s stealth.Sleeper) Option {
	return func(e *Engine) { e.sleeper = s }
}

// WithTypoTable replaces the default adjacency table
func WithTypoTable(t *stealth.TypoTable) Option {
	return func(e *Engine) { e.typos = t }
}

// WithObserver registers a state transition callback
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// Engine owns the typing state machine. At most one session runs per
// surface; starting another one on the same surface cancels the first and
// waits for it to stop touching the surface.
type Engine struct {
	log       logger.Logger
	rng       stealth.Rand
	sleeper   stealth.Sleeper
	typos     *stealth.TypoTable
	observers []Observer

	cfgMu sync.RWMutex
	cfg   Config

	startMu  sync.Mutex
	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// New creates an engine
func New(cfg Config, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:      log,
		sleeper:  stealth.RealSleeper{},
		typos:    stealth.DefaultTypoTable(),
		cfg:      cfg.normalize(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = stealth.NewRand(time.Now().UnixNano())
	}
	return e
}

// Config returns the configuration new samples are drawn from
func (e *Engine) Config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// UpdateConfig swaps the configuration. Running sessions pick it up for
// their next delay sample or typo decision; characters already typed are
// left alone.
func (e *Engine) UpdateConfig(cfg Config) {
	cfg = cfg.normalize()
	e.cfgMu.Lock()
	e.cfg = cfg
	e.cfgMu.Unlock()
	e.log.Debug("Typing config updated",
		"error_rate", cfg.ErrorRate,
		"keystroke_min", cfg.InterKeystroke.Min, "keystroke_max", cfg.InterKeystroke.Max)
}

// Active returns the running session on a surface, if any
func (e *Engine) Active(surfaceID string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[surfaceID]
}

// Cancel stops the session on a surface. It reports whether one was running.
func (e *Engine) Cancel(surfaceID string) bool {
	s := e.Active(surfaceID)
	if s == nil {
		return false
	}
	s.Cancel()
	return true
}

// Start begins typing text into surf and returns immediately. Any session
// already bound to the same surface is cancelled and awaited first.
func (e *Engine) Start(ctx context.Context, surf surface.Surface, text string) (*Session, error) {
	if surf == nil {
		return nil, errors.New("typing: nil surface")
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	// The lock is released while a previous session winds down so that
	// other surfaces are not held up; the surface is checked again after.
	for prev := e.Active(surf.ID()); prev != nil; prev = e.Active(surf.ID()) {
		e.log.Info("Cancelling active session on surface", "surface", surf.ID(), "session", prev.ID())
		prev.Cancel()
		e.startMu.Unlock()
		select {
		case <-prev.Done():
			e.startMu.Lock()
		case <-ctx.Done():
			e.startMu.Lock()
			return nil, ctx.Err()
		}
	}

	s := newSession(ctx, surf, text)
	e.mu.Lock()
	e.sessions[surf.ID()] = s
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(s)
	return s, nil
}

// Simulate types text into surf and blocks until the run ends
func (e *Engine) Simulate(ctx context.Context, surf surface.Surface, text string) error {
	s, err := e.Start(ctx, surf, text)
	if err != nil {
		return err
	}
	return s.Wait()
}

// Shutdown cancels every session and waits for all of them to stop
func (e *Engine) Shutdown() {
	e.mu.Lock()
	for _, s := range e.sessions {
		s.Cancel()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) run(s *Session) {
	defer e.wg.Done()
	defer e.release(s)

	// Surface mutations never observe cancellation: a keystroke is either
	// fully applied or not started.
	mctx := context.WithoutCancel(s.ctx)
	surf := s.surface

	if err := surf.Clear(mctx); err != nil {
		e.finish(s, StateFailed, fmt.Errorf("clear surface: %w", err))
		return
	}
	if err := surf.Focus(mctx); err != nil {
		e.finish(s, StateFailed, fmt.Errorf("focus surface: %w", err))
		return
	}
	e.transition(s, StateRunning)
	e.log.Debug("Typing started", "session", s.ID(), "surface", surf.ID(), "chars", len(s.text))

	for i, ch := range s.text {
		if s.ctx.Err() != nil {
			e.finish(s, StateCancelled, ErrCancelled)
			return
		}

		var err error
		if e.rng.Float64() < e.Config().ErrorRate && i > 0 {
			err = e.mistype(mctx, surf, ch)
		} else {
			err = e.emit(mctx, surf, ch)
		}
		if err != nil {
			e.finish(s, StateFailed, err)
			return
		}
		s.committed.Add(1)

		// Cancellation checkpoint: an interrupted wait is picked up by the
		// check at the top of the next iteration.
		_ = e.sleeper.Sleep(s.ctx, e.Config().InterKeystroke.Sample(e.rng))
	}

	e.finish(s, StateCompleted, nil)
}

// mistype types a wrong character, notices it, backspaces and types ch.
// It always runs to completion.
func (e *Engine) mistype(ctx context.Context, surf surface.Surface, ch rune) error {
	typo := e.typos.Generate(ch, e.rng)
	if err := e.emit(ctx, surf, typo); err != nil {
		return err
	}
	e.pause(ctx, e.Config().Hesitation)

	if err := surf.DeleteBackward(ctx); err != nil {
		return fmt.Errorf("backspace: %w", err)
	}
	if err := surf.NotifyChanged(ctx); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := e.emit(ctx, surf, ch); err != nil {
		return err
	}
	if e.rng.Float64() < correctionPauseProbability {
		e.pause(ctx, e.Config().Correction)
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, surf surface.Surface, ch rune) error {
	if err := surf.InsertCharacter(ctx, ch); err != nil {
		return fmt.Errorf("insert %q: %w", ch, err)
	}
	if err := surf.NotifyChanged(ctx); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (e *Engine) pause(ctx context.Context, r stealth.Range) {
	_ = e.sleeper.Sleep(ctx, r.Sample(e.rng))
}

func (e *Engine) finish(s *Session, state State, err error) {
	s.end(state, err)
	switch state {
	case StateFailed:
		e.log.Error("Typing failed", "session", s.ID(), "surface", s.SurfaceID(), "committed", s.Committed(), "error", err)
	case StateCancelled:
		e.log.Info("Typing cancelled", "session", s.ID(), "surface", s.SurfaceID(), "committed", s.Committed())
	default:
		e.log.Debug("Typing completed", "session", s.ID(), "surface", s.SurfaceID(), "chars", s.Committed())
	}
	e.notify(s, state)
}

func (e *Engine) transition(s *Session, state State) {
	s.state.Store(int32(state))
	e.notify(s, state)
}

func (e *Engine) notify(s *Session, state State) {
	for _, o := range e.observers {
		o(s, state)
	}
}

// release unbinds the session from its surface and signals Done
func (e *Engine) release(s *Session) {
	e.mu.Lock()
	if e.sessions[s.SurfaceID()] == s {
		delete(e.sessions, s.SurfaceID())
	}
	e.mu.Unlock()
	close(s.done)
}
