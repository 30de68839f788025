package stealth

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// ActionType defines the context for the delay
type ActionType string

const (
	ActionTypeKeystroke ActionType = "keystroke"
	ActionTypeHesitate  ActionType = "hesitate"
	ActionTypeCorrect   ActionType = "correct"
)

// Range is an inclusive delay interval
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Default timings for various actions
var defaultTimings = map[ActionType]Range{
	ActionTypeKeystroke: {Min: 50 * time.Millisecond, Max: 150 * time.Millisecond},
	ActionTypeHesitate:  {Min: 100 * time.Millisecond, Max: 300 * time.Millisecond},
	ActionTypeCorrect:   {Min: 200 * time.Millisecond, Max: 800 * time.Millisecond},
}

// DefaultRange returns the stock range for an action
func DefaultRange(action ActionType) Range {
	r, ok := defaultTimings[action]
	if !ok {
		// Fallback if unknown action
		return Range{Min: 500 * time.Millisecond, Max: 1000 * time.Millisecond}
	}
	return r
}

// Rand is the randomness the simulation draws from.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// LockedRand makes a Rand safe for use from several goroutines
type LockedRand struct {
	mu  sync.Mutex
	src Rand
}

// NewRand returns a goroutine-safe generator seeded with seed
func NewRand(seed int64) *LockedRand {
	return &LockedRand{src: rand.New(rand.NewSource(seed))}
}

// Lock wraps an existing generator
func Lock(r Rand) *LockedRand {
	if lr, ok := r.(*LockedRand); ok {
		return lr
	}
	return &LockedRand{src: r}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}

// Sample returns a random duration in [Min, Max] at millisecond granularity
func (r Range) Sample(rng Rand) time.Duration {
	if r.Min >= r.Max {
		return r.Min
	}
	span := int((r.Max-r.Min)/time.Millisecond) + 1
	return r.Min + time.Duration(rng.Intn(span))*time.Millisecond
}

// Clamp forces the range into [floor, ceil] and repairs an inverted range
func (r Range) Clamp(floor, ceil time.Duration) Range {
	if r.Min < floor {
		r.Min = floor
	}
	if r.Min > ceil {
		r.Min = ceil
	}
	if r.Max > ceil {
		r.Max = ceil
	}
	if r.Max < r.Min {
		r.Max = r.Min
	}
	return r
}

// Sleeper suspends the caller. Implementations return early with ctx.Err()
// when the context is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
