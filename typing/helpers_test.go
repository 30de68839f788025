package typing

import (
	"context"
	"errors"
	"sync"
	"time"

	"typing-simulator/logger"
	"typing-simulator/stealth"
	"typing-simulator/surface"
)

// recordingSurface logs every call on top of an in-memory value buffer.
type recordingSurface struct {
	*surface.ValueBuffer

	mu      sync.Mutex
	ops     []string
	failOn  string
	failErr error
}

func newRecordingSurface(id string) *recordingSurface {
	return &recordingSurface{ValueBuffer: surface.NewValueBuffer(id)}
}

func (r *recordingSurface) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if r.failOn != "" && op == r.failOn {
		return r.failErr
	}
	return nil
}

func (r *recordingSurface) Clear(ctx context.Context) error {
	if err := r.record("clear"); err != nil {
		return err
	}
	return r.ValueBuffer.Clear(ctx)
}

func (r *recordingSurface) Focus(ctx context.Context) error {
	if err := r.record("focus"); err != nil {
		return err
	}
	return r.ValueBuffer.Focus(ctx)
}

func (r *recordingSurface) InsertCharacter(ctx context.Context, ch rune) error {
	if err := r.record("insert(" + string(ch) + ")"); err != nil {
		return err
	}
	return r.ValueBuffer.InsertCharacter(ctx, ch)
}

func (r *recordingSurface) DeleteBackward(ctx context.Context) error {
	if err := r.record("delete"); err != nil {
		return err
	}
	return r.ValueBuffer.DeleteBackward(ctx)
}

func (r *recordingSurface) NotifyChanged(ctx context.Context) error {
	if err := r.record("notify"); err != nil {
		return err
	}
	return r.ValueBuffer.NotifyChanged(ctx)
}

// Ops returns the recorded calls without notifications.
func (r *recordingSurface) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, op := range r.ops {
		if op != "notify" {
			out = append(out, op)
		}
	}
	return out
}

// AllOps returns every recorded call.
func (r *recordingSurface) AllOps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

// fakeSleeper records requested durations without waiting. Cancellable
// sleeps (the inter-keystroke checkpoint) are counted and handed to hook,
// which may block until ctx is done.
type fakeSleeper struct {
	mu          sync.Mutex
	durations   []time.Duration
	checkpoints int
	hook        func(ctx context.Context, n int) error
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.durations = append(f.durations, d)
	cancellable := ctx.Done() != nil
	if cancellable {
		f.checkpoints++
	}
	n := f.checkpoints
	hook := f.hook
	f.mu.Unlock()

	if cancellable && hook != nil {
		return hook(ctx, n)
	}
	return ctx.Err()
}

func (f *fakeSleeper) Durations() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.durations...)
}

// constRand returns fixed values so every decision is predetermined.
type constRand struct {
	f float64
	i int
}

func (c constRand) Float64() float64 { return c.f }
func (c constRand) Intn(n int) int {
	if c.i >= n {
		return n - 1
	}
	return c.i
}

func fixedRange(ms int) stealth.Range {
	d := time.Duration(ms) * time.Millisecond
	return stealth.Range{Min: d, Max: d}
}

func testConfig(errorRate float64) Config {
	return Config{
		InterKeystroke: fixedRange(5),
		Hesitation:     fixedRange(10),
		Correction:     fixedRange(20),
		ErrorRate:      errorRate,
	}
}

func newTestEngine(cfg Config, sleeper stealth.Sleeper, opts ...Option) *Engine {
	opts = append([]Option{WithSleeper(sleeper)}, opts...)
	return New(cfg, logger.Nop(), opts...)
}

var errSurfaceGone = errors.New("surface detached")
