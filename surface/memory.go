package surface

import (
	"context"
	"strings"
	"sync"
)

// ChangeFunc observes the content after every notified mutation
type ChangeFunc func(text string)

// Option configures in-memory surfaces
type Option func(*observers)

type observers struct {
	onChange []ChangeFunc
	onFocus  []func()
}

// OnChange registers a content-changed listener
func OnChange(fn ChangeFunc) Option {
	return func(o *observers) { o.onChange = append(o.onChange, fn) }
}

// OnFocus registers a focus listener
func OnFocus(fn func()) Option {
	return func(o *observers) { o.onFocus = append(o.onFocus, fn) }
}

// New builds the in-memory surface matching el, or ErrUnsupportedSurface
func New(id string, el Element, opts ...Option) (Surface, error) {
	kind, err := Classify(el)
	if err != nil {
		return nil, err
	}
	if kind == KindRangeEditable {
		return NewRegion(id, opts...), nil
	}
	return NewValueBuffer(id, opts...), nil
}

// ValueBuffer is a text control whose content is a single string with the
// caret pinned at the end.
type ValueBuffer struct {
	id string
	obs observers

	mu      sync.Mutex
	value   []rune
	focused bool
	changes int
}

// NewValueBuffer creates an empty value buffer
func NewValueBuffer(id string, opts ...Option) *ValueBuffer {
	b := &ValueBuffer{id: id}
	for _, opt := range opts {
		opt(&b.obs)
	}
	return b
}

func (b *ValueBuffer) ID() string { return b.id }
func (b *ValueBuffer) Kind() Kind { return KindValueBuffer }

func (b *ValueBuffer) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = b.value[:0]
	return nil
}

func (b *ValueBuffer) Focus(ctx context.Context) error {
	b.mu.Lock()
	b.focused = true
	b.mu.Unlock()
	for _, fn := range b.obs.onFocus {
		fn()
	}
	return nil
}

func (b *ValueBuffer) InsertCharacter(ctx context.Context, ch rune) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = append(b.value, ch)
	return nil
}

func (b *ValueBuffer) DeleteBackward(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.value) > 0 {
		b.value = b.value[:len(b.value)-1]
	}
	return nil
}

func (b *ValueBuffer) NotifyChanged(ctx context.Context) error {
	b.mu.Lock()
	b.changes++
	text := string(b.value)
	b.mu.Unlock()
	for _, fn := range b.obs.onChange {
		fn(text)
	}
	return nil
}

// Text returns the current value
func (b *ValueBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.value)
}

// Focused reports whether Focus was called
func (b *ValueBuffer) Focused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.focused
}

// Changes counts NotifyChanged calls
func (b *ValueBuffer) Changes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changes
}

// Region models a contenteditable element. Every inserted character becomes
// its own text node; the selection is expressed in child offsets of the
// region, the way a DOM range sits after insertNode + collapse(false).
type Region struct {
	id  string
	obs observers

	mu      sync.Mutex
	nodes   []string
	start   int
	end     int
	focused bool
	changes int
}

// NewRegion creates an empty editable region with a collapsed selection
func NewRegion(id string, opts ...Option) *Region {
	r := &Region{id: id}
	for _, opt := range opts {
		opt(&r.obs)
	}
	return r
}

func (r *Region) ID() string { return r.id }
func (r *Region) Kind() Kind { return KindRangeEditable }

func (r *Region) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = nil
	r.start, r.end = 0, 0
	return nil
}

func (r *Region) Focus(ctx context.Context) error {
	r.mu.Lock()
	r.focused = true
	r.mu.Unlock()
	for _, fn := range r.obs.onFocus {
		fn()
	}
	return nil
}

// InsertCharacter replaces the selection with a new text node and collapses
// the selection right after it.
func (r *Region) InsertCharacter(ctx context.Context, ch rune) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteSelection()
	r.nodes = append(r.nodes, "")
	copy(r.nodes[r.start+1:], r.nodes[r.start:])
	r.nodes[r.start] = string(ch)
	r.start++
	r.end = r.start
	return nil
}

// DeleteBackward extends the selection one node back and deletes it
func (r *Region) DeleteBackward(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start > 0 {
		r.start--
		r.deleteSelection()
	}
	return nil
}

func (r *Region) deleteSelection() {
	if r.end > r.start {
		r.nodes = append(r.nodes[:r.start], r.nodes[r.end:]...)
	}
	r.end = r.start
}

// Select sets the selection in child offsets, clamped to the content
func (r *Region) Select(start, end int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > len(r.nodes) {
			return len(r.nodes)
		}
		return v
	}
	r.start, r.end = clamp(start), clamp(end)
	if r.end < r.start {
		r.start, r.end = r.end, r.start
	}
}

func (r *Region) NotifyChanged(ctx context.Context) error {
	r.mu.Lock()
	r.changes++
	text := strings.Join(r.nodes, "")
	r.mu.Unlock()
	for _, fn := range r.obs.onChange {
		fn(text)
	}
	return nil
}

// Text returns the concatenated text content
func (r *Region) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.nodes, "")
}

// Focused reports whether Focus was called
func (r *Region) Focused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

// Changes counts NotifyChanged calls
func (r *Region) Changes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes
}
