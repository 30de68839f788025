package surface

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
)

const (
	describeJS = `function() {
		return {
			tag: this.tagName || '',
			type: String(this.type || ''),
			contentEditable: String(this.contentEditable || ''),
			isContentEditable: !!this.isContentEditable,
		}
	}`

	notifyJS = `function() {
		for (const type of ['input', 'keyup', 'change']) {
			this.dispatchEvent(new Event(type, { bubbles: true, cancelable: true }))
		}
	}`

	valueClearJS  = `function() { this.value = '' }`
	valueInsertJS = `function(ch) { this.value += ch }`
	valueDeleteJS = `function() {
		const chars = Array.from(this.value)
		chars.pop()
		this.value = chars.join('')
	}`

	regionClearJS  = `function() { this.textContent = '' }`
	regionInsertJS = `function(ch) {
		const selection = window.getSelection()
		if (selection.rangeCount === 0) return
		const range = selection.getRangeAt(0)
		range.deleteContents()
		range.insertNode(document.createTextNode(ch))
		range.collapse(false)
		selection.removeAllRanges()
		selection.addRange(range)
	}`
	regionDeleteJS = `function() {
		const selection = window.getSelection()
		if (selection.rangeCount === 0) return
		const range = selection.getRangeAt(0)
		if (range.startOffset > 0) {
			range.setStart(range.startContainer, range.startOffset - 1)
			range.deleteContents()
		}
	}`
)

// Describe reads the eligibility attributes of a live page element
func Describe(ctx context.Context, el *rod.Element) (Element, error) {
	res, err := el.Context(ctx).Eval(describeJS)
	if err != nil {
		return Element{}, fmt.Errorf("describe element: %w", err)
	}
	return Element{
		Tag:               res.Value.Get("tag").Str(),
		Type:              res.Value.Get("type").Str(),
		ContentEditable:   res.Value.Get("contentEditable").Str(),
		IsContentEditable: res.Value.Get("isContentEditable").Bool(),
	}, nil
}

// NewRod wraps a page element, picking the variant from its attributes.
// Ineligible elements yield ErrUnsupportedSurface.
func NewRod(ctx context.Context, id string, el *rod.Element) (Surface, error) {
	desc, err := Describe(ctx, el)
	if err != nil {
		return nil, err
	}
	kind, err := Classify(desc)
	if err != nil {
		return nil, fmt.Errorf("%s element: %w", desc.Tag, err)
	}

	s := &rodSurface{id: id, el: el, kind: kind}
	if kind == KindRangeEditable {
		s.clearJS, s.insertJS, s.deleteJS = regionClearJS, regionInsertJS, regionDeleteJS
	} else {
		s.clearJS, s.insertJS, s.deleteJS = valueClearJS, valueInsertJS, valueDeleteJS
	}
	return s, nil
}

// rodSurface drives a DOM element through the DevTools protocol
type rodSurface struct {
	id   string
	el   *rod.Element
	kind Kind

	clearJS  string
	insertJS string
	deleteJS string
}

func (s *rodSurface) ID() string { return s.id }
func (s *rodSurface) Kind() Kind { return s.kind }

func (s *rodSurface) Clear(ctx context.Context) error {
	return s.eval(ctx, "clear", s.clearJS)
}

func (s *rodSurface) Focus(ctx context.Context) error {
	if err := s.el.Context(ctx).Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", s.id, err)
	}
	return nil
}

func (s *rodSurface) InsertCharacter(ctx context.Context, ch rune) error {
	return s.eval(ctx, "insert", s.insertJS, string(ch))
}

func (s *rodSurface) DeleteBackward(ctx context.Context) error {
	return s.eval(ctx, "delete", s.deleteJS)
}

func (s *rodSurface) NotifyChanged(ctx context.Context) error {
	return s.eval(ctx, "notify", notifyJS)
}

func (s *rodSurface) eval(ctx context.Context, op, js string, args ...interface{}) error {
	if _, err := s.el.Context(ctx).Eval(js, args...); err != nil {
		return fmt.Errorf("%s on %s: %w", op, s.id, err)
	}
	return nil
}
