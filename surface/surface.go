// Package surface abstracts the places simulated keystrokes land in.
//
// A Surface is either a value buffer (input/textarea style controls whose
// content is one flat string with the caret at the end) or a range-editable
// region (contenteditable style content addressed through a selection).
package surface

import (
	"context"
	"errors"
	"strings"
)

// ErrUnsupportedSurface is returned for elements that are neither an
// allow-listed text control nor editable content.
var ErrUnsupportedSurface = errors.New("unsupported surface")

// Surface is an editable text destination.
//
// InsertCharacter and DeleteBackward must each be followed by NotifyChanged
// so observers see the mutation as if a real keystroke happened.
type Surface interface {
	// ID identifies the underlying element; sessions are exclusive per ID.
	ID() string
	Kind() Kind
	// Clear removes all content. Calling it twice is harmless.
	Clear(ctx context.Context) error
	Focus(ctx context.Context) error
	InsertCharacter(ctx context.Context, ch rune) error
	// DeleteBackward removes one scalar before the insertion point, no-op at 0.
	DeleteBackward(ctx context.Context) error
	NotifyChanged(ctx context.Context) error
}

// Kind tells the two surface variants apart
type Kind int

const (
	KindUnsupported Kind = iota
	KindValueBuffer
	KindRangeEditable
)

func (k Kind) String() string {
	switch k {
	case KindValueBuffer:
		return "value-buffer"
	case KindRangeEditable:
		return "range-editable"
	default:
		return "unsupported"
	}
}

// Element describes a candidate paste target
type Element struct {
	Tag  string `json:"tag"`
	Type string `json:"type"`
	// ContentEditable is the raw contenteditable attribute value
	ContentEditable string `json:"contentEditable"`
	// IsContentEditable reports editability including inheritance
	IsContentEditable bool `json:"isContentEditable"`
}

var editableInputTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"password": true,
	"search":   true,
	"tel":      true,
	"url":      true,
}

// Classify applies the eligibility predicates
func Classify(el Element) (Kind, error) {
	tag := strings.ToUpper(el.Tag)
	switch tag {
	case "TEXTAREA":
		return KindValueBuffer, nil
	case "INPUT":
		if editableInputTypes[strings.ToLower(el.Type)] {
			return KindValueBuffer, nil
		}
		return KindUnsupported, ErrUnsupportedSurface
	}

	if el.ContentEditable == "true" || el.IsContentEditable {
		return KindRangeEditable, nil
	}
	return KindUnsupported, ErrUnsupportedSurface
}
