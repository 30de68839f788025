package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"typing-simulator/config"
	"typing-simulator/surface"
)

// SurfaceFor wraps a page element according to the configured input mode.
// Ineligible elements yield surface.ErrUnsupportedSurface.
func (b *Browser) SurfaceFor(ctx context.Context, id string, el *rod.Element) (surface.Surface, error) {
	dom, err := surface.NewRod(ctx, id, el)
	if err != nil {
		return nil, err
	}
	if b.Cfg.Input != config.InputKeyboard {
		return dom, nil
	}
	return &keyboardSurface{Surface: dom, b: b, el: el}, nil
}

// keyboardSurface types through trusted browser input instead of editing
// the element. Clearing still goes through the DOM.
type keyboardSurface struct {
	surface.Surface
	b  *Browser
	el *rod.Element
}

// Focus clicks into the element like a user would, falling back to a plain
// focus when the element cannot be clicked.
func (k *keyboardSurface) Focus(ctx context.Context) error {
	if err := k.b.ClickElement(ctx, k.el); err != nil {
		k.b.Log.Debug("Click to focus failed, focusing directly", "surface", k.ID(), "error", err)
		return k.Surface.Focus(ctx)
	}
	return nil
}

func (k *keyboardSurface) InsertCharacter(ctx context.Context, ch rune) error {
	if err := k.b.Page.Context(ctx).InsertText(string(ch)); err != nil {
		return fmt.Errorf("insert on %s: %w", k.ID(), err)
	}
	return nil
}

func (k *keyboardSurface) DeleteBackward(ctx context.Context) error {
	if err := k.b.Page.Keyboard.Type(input.Backspace); err != nil {
		return fmt.Errorf("backspace on %s: %w", k.ID(), err)
	}
	return nil
}

// NotifyChanged is a no-op: trusted input already raised the events.
func (k *keyboardSurface) NotifyChanged(ctx context.Context) error { return nil }
