package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"typing-simulator/paste"
	"typing-simulator/surface"
)

const (
	pasteBinding = "__typingSimPaste"
	surfaceAttr  = "data-typing-sim-id"
	gateVar      = "__typingSimEnabled"
)

// pasteHookJS mirrors surface.Classify so that only pastes Go will take over
// lose their default behaviour.
var pasteHookJS = `(() => {
	if (window.__typingSimHooked) return
	window.__typingSimHooked = true
	if (window.` + gateVar + ` === undefined) window.` + gateVar + ` = true

	const valueTypes = ['text', 'email', 'password', 'search', 'tel', 'url']
	const eligible = (el) => {
		if (!el || !el.tagName) return false
		if (el.tagName === 'TEXTAREA') return true
		if (el.tagName === 'INPUT') return valueTypes.includes(el.type)
		return el.contentEditable === 'true' || !!el.isContentEditable
	}

	document.addEventListener('paste', (event) => {
		if (!window.` + gateVar + `) return
		const target = event.target
		if (!eligible(target)) return
		const text = (event.clipboardData || window.clipboardData).getData('text')
		if (!text) return

		event.preventDefault()
		let id = target.getAttribute('` + surfaceAttr + `')
		if (!id) {
			id = Date.now().toString(36) + Math.random().toString(36).slice(2)
			target.setAttribute('` + surfaceAttr + `', id)
		}
		window.` + pasteBinding + `({ id, text })
	}, true)
})()`

var surfaceIDPattern = regexp.MustCompile(`^[a-z0-9]{1,64}$`)

// InstallPasteHook routes paste events on the page to ctrl. Sessions it
// starts live as long as ctx. The returned func removes the binding.
func (b *Browser) InstallPasteHook(ctx context.Context, ctrl *paste.Controller) (func() error, error) {
	stop, err := b.Page.Expose(pasteBinding, func(payload gson.JSON) (interface{}, error) {
		return b.onPaste(ctx, ctrl, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("expose paste binding: %w", err)
	}

	if _, err := b.Page.EvalOnNewDocument(pasteHookJS); err != nil {
		stop()
		return nil, fmt.Errorf("install paste hook: %w", err)
	}
	// The current document predates EvalOnNewDocument
	if _, err := b.Page.Context(ctx).Eval(`() => ` + pasteHookJS); err != nil {
		b.Log.Warn("Could not hook the current document", "error", err)
	}

	if err := b.SetGate(ctx, ctrl.Enabled()); err != nil {
		b.Log.Warn("Could not mirror the paste gate", "error", err)
	}
	ctrl.OnGateChange(func(enabled bool) {
		if err := b.SetGate(ctx, enabled); err != nil {
			b.Log.Warn("Could not mirror the paste gate", "enabled", enabled, "error", err)
		}
	})

	b.Log.Info("Paste hook installed", "binding", pasteBinding)
	return stop, nil
}

func (b *Browser) onPaste(ctx context.Context, ctrl *paste.Controller, payload gson.JSON) (interface{}, error) {
	id := payload.Get("id").Str()
	text := payload.Get("text").Str()
	if !surfaceIDPattern.MatchString(id) {
		return nil, fmt.Errorf("invalid surface id %q", id)
	}

	sess, err := ctrl.HandlePaste(ctx, text, func(ctx context.Context) (surface.Surface, error) {
		el, err := b.findSurface(ctx, id)
		if err != nil {
			return nil, err
		}
		return b.SurfaceFor(ctx, id, el)
	})
	if err != nil {
		b.Log.Error("Paste simulation failed to start", "surface", id, "error", err)
		return map[string]interface{}{"accepted": false}, nil
	}
	if sess == nil {
		return map[string]interface{}{"accepted": false}, nil
	}
	return map[string]interface{}{"accepted": true, "session": sess.ID()}, nil
}

func (b *Browser) findSurface(ctx context.Context, id string) (*rod.Element, error) {
	els, err := b.Page.Context(ctx).Elements(`[` + surfaceAttr + `="` + id + `"]`)
	if err != nil {
		return nil, err
	}
	if els.Empty() {
		return nil, errors.New("paste target left the document")
	}
	return els.First(), nil
}

// SetGate mirrors the enable gate into the current and future documents
func (b *Browser) SetGate(ctx context.Context, enabled bool) error {
	b.gateMu.Lock()
	defer b.gateMu.Unlock()

	if b.removeGate != nil {
		if err := b.removeGate(); err != nil {
			b.Log.Debug("Removing previous gate script failed", "error", err)
		}
		b.removeGate = nil
	}

	js := `window.` + gateVar + ` = ` + strconv.FormatBool(enabled)
	remove, err := b.Page.EvalOnNewDocument(js)
	if err != nil {
		return fmt.Errorf("install gate script: %w", err)
	}
	b.removeGate = remove

	if _, err := b.Page.Context(ctx).Eval(`() => { ` + js + ` }`); err != nil {
		return fmt.Errorf("set gate: %w", err)
	}
	return nil
}
