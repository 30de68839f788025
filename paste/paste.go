// Package paste decides what happens to a paste: it holds the enable gate and
// the effective typing settings, resolves the target surface and hands the
// clipboard text to the typing engine.
package paste

import (
	"context"
	"errors"
	"sync"
	"time"

	"typing-simulator/config"
	"typing-simulator/logger"
	"typing-simulator/storage"
	"typing-simulator/surface"
	"typing-simulator/typing"
	"typing-simulator/utils"
)

// Persistence retry policy. Saving is best-effort and never blocks typing
// for long.
const (
	saveRetries        = 3
	saveInitialBackoff = 50 * time.Millisecond
	saveMaxBackoff     = 500 * time.Millisecond
)

// Resolver builds the surface a paste targets. It returns
// surface.ErrUnsupportedSurface when the target is not eligible.
type Resolver func(ctx context.Context) (surface.Surface, error)

// Controller owns the gate and the settings snapshot
type Controller struct {
	engine     *typing.Engine
	store      storage.SettingsStore
	log        logger.Logger
	hesitation config.DelayRange

	mu       sync.RWMutex
	settings config.Settings
	onGate   []func(bool)
}

// NewController creates a controller starting from settings and pushes them
// into the engine. store may be nil, in which case nothing is persisted.
func NewController(engine *typing.Engine, store storage.SettingsStore, settings config.Settings, hesitation config.DelayRange, log logger.Logger) *Controller {
	c := &Controller{
		engine:     engine,
		store:      store,
		log:        log,
		hesitation: hesitation,
		settings:   settings.Normalize(),
	}
	engine.UpdateConfig(typing.FromSettings(c.settings, hesitation))
	return c
}

// LoadSettings reads the stored record on top of base. An absent or unreadable
// store yields base unchanged.
func LoadSettings(store storage.SettingsStore, base config.Settings, log logger.Logger) config.Settings {
	u, err := store.Load()
	switch {
	case err == nil:
		return base.Apply(u)
	case errors.Is(err, storage.ErrNotFound):
		log.Info("No stored settings, using defaults")
	default:
		log.Warn("Stored settings unavailable, using defaults", "error", err)
	}
	return base.Normalize()
}

// OnGateChange registers fn to be called whenever the gate flips
func (c *Controller) OnGateChange(fn func(enabled bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onGate = append(c.onGate, fn)
}

// Enabled reads the gate
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.Enabled
}

// Snapshot returns the effective settings
func (c *Controller) Snapshot() config.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// HandlePaste simulates typing text into the surface resolve returns. A nil
// session means the paste was not taken over and native paste behaviour
// should proceed.
func (c *Controller) HandlePaste(ctx context.Context, text string, resolve Resolver) (*typing.Session, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if text == "" {
		c.log.Debug("Ignoring empty paste")
		return nil, nil
	}

	surf, err := resolve(ctx)
	if err != nil {
		if errors.Is(err, surface.ErrUnsupportedSurface) {
			c.log.Debug("Paste target not eligible", "error", err)
			return nil, nil
		}
		return nil, err
	}

	c.log.Info("Simulating paste", "surface", surf.ID(), "kind", surf.Kind().String(), "chars", len([]rune(text)))
	return c.engine.Start(ctx, surf, text)
}

// SetEnabled flips the gate and persists it
func (c *Controller) SetEnabled(ctx context.Context, enabled bool) {
	c.mu.Lock()
	changed := c.settings.Enabled != enabled
	c.settings.Enabled = enabled
	snapshot := c.settings
	hooks := append([]func(bool){}, c.onGate...)
	c.mu.Unlock()

	if changed {
		for _, fn := range hooks {
			fn(enabled)
		}
	}
	c.persist(ctx, snapshot)
}

// UpdateSettings applies a partial update. Running sessions pick the new
// values up at their next sample.
func (c *Controller) UpdateSettings(ctx context.Context, u config.Update) {
	snapshot := c.apply(u)
	c.persist(ctx, snapshot)
}

// Reload applies a record that changed in the store without writing it back
func (c *Controller) Reload(u config.Update) {
	c.apply(u)
}

func (c *Controller) apply(u config.Update) config.Settings {
	c.mu.Lock()
	before := c.settings.Enabled
	c.settings = c.settings.Apply(u)
	snapshot := c.settings
	hooks := append([]func(bool){}, c.onGate...)
	c.mu.Unlock()

	c.engine.UpdateConfig(typing.FromSettings(snapshot, c.hesitation))
	if snapshot.Enabled != before {
		for _, fn := range hooks {
			fn(snapshot.Enabled)
		}
	}
	c.log.Info("Settings applied",
		"enabled", snapshot.Enabled,
		"speed_min", snapshot.TypingSpeed.Min, "speed_max", snapshot.TypingSpeed.Max,
		"error_rate", snapshot.ErrorRate)
	return snapshot
}

func (c *Controller) persist(ctx context.Context, s config.Settings) {
	if c.store == nil {
		return
	}
	err := utils.RetryWithBackoff(ctx, func() error {
		return c.store.Save(s)
	}, saveRetries, saveInitialBackoff, saveMaxBackoff)
	if err != nil {
		c.log.Warn("Could not persist settings", "error", err)
	}
}
