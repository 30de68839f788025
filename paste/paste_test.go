package paste

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"typing-simulator/config"
	"typing-simulator/logger"
	"typing-simulator/stealth"
	"typing-simulator/storage"
	"typing-simulator/surface"
	"typing-simulator/typing"
)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

type memStore struct {
	mu      sync.Mutex
	saved   []config.Settings
	saveErr error
	load    config.Update
	loadErr error
}

func (m *memStore) Load() (config.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load, m.loadErr
}

func (m *memStore) Save(s config.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return m.saveErr
}

func (m *memStore) Saved() []config.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]config.Settings(nil), m.saved...)
}

func newController(t *testing.T, store storage.SettingsStore) (*Controller, *typing.Engine) {
	t.Helper()
	engine := typing.New(typing.DefaultConfig(), logger.Nop(),
		typing.WithSleeper(noSleep{}), typing.WithRand(stealth.NewRand(7)))
	t.Cleanup(engine.Shutdown)
	return NewController(engine, store, config.Defaults(), config.DefaultHesitation(), logger.Nop()), engine
}

func resolveTo(s surface.Surface) Resolver {
	return func(context.Context) (surface.Surface, error) { return s, nil }
}

func TestHandlePaste_TypesIntoSurface(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, _ := newController(t, nil)
	buf := surface.NewValueBuffer("input-1")

	sess, err := c.HandlePaste(context.Background(), "Hello, world", resolveTo(buf))
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.NoError(t, sess.Wait())

	assert.Equal(t, typing.StateCompleted, sess.State())
	assert.Equal(t, "Hello, world", buf.Text())
}

func TestHandlePaste_NotIntercepted(t *testing.T) {
	c, _ := newController(t, nil)
	resolved := false
	resolver := func(context.Context) (surface.Surface, error) {
		resolved = true
		return surface.NewValueBuffer("x"), nil
	}

	t.Run("empty text", func(t *testing.T) {
		sess, err := c.HandlePaste(context.Background(), "", resolver)
		assert.NoError(t, err)
		assert.Nil(t, sess)
		assert.False(t, resolved)
	})

	t.Run("unsupported target", func(t *testing.T) {
		sess, err := c.HandlePaste(context.Background(), "abc", func(context.Context) (surface.Surface, error) {
			return surface.New("div", surface.Element{Tag: "DIV"})
		})
		assert.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("gate closed", func(t *testing.T) {
		c.SetEnabled(context.Background(), false)
		sess, err := c.HandlePaste(context.Background(), "abc", resolver)
		assert.NoError(t, err)
		assert.Nil(t, sess)
		assert.False(t, resolved)
	})
}

func TestHandlePaste_ResolverFailure(t *testing.T) {
	c, _ := newController(t, nil)
	boom := errors.New("element detached")

	sess, err := c.HandlePaste(context.Background(), "abc", func(context.Context) (surface.Surface, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, sess)
}

func TestUpdateSettings_AppliesAndPersists(t *testing.T) {
	store := &memStore{}
	c, engine := newController(t, store)

	rate := 0.3
	speed := config.DelayRange{Min: 0, Max: 90}
	c.UpdateSettings(context.Background(), config.Update{ErrorRate: &rate, TypingSpeed: &speed})

	snap := c.Snapshot()
	assert.Equal(t, 0.3, snap.ErrorRate)
	assert.Equal(t, config.DelayRange{Min: 1, Max: 90}, snap.TypingSpeed)
	assert.Equal(t, config.Defaults().CorrectionDelay, snap.CorrectionDelay)

	cfg := engine.Config()
	assert.Equal(t, 0.3, cfg.ErrorRate)
	assert.Equal(t, time.Millisecond, cfg.InterKeystroke.Min)
	assert.Equal(t, 90*time.Millisecond, cfg.InterKeystroke.Max)
	assert.Equal(t, 100*time.Millisecond, cfg.Hesitation.Min, "hesitation stays fixed")

	saved := store.Saved()
	require.Len(t, saved, 1)
	assert.Equal(t, snap, saved[0])
}

func TestUpdateSettings_StoreFailureIsNotFatal(t *testing.T) {
	store := &memStore{saveErr: storage.ErrConfigUnavailable}
	c, _ := newController(t, store)

	rate := 0.5
	c.UpdateSettings(context.Background(), config.Update{ErrorRate: &rate})

	assert.Equal(t, 0.5, c.Snapshot().ErrorRate)
	assert.Len(t, store.Saved(), saveRetries+1)
}

func TestSetEnabled_NotifiesOnChange(t *testing.T) {
	store := &memStore{}
	c, _ := newController(t, store)

	var gates []bool
	c.OnGateChange(func(enabled bool) { gates = append(gates, enabled) })

	c.SetEnabled(context.Background(), true)
	c.SetEnabled(context.Background(), false)
	c.SetEnabled(context.Background(), false)

	assert.Equal(t, []bool{false}, gates)
	assert.False(t, c.Enabled())
	assert.Len(t, store.Saved(), 3)
}

func TestReload_DoesNotWriteBack(t *testing.T) {
	store := &memStore{}
	c, engine := newController(t, store)

	var gates []bool
	c.OnGateChange(func(enabled bool) { gates = append(gates, enabled) })

	off := false
	rate := 0.0
	c.Reload(config.Update{Enabled: &off, ErrorRate: &rate})

	assert.False(t, c.Enabled())
	assert.Equal(t, 0.0, engine.Config().ErrorRate, "an explicit zero rate is honoured")
	assert.Equal(t, []bool{false}, gates)
	assert.Empty(t, store.Saved())
}

func TestLoadSettings(t *testing.T) {
	base := config.Defaults()

	t.Run("absent", func(t *testing.T) {
		got := LoadSettings(&memStore{loadErr: storage.ErrNotFound}, base, logger.Nop())
		assert.Equal(t, base, got)
	})

	t.Run("unavailable", func(t *testing.T) {
		got := LoadSettings(&memStore{loadErr: storage.ErrConfigUnavailable}, base, logger.Nop())
		assert.Equal(t, base, got)
	})

	t.Run("partial", func(t *testing.T) {
		rate := 2.0
		got := LoadSettings(&memStore{load: config.Update{ErrorRate: &rate}}, base, logger.Nop())
		assert.Equal(t, 1.0, got.ErrorRate)
		assert.Equal(t, base.TypingSpeed, got.TypingSpeed)
		assert.True(t, got.Enabled)
	})
}
