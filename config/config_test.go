package config

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.True(t, s.Enabled)
	assert.Equal(t, DelayRange{Min: 50, Max: 150}, s.TypingSpeed)
	assert.Equal(t, 0.05, s.ErrorRate)
	assert.Equal(t, DelayRange{Min: 200, Max: 800}, s.CorrectionDelay)
	assert.Equal(t, DelayRange{Min: 100, Max: 300}, DefaultHesitation())
}

func TestNormalize_ClampsOutOfRange(t *testing.T) {
	s := Settings{
		TypingSpeed:     DelayRange{Min: -5, Max: 3000},
		ErrorRate:       1.7,
		CorrectionDelay: DelayRange{Min: 900, Max: 100},
	}.Normalize()

	assert.Equal(t, DelayRange{Min: 1, Max: 3000}, s.TypingSpeed)
	assert.Equal(t, 1.0, s.ErrorRate)
	assert.Equal(t, DelayRange{Min: 900, Max: 900}, s.CorrectionDelay)

	s = Settings{ErrorRate: -0.2, TypingSpeed: DelayRange{Max: 999999}}.Normalize()
	assert.Equal(t, 0.0, s.ErrorRate)
	assert.Equal(t, DelayRange{Min: 1, Max: MaxDelayMs}, s.TypingSpeed)
	assert.Equal(t, DelayRange{Min: 1, Max: 1}, s.CorrectionDelay)

	s = Settings{
		TypingSpeed:     DelayRange{Min: 10, Max: math.MaxInt},
		CorrectionDelay: DelayRange{Min: math.MinInt, Max: math.MinInt},
	}.Normalize()
	assert.Equal(t, DelayRange{Min: 10, Max: MaxDelayMs}, s.TypingSpeed, "huge values clamp to the ceiling")
	assert.Equal(t, DelayRange{Min: 1, Max: 1}, s.CorrectionDelay)

	var u Update
	require.NoError(t, json.Unmarshal([]byte(`{"typingSpeed":{"min":10,"max":9223372036854775807}}`), &u))
	assert.Equal(t, DelayRange{Min: 10, Max: MaxDelayMs}, Defaults().Apply(u).TypingSpeed)

	s = Settings{ErrorRate: math.NaN()}.Normalize()
	assert.Equal(t, DefaultErrorRate, s.ErrorRate)
}

func TestDelayRange_Range(t *testing.T) {
	r := DelayRange{Min: 10, Max: 20}.Range()
	assert.Equal(t, 10*time.Millisecond, r.Min)
	assert.Equal(t, 20*time.Millisecond, r.Max)

	r = DelayRange{Min: 10, Max: math.MaxInt}.Range()
	assert.Equal(t, MaxDelayMs*time.Millisecond, r.Max)
}

func TestApply_PartialUpdate(t *testing.T) {
	var u Update
	require.NoError(t, json.Unmarshal([]byte(`{"errorRate":0,"typingSpeed":{"min":30,"max":60}}`), &u))
	assert.False(t, u.IsEmpty())

	s := Defaults().Apply(u)
	assert.Equal(t, 0.0, s.ErrorRate, "an explicit zero is honoured")
	assert.Equal(t, DelayRange{Min: 30, Max: 60}, s.TypingSpeed)
	assert.Equal(t, DelayRange{Min: 200, Max: 800}, s.CorrectionDelay)
	assert.True(t, s.Enabled)

	assert.True(t, Update{}.IsEmpty())
	assert.Equal(t, Defaults(), Defaults().Apply(Update{}))
}

func TestAsUpdate_RoundTrip(t *testing.T) {
	s := Settings{Enabled: false, TypingSpeed: DelayRange{Min: 5, Max: 9}, ErrorRate: 0.3, CorrectionDelay: DelayRange{Min: 70, Max: 80}}
	assert.Equal(t, s, Defaults().Apply(s.AsUpdate()))
}

func TestSettingsJSONShape(t *testing.T) {
	data, err := json.Marshal(Defaults())
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"typingSpeed":{"min":50,"max":150},"errorRate":0.05,"correctionDelay":{"min":200,"max":800}}`, string(data))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "typing-settings.json", cfg.SettingsPath)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, InputDOM, cfg.Input)
	assert.Equal(t, Defaults(), cfg.Typing.Settings)
	assert.Equal(t, DefaultHesitation(), cfg.Typing.HesitationDelay)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
headless: true
start_url: https://example.com/form
socket_path: /tmp/sim.sock
log:
  format: json
typing:
  error_rate: 0.2
  typing_speed:
    min: -5
    max: 3000
  hesitation_delay:
    min: 40
    max: 20
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("TYPING_SIM_PROXY", "http://proxy:8080")
	t.Setenv("TYPING_SIM_SEED", "99")
	t.Setenv("TYPING_SIM_HEADLESS", "0")
	t.Setenv("TYPING_SIM_INPUT", "keyboard")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Headless, "env wins over the file")
	assert.Equal(t, "https://example.com/form", cfg.StartURL)
	assert.Equal(t, "/tmp/sim.sock", cfg.SocketPath)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://proxy:8080", cfg.ProxyURL)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, InputKeyboard, cfg.Input)
	assert.Equal(t, 0.2, cfg.Typing.ErrorRate)
	assert.Equal(t, DelayRange{Min: 1, Max: 3000}, cfg.Typing.TypingSpeed)
	assert.Equal(t, DelayRange{Min: 200, Max: 800}, cfg.Typing.CorrectionDelay)
	assert.Equal(t, DelayRange{Min: 40, Max: 40}, cfg.Typing.HesitationDelay)
	assert.True(t, cfg.Typing.Enabled)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: xml\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("input: telepathy\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("headless: [\n"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
