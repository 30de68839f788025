package typing

import (
	"math"
	"time"

	"typing-simulator/config"
	"typing-simulator/stealth"
)

// correctionPauseProbability is the chance of an extra pause after a
// corrected typo.
const correctionPauseProbability = 0.3

// Config is the immutable parameter set a run samples from
type Config struct {
	InterKeystroke stealth.Range
	Hesitation     stealth.Range
	Correction     stealth.Range
	ErrorRate      float64
}

// DefaultConfig mirrors config.Defaults
func DefaultConfig() Config {
	return FromSettings(config.Defaults(), config.DefaultHesitation())
}

// FromSettings builds an engine config from the user settings and the
// hesitation range.
func FromSettings(s config.Settings, hesitation config.DelayRange) Config {
	return Config{
		InterKeystroke: s.TypingSpeed.Range(),
		Hesitation:     hesitation.Range(),
		Correction:     s.CorrectionDelay.Range(),
		ErrorRate:      s.ErrorRate,
	}.normalize()
}

func (c Config) normalize() Config {
	floor := config.MinDelayMs * time.Millisecond
	ceil := config.MaxDelayMs * time.Millisecond
	c.InterKeystroke = c.InterKeystroke.Clamp(floor, ceil)
	c.Hesitation = c.Hesitation.Clamp(floor, ceil)
	c.Correction = c.Correction.Clamp(floor, ceil)
	switch {
	case math.IsNaN(c.ErrorRate):
		c.ErrorRate = config.DefaultErrorRate
	case c.ErrorRate < 0:
		c.ErrorRate = 0
	case c.ErrorRate > 1:
		c.ErrorRate = 1
	}
	return c
}
