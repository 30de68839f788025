package config

import (
	"math"
	"time"

	"typing-simulator/stealth"
)

// Bounds applied to every delay range, in milliseconds
const (
	MinDelayMs = 1
	MaxDelayMs = 60000
)

// DefaultErrorRate is the share of characters mistyped before correction
const DefaultErrorRate = 0.05

// DelayRange is a millisecond interval as exchanged with the settings UI
type DelayRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Range converts to a stealth.Range, clamped to the valid delay bounds
func (r DelayRange) Range() stealth.Range {
	r = r.normalize()
	return stealth.Range{
		Min: time.Duration(r.Min) * time.Millisecond,
		Max: time.Duration(r.Max) * time.Millisecond,
	}
}

// normalize clamps in milliseconds so huge values cannot overflow a Duration
func (r DelayRange) normalize() DelayRange {
	r.Min = min(max(r.Min, MinDelayMs), MaxDelayMs)
	r.Max = min(r.Max, MaxDelayMs)
	if r.Max < r.Min {
		r.Max = r.Min
	}
	return r
}

func rangeFrom(r stealth.Range) DelayRange {
	return DelayRange{Min: int(r.Min / time.Millisecond), Max: int(r.Max / time.Millisecond)}
}

// Settings is the user-facing typing configuration snapshot
type Settings struct {
	Enabled         bool       `json:"enabled" yaml:"enabled"`
	TypingSpeed     DelayRange `json:"typingSpeed" yaml:"typing_speed"`
	ErrorRate       float64    `json:"errorRate" yaml:"error_rate"`
	CorrectionDelay DelayRange `json:"correctionDelay" yaml:"correction_delay"`
}

// Defaults returns the settings used when nothing is stored
func Defaults() Settings {
	return Settings{
		Enabled:         true,
		TypingSpeed:     rangeFrom(stealth.DefaultRange(stealth.ActionTypeKeystroke)),
		ErrorRate:       DefaultErrorRate,
		CorrectionDelay: rangeFrom(stealth.DefaultRange(stealth.ActionTypeCorrect)),
	}
}

// DefaultHesitation is the pause between a typo and its backspace. It is
// not part of the stored settings.
func DefaultHesitation() DelayRange {
	return rangeFrom(stealth.DefaultRange(stealth.ActionTypeHesitate))
}

// Normalize clamps out-of-range values to the nearest valid bound
func (s Settings) Normalize() Settings {
	s.TypingSpeed = s.TypingSpeed.normalize()
	s.CorrectionDelay = s.CorrectionDelay.normalize()
	switch {
	case math.IsNaN(s.ErrorRate):
		s.ErrorRate = DefaultErrorRate
	case s.ErrorRate < 0:
		s.ErrorRate = 0
	case s.ErrorRate > 1:
		s.ErrorRate = 1
	}
	return s
}

// Update is a partial settings record. Nil fields are left untouched.
// Stored records are decoded into an Update as well, so missing keys fall
// back to defaults one by one.
type Update struct {
	Enabled         *bool       `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	TypingSpeed     *DelayRange `json:"typingSpeed,omitempty" yaml:"typing_speed,omitempty"`
	ErrorRate       *float64    `json:"errorRate,omitempty" yaml:"error_rate,omitempty"`
	CorrectionDelay *DelayRange `json:"correctionDelay,omitempty" yaml:"correction_delay,omitempty"`
}

// IsEmpty reports whether the update carries no field at all
func (u Update) IsEmpty() bool {
	return u.Enabled == nil && u.TypingSpeed == nil && u.ErrorRate == nil && u.CorrectionDelay == nil
}

// Apply overlays u on s and returns the normalized result
func (s Settings) Apply(u Update) Settings {
	if u.Enabled != nil {
		s.Enabled = *u.Enabled
	}
	if u.TypingSpeed != nil {
		s.TypingSpeed = *u.TypingSpeed
	}
	if u.ErrorRate != nil {
		s.ErrorRate = *u.ErrorRate
	}
	if u.CorrectionDelay != nil {
		s.CorrectionDelay = *u.CorrectionDelay
	}
	return s.Normalize()
}

// AsUpdate returns a full update carrying every field of s
func (s Settings) AsUpdate() Update {
	enabled, rate := s.Enabled, s.ErrorRate
	speed, correction := s.TypingSpeed, s.CorrectionDelay
	return Update{Enabled: &enabled, TypingSpeed: &speed, ErrorRate: &rate, CorrectionDelay: &correction}
}
