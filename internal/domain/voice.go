package domain

import "fmt"

// Voice is one entry of an engine's voice directory.
type Voice struct {
	LanguageTag string // BCP-47, e.g. "zh-CN"
	DisplayName string // human readable, e.g. "Microsoft Kangkang - Chinese (Simplified, PRC)"
	Handle      string // engine specific identifier, opaque to callers
}

// String returns the display name with its language tag.
func (v Voice) String() string {
	return fmt.Sprintf("%s [%s]", v.DisplayName, v.LanguageTag)
}

// Default prosody values.
const (
	DefaultPitch = 1.0
	DefaultRate  = 0.8
)

// Prosody holds the pitch and rate applied to an utterance. It is a value
// type; the With* methods return modified copies.
type Prosody struct {
	Pitch float64 `yaml:"pitch"`
	Rate  float64 `yaml:"rate"`
}

// DefaultProsody returns pitch 1 and rate 0.8.
func DefaultProsody() Prosody {
	return Prosody{Pitch: DefaultPitch, Rate: DefaultRate}
}

// WithPitch returns a copy with the pitch replaced.
func (p Prosody) WithPitch(v float64) Prosody {
	p.Pitch = v
	return p
}

// WithRate returns a copy with the rate replaced.
func (p Prosody) WithRate(v float64) Prosody {
	p.Rate = v
	return p
}

func (p Prosody) String() string {
	return fmt.Sprintf("pitch=%.2f rate=%.2f", p.Pitch, p.Rate)
}

// Utterance is a single speech request handed to an Engine. A new value is
// built for every request.
type Utterance struct {
	ID      string
	Text    string
	Voice   Voice
	Prosody Prosody
}
