package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/ottospeak/internal/domain"
)

// Profile is the YAML voice profile:
//
//	voice:
//	  language: zh-CN
//	  name: Microsoft Kangkang - Chinese (Simplified, PRC)
//	  fallback: true
//	prosody:
//	  pitch: 1.1
//	  rate: 0.9
//
// Absent fields leave the environment configuration untouched.
type Profile struct {
	Voice   VoiceProfile   `yaml:"voice"`
	Prosody ProsodyProfile `yaml:"prosody"`
}

// VoiceProfile selects the target voice.
type VoiceProfile struct {
	Language string `yaml:"language"`
	Name     string `yaml:"name"`
	Fallback *bool  `yaml:"fallback"`
}

// ProsodyProfile overrides pitch and rate.
type ProsodyProfile struct {
	Pitch *float64 `yaml:"pitch"`
	Rate  *float64 `yaml:"rate"`
}

// LoadProfile reads and decodes a profile file. Unknown keys are rejected.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %q: %w", path, err)
	}

	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}
	return &p, nil
}

// ApplyTo overlays the profile onto cfg.
func (p *Profile) ApplyTo(cfg *Config) {
	if p.Voice.Language != "" {
		cfg.VoiceLanguage = p.Voice.Language
	}
	if p.Voice.Name != "" {
		cfg.VoiceName = p.Voice.Name
	}
	if p.Voice.Fallback != nil {
		cfg.VoiceFallback = *p.Voice.Fallback
	}
	prosody := p.ProsodyOver(cfg.Prosody())
	cfg.Pitch, cfg.Rate = prosody.Pitch, prosody.Rate
}

// ProsodyOver returns base with the profile's pitch and rate applied.
func (p *Profile) ProsodyOver(base domain.Prosody) domain.Prosody {
	if p.Prosody.Pitch != nil {
		base = base.WithPitch(*p.Prosody.Pitch)
	}
	if p.Prosody.Rate != nil {
		base = base.WithRate(*p.Prosody.Rate)
	}
	return base
}
