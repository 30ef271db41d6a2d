// Package config loads ottospeak settings from the environment, an optional
// .env file and an optional YAML voice profile.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/tts"
)

// Config holds all configuration for ottospeak.
type Config struct {
	// Azure Speech credentials. Both empty means speech runs silently.
	AzureSpeechKey    string        `envconfig:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion string        `envconfig:"AZURE_SPEECH_REGION"`
	AzureEndpoint     string        `envconfig:"OTTOSPEAK_AZURE_ENDPOINT" default:""`  // replaces the regional endpoint, e.g. a proxy
	HTTPTimeout       time.Duration `envconfig:"OTTOSPEAK_HTTP_TIMEOUT" default:"30s"` // 0 = no timeout

	// Target voice
	VoiceLanguage string `envconfig:"OTTOSPEAK_VOICE_LANGUAGE" default:"zh-CN"`
	VoiceName     string `envconfig:"OTTOSPEAK_VOICE_NAME" default:"Microsoft Kangkang - Chinese (Simplified, PRC)"`
	VoiceFallback bool   `envconfig:"OTTOSPEAK_VOICE_FALLBACK" default:"false"` // accept any voice of VoiceLanguage

	// Prosody
	Pitch float64 `envconfig:"OTTOSPEAK_PITCH" default:"1"`
	Rate  float64 `envconfig:"OTTOSPEAK_RATE" default:"0.8"`

	// Engine
	PollInterval time.Duration `envconfig:"OTTOSPEAK_POLL_INTERVAL" default:"10ms"` // voice list re-read interval
	ChunkSize    int           `envconfig:"OTTOSPEAK_CHUNK_SIZE" default:"200"`     // chars per synthesis request, 0 = off
	CacheDir     string        `envconfig:"OTTOSPEAK_CACHE_DIR" default:".ottospeak-cache"`
	DiskCache    bool          `envconfig:"OTTOSPEAK_DISK_CACHE" default:"true"`
	HistorySize  int           `envconfig:"OTTOSPEAK_HISTORY_SIZE" default:"200"`

	// Observability
	LogLevel    string `envconfig:"OTTOSPEAK_LOG_LEVEL" default:"normal"` // off, normal, verbose
	LogFile     string `envconfig:"OTTOSPEAK_LOG_FILE" default:".ottospeak-logs/ottospeak.log"`
	MetricsAddr string `envconfig:"OTTOSPEAK_METRICS_ADDR" default:""` // e.g. :9464, empty = off

	// Optional YAML voice profile, watched for prosody changes
	ProfilePath string `envconfig:"OTTOSPEAK_PROFILE" default:""`
}

// Load reads configuration from environment variables.
// It first attempts to load from .env file if it exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field combinations and ranges.
func (c *Config) Validate() error {
	var errs []error
	if (c.AzureSpeechKey == "") != (c.AzureSpeechRegion == "") {
		errs = append(errs, errors.New("config: AZURE_SPEECH_KEY and AZURE_SPEECH_REGION must be set together"))
	}
	if c.VoiceLanguage == "" && c.VoiceName == "" {
		errs = append(errs, errors.New("config: voice language or voice name is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("config: poll interval must be positive, got %s", c.PollInterval))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: http timeout must not be negative, got %s", c.HTTPTimeout))
	}
	if c.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("config: chunk size must not be negative, got %d", c.ChunkSize))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("config: history size must be positive, got %d", c.HistorySize))
	}
	return errors.Join(errs...)
}

// HasAzure reports whether Azure credentials are configured.
func (c *Config) HasAzure() bool {
	return c.AzureSpeechKey != "" && c.AzureSpeechRegion != ""
}

// Prosody returns the configured pitch and rate.
func (c *Config) Prosody() domain.Prosody {
	return domain.Prosody{Pitch: c.Pitch, Rate: c.Rate}
}

// VoiceMatcher returns the matcher for the configured target voice.
func (c *Config) VoiceMatcher() tts.VoiceMatcher {
	return tts.VoiceMatcher{
		LanguageTag:      c.VoiceLanguage,
		DisplayName:      c.VoiceName,
		LanguageFallback: c.VoiceFallback,
	}
}

// TargetVoice returns the configured voice as a directory entry. The silent
// engine lists it so the target always resolves there.
func (c *Config) TargetVoice() domain.Voice {
	return domain.Voice{
		LanguageTag: c.VoiceLanguage,
		DisplayName: c.VoiceName,
		Handle:      "silent-" + c.VoiceLanguage,
	}
}
