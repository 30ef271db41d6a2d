package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/tts"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AZURE_SPEECH_KEY", "")
	t.Setenv("AZURE_SPEECH_REGION", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.False(t, cfg.HasAzure())
	assert.Equal(t, domain.DefaultProsody(), cfg.Prosody())
	assert.Equal(t, tts.DefaultVoiceMatcher(), cfg.VoiceMatcher())
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 200, cfg.ChunkSize)
	assert.True(t, cfg.DiskCache)
	assert.Equal(t, "normal", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Empty(t, cfg.AzureEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AZURE_SPEECH_KEY", "k")
	t.Setenv("AZURE_SPEECH_REGION", "eastasia")
	t.Setenv("OTTOSPEAK_VOICE_LANGUAGE", "en-US")
	t.Setenv("OTTOSPEAK_VOICE_NAME", "Microsoft Ava - English (United States)")
	t.Setenv("OTTOSPEAK_VOICE_FALLBACK", "true")
	t.Setenv("OTTOSPEAK_PITCH", "1.3")
	t.Setenv("OTTOSPEAK_RATE", "1")
	t.Setenv("OTTOSPEAK_POLL_INTERVAL", "25ms")
	t.Setenv("OTTOSPEAK_HTTP_TIMEOUT", "5s")
	t.Setenv("OTTOSPEAK_AZURE_ENDPOINT", "http://localhost:8080")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.HasAzure())
	assert.Equal(t, domain.Prosody{Pitch: 1.3, Rate: 1}, cfg.Prosody())
	assert.Equal(t, tts.VoiceMatcher{
		LanguageTag:      "en-US",
		DisplayName:      "Microsoft Ava - English (United States)",
		LanguageFallback: true,
	}, cfg.VoiceMatcher())
	assert.Equal(t, 25*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "http://localhost:8080", cfg.AzureEndpoint)
}

func TestLoadRejectsHalfCredentials(t *testing.T) {
	t.Setenv("AZURE_SPEECH_KEY", "k")
	t.Setenv("AZURE_SPEECH_REGION", "")

	_, err := LoadFromEnv()
	assert.ErrorContains(t, err, "must be set together")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		VoiceLanguage: "zh-CN",
		PollInterval:  0,
		ChunkSize:     -1,
		HistorySize:   0,
		HTTPTimeout:   -time.Second,
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "poll interval")
	assert.ErrorContains(t, err, "chunk size")
	assert.ErrorContains(t, err, "history size")
	assert.ErrorContains(t, err, "http timeout")

	cfg = Config{VoiceName: "x", PollInterval: time.Millisecond, HistorySize: 1}
	assert.NoError(t, cfg.Validate())

	cfg.VoiceName = ""
	assert.ErrorContains(t, cfg.Validate(), "voice")
}

func TestTargetVoiceMatchesConfiguredMatcher(t *testing.T) {
	cfg := Config{VoiceLanguage: "zh-CN", VoiceName: tts.DefaultVoiceName}
	v, err := cfg.VoiceMatcher().Match([]domain.Voice{cfg.TargetVoice()})
	require.NoError(t, err)
	assert.Equal(t, "silent-zh-CN", v.Handle)
}
