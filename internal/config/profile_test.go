package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.yaml")
	writeFile(t, path, `
voice:
  language: zh-CN
  name: Microsoft Huihui - Chinese (Simplified, PRC)
  fallback: true
prosody:
  pitch: 1.1
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	cfg := &Config{VoiceLanguage: "en-US", VoiceName: "x", Pitch: 1, Rate: 0.8}
	p.ApplyTo(cfg)

	assert.Equal(t, "zh-CN", cfg.VoiceLanguage)
	assert.Equal(t, "Microsoft Huihui - Chinese (Simplified, PRC)", cfg.VoiceName)
	assert.True(t, cfg.VoiceFallback)
	assert.Equal(t, domain.Prosody{Pitch: 1.1, Rate: 0.8}, cfg.Prosody())
}

func TestLoadProfileEmptyAndInvalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	writeFile(t, empty, "")
	p, err := LoadProfile(empty)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProsody(), p.ProsodyOver(domain.DefaultProsody()))

	unknown := filepath.Join(dir, "unknown.yaml")
	writeFile(t, unknown, "volume: 11\n")
	_, err = LoadProfile(unknown)
	assert.Error(t, err)

	_, err = LoadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestProfileWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.yaml")
	writeFile(t, path, "prosody:\n  rate: 0.8\n")

	var (
		mu   sync.Mutex
		got  []domain.Prosody
		errs int
	)
	onReload := func(p *Profile, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs++
			return
		}
		got = append(got, p.ProsodyOver(domain.DefaultProsody()))
	}

	w, err := NewProfileWatcher(path, logger.New(logger.LevelOff, nil), onReload, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond) // let the watcher register

	writeFile(t, path, "prosody:\n  pitch: 1.4\n  rate: 1.2\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, domain.Prosody{Pitch: 1.4, Rate: 1.2}, got[len(got)-1])
	mu.Unlock()
	assert.GreaterOrEqual(t, w.ReloadCount(), uint32(1))

	// Broken content keeps the last good snapshot.
	writeFile(t, path, "prosody: [not, a, map]\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return errs > 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.4, *w.Snapshot().Prosody.Pitch)
}
