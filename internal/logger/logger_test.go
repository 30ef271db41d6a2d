package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelNormal, &buf)

	log.Debug("hidden %d", 1)
	log.Info("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "INF")
}

func TestVerboseIncludesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelVerbose, &buf)

	log.Debug("resolving voice")
	assert.Contains(t, buf.String(), "resolving voice")
	assert.Contains(t, buf.String(), "DBG")
}

func TestOffSilencesEverything(t *testing.T) {
	var buf bytes.Buffer
	log := New(LevelOff, &buf)

	log.Error("boom")
	log.Warn("careful")
	assert.Empty(t, buf.String())
}

func TestWithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := New(LevelOff, &buf)
	child := parent.With("component", "mouth")

	child.Info("before")
	assert.Empty(t, buf.String())

	parent.SetLevel(LevelNormal)
	child.Info("after")
	assert.Contains(t, buf.String(), "after")
	assert.Contains(t, buf.String(), "component=mouth")
	assert.Equal(t, LevelNormal, child.GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"off":     LevelOff,
		"quiet":   LevelOff,
		"normal":  LevelNormal,
		"info":    LevelNormal,
		"VERBOSE": LevelVerbose,
		"debug":   LevelVerbose,
		"???":     LevelNormal,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestRotatingFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	w, err := RotatingFile(path)
	require.NoError(t, err)
	defer w.Close()

	log := New(LevelNormal, w)
	log.Info("to disk")
	assert.FileExists(t, path)
}
