package speech

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
)

// Compile-time interface checks.
var (
	_ Synthesizer = (*StubSynthesizer)(nil)
	_ VoiceLister = StaticVoices(nil)
	_ AudioSink   = (*NullSink)(nil)
)

// StubSynthesizer produces silent audio whose length follows the text, so a
// Mouth can run without Azure credentials. Used when speech is disabled.
type StubSynthesizer struct {
	perRune time.Duration
	log     *logger.Logger
}

// NewStubSynthesizer creates a stub that emits perRune of silence per
// character at rate 1.
func NewStubSynthesizer(perRune time.Duration, log *logger.Logger) *StubSynthesizer {
	return &StubSynthesizer{perRune: perRune, log: log}
}

// Synthesize returns a silent WAV. Faster rates yield shorter audio.
func (s *StubSynthesizer) Synthesize(ctx context.Context, text string, voice domain.Voice, p domain.Prosody) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rate := p.Rate
	if rate <= 0 {
		rate = 1
	}
	d := time.Duration(float64(time.Duration(len([]rune(text)))*s.perRune) / rate)
	s.log.Debug("stub tts: would say %q with %s (%s), %s of silence", truncate(text, 40), voice.Handle, p, d)

	samples := int(d * SampleRate / time.Second)
	return encodeWAV(make([]byte, samples*ChannelCount*BitDepth/8)), nil
}

// StaticVoices is a fixed voice directory.
type StaticVoices []domain.Voice

// ListVoices returns a copy of the directory.
func (v StaticVoices) ListVoices(ctx context.Context) ([]domain.Voice, error) {
	return append([]domain.Voice(nil), v...), nil
}

// NullSink "plays" audio by waiting out its duration. It honours Pause,
// Resume and Stop like the real Player.
type NullSink struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
}

// NewNullSink creates a silent audio sink.
func NewNullSink() *NullSink {
	return &NullSink{}
}

const nullSinkTick = 5 * time.Millisecond

// Play blocks for the duration of the PCM payload, excluding paused time.
func (s *NullSink) Play(wav []byte) error {
	pcm, err := extractPCM(wav)
	if err != nil {
		return err
	}
	remaining := pcmDuration(len(pcm))

	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()

	last := time.Now()
	for remaining > 0 {
		time.Sleep(min(remaining, nullSinkTick))
		now := time.Now()

		s.mu.Lock()
		paused, stopped := s.paused, s.stopped
		s.mu.Unlock()

		if stopped {
			return nil
		}
		if !paused {
			remaining -= now.Sub(last)
		}
		last = now
	}
	return nil
}

// Stop ends the current Play and clears the paused state.
func (s *NullSink) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.paused = false
	s.mu.Unlock()
}

// Pause freezes the remaining duration.
func (s *NullSink) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume lets the remaining duration run down again.
func (s *NullSink) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}
