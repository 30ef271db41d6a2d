package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/ottospeak/internal/logger"
)

// Compile-time interface check.
var _ AudioSink = (*Player)(nil)

// stream is the part of *oto.Player the Player drives.
type stream interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// pollInterval is how often Play checks for the end of playback.
const pollInterval = 10 * time.Millisecond

// Player handles audio playback of WAV/PCM data via oto.
//
// All stream calls happen under mu, so a state change and the matching
// Play or Pause on the stream are seen together by the wait loop.
type Player struct {
	open func(io.Reader) stream
	log  *logger.Logger

	mu      sync.Mutex
	active  stream // currently playing, nil when idle
	paused  bool   // survives across Play calls until Resume or Stop
	stopped bool
}

// NewPlayer creates an audio player. Initializes the system audio context.
// Returns an error if the audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return newPlayer(func(r io.Reader) stream { return ctx.NewPlayer(r) }, log), nil
}

func newPlayer(open func(io.Reader) stream, log *logger.Logger) *Player {
	return &Player{open: open, log: log}
}

// Play plays WAV audio data synchronously. Blocks until playback finishes
// or Stop is called. While paused it keeps blocking.
func (p *Player) Play(wavData []byte) error {
	pcm, err := extractPCM(wavData)
	if err != nil {
		return err
	}

	player := p.open(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.stopped = false
	paused := p.paused
	if !paused {
		player.Play()
	}
	p.mu.Unlock()

	p.log.Debug("audio player: playing %d bytes of PCM (paused=%t)", len(pcm), paused)

	// Wait for playback to complete or be interrupted.
	for {
		p.mu.Lock()
		done := p.stopped || (!p.paused && !player.IsPlaying())
		if done {
			p.active = nil
		}
		p.mu.Unlock()
		if done {
			break
		}
		time.Sleep(pollInterval)
	}

	return player.Close()
}

// Stop interrupts the currently playing audio, if any, and clears the
// paused state. Safe to call concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true
	p.paused = false
	if p.active != nil {
		p.active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

// Pause halts output. The next Play starts paused as well.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paused = true
	if p.active != nil {
		p.active.Pause()
	}
	p.log.Debug("audio player: paused")
}

// Resume continues paused output.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	wasPaused := p.paused
	p.paused = false
	if wasPaused && p.active != nil {
		p.active.Play()
	}
	p.log.Debug("audio player: resumed")
}

// extractPCM strips the WAV/RIFF header and returns raw PCM data.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errors.New("wav data too short")
	}

	// Verify RIFF header.
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a valid WAV file")
	}

	// Walk chunks to find the "data" chunk.
	pos := 12
	for pos < len(wav)-8 {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))

		if chunkID == "data" {
			start := pos + 8
			end := start + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			return wav[start:end], nil
		}

		pos += 8 + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return nil, errors.New("data chunk not found in WAV")
}

// encodeWAV wraps PCM in a minimal RIFF/WAVE header for the default format.
func encodeWAV(pcm []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	le := binary.LittleEndian
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, le, uint32(16))
	_ = binary.Write(&buf, le, uint16(1)) // PCM
	_ = binary.Write(&buf, le, uint16(ChannelCount))
	_ = binary.Write(&buf, le, uint32(SampleRate))
	_ = binary.Write(&buf, le, uint32(bytesPerSecond))
	_ = binary.Write(&buf, le, uint16(ChannelCount*BitDepth/8))
	_ = binary.Write(&buf, le, uint16(BitDepth))

	buf.WriteString("data")
	_ = binary.Write(&buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
