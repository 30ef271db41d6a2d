package speech

import "time"

// Audio format requested from Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Defaults for the Mouth.
const (
	DefaultChunkSize        = 200 // roughly two sentences
	DefaultVoiceLoadRetries = 5
	DefaultVoiceLoadBackoff = 500 * time.Millisecond
)

// bytesPerSecond of PCM in the default format.
const bytesPerSecond = SampleRate * ChannelCount * BitDepth / 8

// pcmDuration returns how long n bytes of PCM take to play.
func pcmDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / bytesPerSecond
}
