package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
	"github.com/hammamikhairi/ottospeak/internal/metrics"
)

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.Voice, p domain.Prosody) ([]byte, error)
}

// VoiceLister provides the voice directory.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]domain.Voice, error)
}

// AudioSink plays WAV audio. Play blocks until the audio has played or Stop
// is called; a paused sink keeps Play blocked.
type AudioSink interface {
	Play(wav []byte) error
	Stop()
	Pause()
	Resume()
}

// Compile-time interface checks.
var (
	_ domain.Engine         = (*Mouth)(nil)
	_ domain.VoicesNotifier = (*Mouth)(nil)
)

// MouthOption configures the Mouth.
type MouthOption func(*Mouth)

// WithChunkSize sets the approximate max character count per TTS chunk.
// Text longer than this is split at sentence boundaries and synthesized
// in parallel so playback doesn't stall between sentences.
func WithChunkSize(n int) MouthOption {
	return func(m *Mouth) {
		m.chunkSize = n
	}
}

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled (pure in-memory).
func WithCacheDir(dir string) MouthOption {
	return func(m *Mouth) {
		m.cacheDir = dir
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Even when false, existing on-disk entries are still read.
func WithDiskWrite(enabled bool) MouthOption {
	return func(m *Mouth) {
		m.diskWrite = enabled
	}
}

// WithVoiceLoadRetry sets how often the voice directory load is attempted
// and the initial backoff between attempts. The backoff doubles each time.
func WithVoiceLoadRetry(attempts int, backoff time.Duration) MouthOption {
	return func(m *Mouth) {
		m.loadAttempts = attempts
		m.loadBackoff = backoff
	}
}

// request is a queued utterance waiting to be spoken.
type request struct {
	utt        domain.Utterance
	onFinished func(error)
	queuedAt   time.Time
}

// Mouth is the host speech engine. It serializes all speech output through
// a single FIFO pipeline: queue -> chunk -> synthesize (parallel) -> play
// (sequential). Only one utterance speaks at a time.
//
// The voice directory is loaded in the background after Start; until then
// Voices returns an empty list. VoicesChanged is closed once it has loaded.
//
// An internal AudioCache transparently avoids re-synthesizing identical
// text with the same voice and prosody.
type Mouth struct {
	tts    Synthesizer
	lister VoiceLister
	sink   AudioSink
	log    *logger.Logger
	cache  *AudioCache

	mu            sync.Mutex
	queue         []request
	notify        chan struct{}
	speaking      bool
	paused        bool
	closed        bool
	generation    uint64             // bumped by ClearQueue, checked between chunks
	cancelCurrent context.CancelFunc // aborts in-flight synthesis
	chunkSize     int                // chars per TTS request, 0 = no chunking
	cacheDir      string             // filesystem cache directory
	diskWrite     bool               // persist new cache entries to disk

	voices        []domain.Voice
	voicesChanged chan struct{}
	voicesOnce    sync.Once
	loadAttempts  int
	loadBackoff   time.Duration
}

// NewMouth creates a speech engine over the given synthesizer, voice
// directory and audio sink.
func NewMouth(tts Synthesizer, lister VoiceLister, sink AudioSink, log *logger.Logger, opts ...MouthOption) *Mouth {
	m := &Mouth{
		tts:           tts,
		lister:        lister,
		sink:          sink,
		log:           log,
		notify:        make(chan struct{}, 32),
		chunkSize:     DefaultChunkSize,
		diskWrite:     true,
		voicesChanged: make(chan struct{}),
		loadAttempts:  DefaultVoiceLoadRetries,
		loadBackoff:   DefaultVoiceLoadBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	// Build the cache after options are applied so cacheDir/diskWrite
	// are settled.
	m.cache = NewAudioCache(m.cacheDir, m.diskWrite, log)
	return m
}

// Voices returns the loaded voice directory, empty until loading succeeds.
func (m *Mouth) Voices() []domain.Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Voice(nil), m.voices...)
}

// VoicesChanged is closed once the voice directory has loaded.
func (m *Mouth) VoicesChanged() <-chan struct{} {
	return m.voicesChanged
}

// Enqueue appends u to the queue. Non-blocking.
func (m *Mouth) Enqueue(u domain.Utterance, onFinished func(error)) {
	if onFinished == nil {
		onFinished = func(error) {}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		onFinished(domain.ErrInterrupted)
		return
	}
	m.queue = append(m.queue, request{
		utt:        u,
		onFinished: onFinished,
		queuedAt:   time.Now(),
	})
	qLen := len(m.queue)
	m.mu.Unlock()

	metrics.SetQueueLength(qLen)
	m.log.Debug("mouth: queued %s (queue_len=%d): %s", u.ID, qLen, truncate(u.Text, 60))

	// Signal the processing goroutine.
	select {
	case m.notify <- struct{}{}:
	default: // already signaled
	}
}

// ClearQueue stops the currently playing audio, drops everything queued,
// and causes any in-progress multi-chunk playback to abort. Every dropped
// utterance finishes with domain.ErrInterrupted. A pause is lifted.
func (m *Mouth) ClearQueue() {
	m.mu.Lock()
	pending := m.queue
	m.queue = nil
	m.generation++
	m.paused = false
	cancel := m.cancelCurrent
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.sink.Stop()
	metrics.SetQueueLength(0)

	for _, r := range pending {
		r.onFinished(domain.ErrInterrupted)
	}
	m.log.Debug("mouth: queue cleared (%d dropped), playback stopped", len(pending))
}

// PausePlayback pauses the current utterance. The pause holds across chunk
// and utterance boundaries until ResumePlayback or ClearQueue. No-op when
// nothing is speaking.
func (m *Mouth) PausePlayback() {
	m.mu.Lock()
	if !m.speaking || m.paused {
		m.mu.Unlock()
		return
	}
	m.paused = true
	m.mu.Unlock()

	m.sink.Pause()
	m.log.Debug("mouth: paused")
}

// ResumePlayback resumes after PausePlayback. No-op when not paused.
func (m *Mouth) ResumePlayback() {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return
	}
	m.paused = false
	m.mu.Unlock()

	m.sink.Resume()
	m.log.Debug("mouth: resumed")
}

// IsSpeaking returns true if the mouth is currently synthesizing or playing audio.
func (m *Mouth) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// IsPaused reports whether playback is paused.
func (m *Mouth) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// QueueLen returns the number of pending utterances, excluding the one
// being spoken.
func (m *Mouth) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Cache returns the audio cache used by this Mouth. Useful for stats/logging.
func (m *Mouth) Cache() *AudioCache { return m.cache }

// Start begins the speech processing goroutine and the voice directory
// load. Non-blocking. When ctx ends, every pending utterance is finished
// with domain.ErrInterrupted and later Enqueue calls are rejected the same way.
func (m *Mouth) Start(ctx context.Context) {
	go m.processLoop(ctx)
	go m.loadVoices(ctx)
	context.AfterFunc(ctx, m.sink.Stop)
	m.log.Info("mouth started")
}

// loadVoices fetches the voice directory, retrying with exponential backoff.
func (m *Mouth) loadVoices(ctx context.Context) {
	backoff := m.loadBackoff
	for attempt := 1; attempt <= m.loadAttempts; attempt++ {
		voices, err := m.lister.ListVoices(ctx)
		if err == nil {
			m.mu.Lock()
			m.voices = voices
			m.mu.Unlock()
			m.voicesOnce.Do(func() { close(m.voicesChanged) })
			m.log.Info("mouth: %d voices available", len(voices))
			return
		}

		m.log.Warn("mouth: loading voices failed (attempt %d/%d): %v", attempt, m.loadAttempts, err)
		if attempt == m.loadAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	m.log.Error("mouth: giving up on the voice list after %d attempts", m.loadAttempts)
}

// processLoop waits for queued items and processes them one at a time.
func (m *Mouth) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.closed = true
			m.mu.Unlock()
			m.ClearQueue()
			m.log.Info("mouth stopped")
			return
		case <-m.notify:
			m.drain(ctx)
		}
	}
}

// drain processes all queued items in arrival order.
func (m *Mouth) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, gen, ok := m.dequeue()
		if !ok {
			return
		}

		err := m.process(ctx, item, gen)

		m.mu.Lock()
		m.speaking = false
		m.mu.Unlock()

		item.onFinished(err)
	}
}

// dequeue removes the head of the queue and marks the mouth as speaking.
// It also returns the interrupt generation the item belongs to.
func (m *Mouth) dequeue() (request, uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return request{}, 0, false
	}

	item := m.queue[0]
	m.queue = m.queue[1:]
	m.speaking = true
	metrics.SetQueueLength(len(m.queue))
	return item, m.generation, true
}

// interruptedSince reports whether ClearQueue ran after generation gen.
func (m *Mouth) interruptedSince(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation != gen
}

// process synthesizes and plays a single utterance, using chunked parallel
// synthesis for long text. Failed chunks are skipped; the first failure is
// reported once the rest has played.
func (m *Mouth) process(ctx context.Context, req request, gen uint64) error {
	itemCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return domain.ErrInterrupted
	}
	m.cancelCurrent = cancel
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.cancelCurrent = nil
		m.mu.Unlock()
	}()

	u := req.utt
	waitTime := time.Since(req.queuedAt).Round(time.Millisecond)
	m.log.Debug("mouth: speaking %s (waited=%s, voice=%s, %s): %s", u.ID, waitTime, u.Voice.Handle, u.Prosody, truncate(u.Text, 60))

	text := cleanForSpeech(u.Text)
	if text == "" {
		return nil
	}
	chunks := m.splitChunks(text)
	if len(chunks) > 1 {
		m.log.Debug("mouth: split into %d chunks for parallel synthesis", len(chunks))
	}

	audioSlots, firstErr := m.synthesizeAll(itemCtx, u, chunks)

	// Play in order. By now most/all chunks are ready.
	for i, audio := range audioSlots {
		if m.interruptedSince(gen) || ctx.Err() != nil {
			m.log.Debug("mouth: aborting %s (interrupted)", u.ID)
			return domain.ErrInterrupted
		}
		if audio == nil {
			m.log.Debug("mouth: skipping chunk %d (synthesis failed)", i)
			continue
		}
		if err := m.sink.Play(audio); err != nil {
			m.log.Error("mouth: chunk %d playback failed: %v", i, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("playback: %w", err)
			}
		}
	}

	if m.interruptedSince(gen) || ctx.Err() != nil {
		return domain.ErrInterrupted
	}
	return firstErr
}

// synthesizeAll fires every chunk's synthesis in parallel and collects the
// results into ordered slots. Short text takes a single request.
func (m *Mouth) synthesizeAll(ctx context.Context, u domain.Utterance, chunks []string) ([][]byte, error) {
	slots := make([][]byte, len(chunks))

	if len(chunks) == 1 {
		audio, err := m.synthesizeWithCache(ctx, u, chunks[0])
		if err != nil {
			m.log.Error("mouth: synthesis failed: %v", err)
			return slots, fmt.Errorf("synthesis: %w", err)
		}
		slots[0] = audio
		return slots, nil
	}

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))

	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := m.synthesizeWithCache(ctx, u, text)
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	var firstErr error
	for range chunks {
		r := <-results
		if r.err != nil {
			m.log.Error("mouth: chunk %d synthesis failed: %v", r.idx, r.err)
			if firstErr == nil {
				firstErr = fmt.Errorf("synthesis: %w", r.err)
			}
			continue
		}
		slots[r.idx] = r.audio
	}
	return slots, firstErr
}

// synthesizeWithCache checks the cache first, otherwise calls the
// synthesizer and stores the result. Thread-safe.
func (m *Mouth) synthesizeWithCache(ctx context.Context, u domain.Utterance, text string) ([]byte, error) {
	key := CacheKey(u.Voice.Handle, u.Prosody, text)
	if audio, ok := m.cache.Get(key); ok {
		return audio, nil
	}
	audio, err := m.tts.Synthesize(ctx, text, u.Voice, u.Prosody)
	if err != nil {
		return nil, err
	}
	m.cache.Put(key, audio)
	return audio, nil
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// m.chunkSize characters. If chunkSize is 0 or the text is short, it
// returns the text as-is in a single slice.
func (m *Mouth) splitChunks(text string) []string {
	if m.chunkSize <= 0 || len([]rune(text)) <= m.chunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, s := range sentences {
		n := len([]rune(s))
		// If adding this sentence would exceed the limit, flush.
		if currentLen > 0 && currentLen+n > m.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
		current.WriteString(s)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	// Filter out empties.
	var out []string
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// splitSentences splits text at sentence boundaries keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			// Consume trailing whitespace and include it.
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
