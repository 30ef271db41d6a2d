// Package tts provides the speech controller: prosody configuration, lazy
// voice resolution, and speak/pause/resume/cancel over a host Engine.
package tts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/logger"
	"github.com/hammamikhairi/ottospeak/internal/metrics"
)

// Option configures the Controller.
type Option func(*Controller)

// WithProsody sets the initial pitch and rate.
func WithProsody(p domain.Prosody) Option {
	return func(c *Controller) {
		c.prosody = p
	}
}

// WithVoiceMatcher replaces the default zh-CN Kangkang matcher.
func WithVoiceMatcher(m VoiceMatcher) Option {
	return func(c *Controller) {
		c.matcher = m
	}
}

// WithPollInterval sets how often an empty voice directory is re-read.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithIDGenerator replaces the UUID generator used for utterance IDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

// SpeakOption configures a single Speak call.
type SpeakOption func(*speakOptions)

type speakOptions struct {
	cancelQueue bool
}

// WithCancelQueue chooses whether Speak clears the engine queue before
// enqueuing. The default is true.
func WithCancelQueue(cancel bool) SpeakOption {
	return func(o *speakOptions) {
		o.cancelQueue = cancel
	}
}

// Append queues the utterance behind whatever is already queued.
func Append() SpeakOption {
	return WithCancelQueue(false)
}

// Controller drives a host speech Engine. The voice is resolved lazily on
// first use, at most once per Controller, and the outcome is kept for the
// Controller's lifetime: once Ready reports true it never goes back.
//
// Pitch and rate are read when an utterance is submitted, so setter calls
// affect only later Speak calls.
type Controller struct {
	engine  domain.Engine
	log     *logger.Logger
	matcher VoiceMatcher
	poll    time.Duration
	newID   func() string

	mu      sync.RWMutex
	prosody domain.Prosody

	sendMu sync.Mutex // keeps clear+enqueue atomic across callers
	voice  *onceCell[domain.Voice]

	lifetime context.Context
	stop     context.CancelFunc
}

// New creates a controller over engine. A nil engine yields a controller
// whose Speak and Init fail with domain.ErrEngineUnavailable.
func New(engine domain.Engine, log *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		engine:  engine,
		log:     log,
		matcher: DefaultVoiceMatcher(),
		poll:    DefaultPollInterval,
		newID:   uuid.NewString,
		prosody: domain.DefaultProsody(),
		voice:   newOnceCell[domain.Voice](),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lifetime, c.stop = context.WithCancel(context.Background())
	return c
}

// SetPitch stores the pitch for subsequent utterances. Values are not
// validated; the engine clamps them.
func (c *Controller) SetPitch(v float64) *Controller {
	c.mu.Lock()
	c.prosody = c.prosody.WithPitch(v)
	c.mu.Unlock()
	return c
}

// SetRate stores the rate for subsequent utterances.
func (c *Controller) SetRate(v float64) *Controller {
	c.mu.Lock()
	c.prosody = c.prosody.WithRate(v)
	c.mu.Unlock()
	return c
}

// SetPitchAndRate is SetPitch followed by SetRate.
func (c *Controller) SetPitchAndRate(p domain.Prosody) *Controller {
	return c.SetPitch(p.Pitch).SetRate(p.Rate)
}

// Prosody returns the pitch and rate the next utterance will use.
func (c *Controller) Prosody() domain.Prosody {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prosody
}

// Matcher returns the voice matcher in use.
func (c *Controller) Matcher() VoiceMatcher { return c.matcher }

// Init resolves the voice if that has not happened yet. Concurrent and
// repeated calls share one resolution. ctx bounds only this caller's wait.
func (c *Controller) Init(ctx context.Context) error {
	_, err := c.resolveOnce(ctx)
	return err
}

// Ready reports whether a voice has been resolved.
func (c *Controller) Ready() bool {
	_, ok, err := c.voice.result()
	return ok && err == nil
}

// Voice returns the resolved voice, if any.
func (c *Controller) Voice() (domain.Voice, bool) {
	v, ok, err := c.voice.result()
	if !ok || err != nil {
		return domain.Voice{}, false
	}
	return v, true
}

// ResolveErr returns the terminal resolution error, or nil while resolving
// or after success.
func (c *Controller) ResolveErr() error {
	_, ok, err := c.voice.result()
	if !ok {
		return nil
	}
	return err
}

// Speak submits text with the current prosody and resolved voice. By default
// it first clears the engine queue, superseding anything queued or playing;
// pass Append to queue behind it instead.
//
// The returned Playback completes when the engine has finished with the
// utterance. Speak itself fails only when the voice cannot be resolved or
// the controller is closed.
func (c *Controller) Speak(ctx context.Context, text string, opts ...SpeakOption) (*Playback, error) {
	o := speakOptions{cancelQueue: true}
	for _, opt := range opts {
		opt(&o)
	}

	voice, err := c.resolveOnce(ctx)
	if err != nil {
		return nil, err
	}

	u := domain.Utterance{
		ID:      c.newID(),
		Text:    text,
		Voice:   voice,
		Prosody: c.Prosody(),
	}
	pb := newPlayback(u)

	c.sendMu.Lock()
	if c.lifetime.Err() != nil {
		c.sendMu.Unlock()
		return nil, domain.ErrClosed
	}
	if o.cancelQueue {
		c.engine.ClearQueue()
	}
	c.engine.Enqueue(u, pb.finish)
	c.sendMu.Unlock()

	c.log.Debug("tts: submitted %s (cancel_queue=%t, %s): %s", shortID(u.ID), o.cancelQueue, u.Prosody, truncate(text, 60))
	return pb, nil
}

// SpeakAndWait is Speak followed by Playback.Wait.
func (c *Controller) SpeakAndWait(ctx context.Context, text string, opts ...SpeakOption) error {
	pb, err := c.Speak(ctx, text, opts...)
	if err != nil {
		return err
	}
	return pb.Wait(ctx)
}

// Pause pauses playback. No-op when nothing is playing.
func (c *Controller) Pause() {
	if c.engine == nil {
		c.log.Warn("tts: pause ignored: %v", domain.ErrEngineUnavailable)
		return
	}
	c.engine.PausePlayback()
}

// Resume resumes paused playback. No-op when nothing is paused.
func (c *Controller) Resume() {
	if c.engine == nil {
		c.log.Warn("tts: resume ignored: %v", domain.ErrEngineUnavailable)
		return
	}
	c.engine.ResumePlayback()
}

// Cancel discards everything queued or playing.
func (c *Controller) Cancel() {
	if c.engine == nil {
		c.log.Warn("tts: cancel ignored: %v", domain.ErrEngineUnavailable)
		return
	}
	c.sendMu.Lock()
	c.engine.ClearQueue()
	c.sendMu.Unlock()
}

// Close aborts a pending voice resolution. Later Speak and Init calls fail
// with domain.ErrClosed. Utterances already submitted are left to the engine.
func (c *Controller) Close() {
	c.sendMu.Lock()
	c.stop()
	c.sendMu.Unlock()
}

func (c *Controller) resolveOnce(ctx context.Context) (domain.Voice, error) {
	if c.engine == nil {
		return domain.Voice{}, domain.ErrEngineUnavailable
	}
	if c.lifetime.Err() != nil {
		return domain.Voice{}, domain.ErrClosed
	}
	return c.voice.get(ctx, c.resolve)
}

// resolve runs once, bound to the controller lifetime rather than to the
// caller that triggered it.
func (c *Controller) resolve() (domain.Voice, error) {
	start := time.Now()
	c.log.Debug("tts: resolving voice %q (%s)", c.matcher.DisplayName, c.matcher.LanguageTag)

	v, err := waitForVoice(c.lifetime, c.engine, c.matcher, c.poll)
	if err != nil && errors.Is(err, context.Canceled) && c.lifetime.Err() != nil {
		err = domain.ErrClosed
	}
	metrics.ObserveVoiceResolution(time.Since(start), err)

	if err != nil {
		c.log.Error("tts: voice resolution failed: %v", err)
		return domain.Voice{}, err
	}
	c.log.Info("tts: using voice %s after %s", v, time.Since(start).Round(time.Millisecond))
	return v, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
