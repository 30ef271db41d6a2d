package tts

import (
	"context"
	"errors"
	"sync"

	"github.com/hammamikhairi/ottospeak/internal/domain"
	"github.com/hammamikhairi/ottospeak/internal/metrics"
)

// Playback tracks one submitted utterance until the engine reports it done.
type Playback struct {
	utterance domain.Utterance
	done      chan struct{}
	once      sync.Once
	err       error
}

func newPlayback(u domain.Utterance) *Playback {
	return &Playback{utterance: u, done: make(chan struct{})}
}

// Utterance returns what was submitted, including the voice and prosody in
// effect at submission.
func (p *Playback) Utterance() domain.Utterance { return p.utterance }

// ID returns the utterance ID.
func (p *Playback) ID() string { return p.utterance.ID }

// Done is closed once the engine has finished with the utterance.
func (p *Playback) Done() <-chan struct{} { return p.done }

// Err returns nil for a completed playback, domain.ErrInterrupted when the
// utterance was discarded, or the engine error. It returns nil until Done
// is closed.
func (p *Playback) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until Done is closed or ctx ends.
func (p *Playback) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish is the engine's onFinished callback. Only the first call counts.
func (p *Playback) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)

		switch {
		case err == nil:
			metrics.RecordUtterance(metrics.OutcomeFinished)
		case errors.Is(err, domain.ErrInterrupted):
			metrics.RecordUtterance(metrics.OutcomeInterrupted)
		default:
			metrics.RecordUtterance(metrics.OutcomeFailed)
		}
	})
}
