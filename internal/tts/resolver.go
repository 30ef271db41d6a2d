package tts

import (
	"context"
	"time"

	"github.com/hammamikhairi/ottospeak/internal/domain"
)

// DefaultPollInterval is how often an empty voice directory is re-read.
const DefaultPollInterval = 10 * time.Millisecond

// waitForVoice blocks until the engine reports a non-empty voice directory
// and then matches it exactly once. An empty directory is never a failure;
// a populated one without a match is. The engine is re-read on every tick
// and whenever it announces a directory change.
func waitForVoice(ctx context.Context, engine domain.Engine, m VoiceMatcher, interval time.Duration) (domain.Voice, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var changed <-chan struct{}
	if n, ok := engine.(domain.VoicesNotifier); ok {
		changed = n.VoicesChanged()
	}

	for {
		if voices := engine.Voices(); len(voices) > 0 {
			return m.Match(voices)
		}

		select {
		case <-ctx.Done():
			return domain.Voice{}, ctx.Err()
		case <-ticker.C:
		case _, ok := <-changed:
			if !ok {
				// Closed: the notification fired for good, keep polling.
				changed = nil
			}
		}
	}
}
