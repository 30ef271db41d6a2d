package domain

import "context"

// Engine is the host speech capability. It owns a single FIFO queue shared by
// every caller. Implementations must be safe for concurrent use.
type Engine interface {
	// Voices returns the current voice directory. It may be empty while the
	// engine is still loading it.
	Voices() []Voice
	// Enqueue appends u to the queue. onFinished is called exactly once:
	// with nil after u has been played completely, with ErrInterrupted when
	// u is discarded by ClearQueue, or with the playback error otherwise.
	Enqueue(u Utterance, onFinished func(error))
	// ClearQueue discards every queued utterance and stops the current one.
	ClearQueue()
	// PausePlayback and ResumePlayback are no-ops when nothing is playing.
	PausePlayback()
	ResumePlayback()
}

// VoicesNotifier is implemented by engines that can announce changes to
// their voice directory. The returned channel receives a value, or is
// closed, whenever Voices may return a different list.
type VoicesNotifier interface {
	VoicesChanged() <-chan struct{}
}

// HistoryStore persists utterance records. Implementations can be in-memory,
// SQLite, or any other backend.
type HistoryStore interface {
	Save(ctx context.Context, rec *Record) error
	// Update overwrites an existing record without changing its position.
	// It returns ErrNotFound when the record is unknown or was evicted.
	Update(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Recent(ctx context.Context, n int) ([]*Record, error)
	Last(ctx context.Context) (*Record, error)
}

// CommandParser converts raw user input into structured commands.
type CommandParser interface {
	Parse(ctx context.Context, input string) (*Command, error)
}

// Notifier delivers messages to the user. Implementations can write to a
// terminal, a log, or anything else that shows text.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyError(ctx context.Context, err error) error
	NotifyFinished(ctx context.Context, rec *Record) error
}
