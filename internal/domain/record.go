package domain

import "time"

// Record is the history entry of one spoken utterance.
type Record struct {
	ID         string
	Text       string
	Voice      string
	Prosody    Prosody
	Appended   bool // queued behind earlier speech instead of replacing it
	Status     RecordStatus
	Err        string
	QueuedAt   time.Time
	FinishedAt time.Time
}

// RecordStatus tracks the lifecycle of an utterance.
type RecordStatus int

const (
	RecordQueued RecordStatus = iota
	RecordFinished
	RecordInterrupted
	RecordFailed
)

// String returns a human-readable record status.
func (s RecordStatus) String() string {
	switch s {
	case RecordQueued:
		return "queued"
	case RecordFinished:
		return "finished"
	case RecordInterrupted:
		return "interrupted"
	case RecordFailed:
		return "failed"
	default:
		return "unknown"
	}
}
