package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrEngineUnavailable = errors.New("speech engine unavailable")
	ErrVoiceNotFound     = errors.New("voice not found")
	ErrInterrupted       = errors.New("utterance interrupted")
	ErrClosed            = errors.New("speech controller closed")
)

// VoiceNotFoundError reports that the engine's voice list was populated but
// held no voice matching the requested one. It is terminal for the
// controller that produced it.
type VoiceNotFoundError struct {
	Name        string
	LanguageTag string
}

func (e *VoiceNotFoundError) Error() string {
	if e.LanguageTag == "" {
		return fmt.Sprintf("voice %q not found", e.Name)
	}
	return fmt.Sprintf("voice %q (%s) not found", e.Name, e.LanguageTag)
}

// Is lets errors.Is(err, ErrVoiceNotFound) match.
func (e *VoiceNotFoundError) Is(target error) bool {
	return target == ErrVoiceNotFound
}
