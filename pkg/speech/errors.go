package speech

import (
	"context"
	"errors"
)

var (
	// ErrNotAllowed means audio capture or the recognition service was
	// refused, the equivalent of a denied microphone permission.
	ErrNotAllowed = errors.New("speech: not allowed")

	// ErrNoSpeech means the session ended without hearing anything.
	ErrNoSpeech = errors.New("speech: no speech detected")

	// ErrNoAPIKey is returned when a hosted recognizer has no key.
	ErrNoAPIKey = errors.New("speech: API key required")

	// ErrInputClosed is returned when the console input has no more lines.
	ErrInputClosed = errors.New("speech: input closed")
)

// Kind buckets recognition errors for display and metrics.
type Kind int

const (
	KindOther Kind = iota
	KindNotAllowed
	KindNoSpeech
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindNotAllowed:
		return "not-allowed"
	case KindNoSpeech:
		return "no-speech"
	case KindAborted:
		return "aborted"
	default:
		return "other"
	}
}

// Classify maps a recognition error to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case errors.Is(err, ErrNotAllowed):
		return KindNotAllowed
	case errors.Is(err, ErrNoSpeech):
		return KindNoSpeech
	case errors.Is(err, context.Canceled):
		return KindAborted
	default:
		return KindOther
	}
}
