// Package speech defines the speech synthesis and recognition collaborators
// a call session talks to, plus concrete implementations.
//
// A Synthesizer speaks one Utterance at a time and blocks until playback
// finishes. A Recognizer opens single-shot Recognition sessions whose
// outcome arrives on channels: zero or more results, at most one error,
// then Done.
package speech

import (
	"context"
	"sync"
)

// Utterance is a piece of text plus the voice used to say it.
type Utterance struct {
	Text     string
	Language string
	Pitch    float64
	Rate     float64
}

// Synthesizer turns utterances into audible speech.
type Synthesizer interface {
	// Speak blocks until the utterance finishes playing or ctx is done.
	Speak(ctx context.Context, u Utterance) error

	// Cancel stops any utterance currently being spoken.
	Cancel()
}

// Options configures one recognition session.
type Options struct {
	Language        string
	InterimResults  bool
	MaxAlternatives int
}

// DefaultOptions returns single-shot options for language: final results
// only, one alternative.
func DefaultOptions(language string) Options {
	return Options{
		Language:        language,
		InterimResults:  false,
		MaxAlternatives: 1,
	}
}

// Result is one recognized transcript.
type Result struct {
	Transcript string
	Confidence float64
	Final      bool
}

// Recognition is one active listening session.
//
// Results and Errors are unbuffered; a send completes only when the
// consumer receives it, so anything sent happens before Done closes.
type Recognition interface {
	Results() <-chan Result
	Errors() <-chan error

	// Done is closed when the session has ended for any reason.
	Done() <-chan struct{}

	// Stop ends the session. Safe to call more than once.
	Stop()
}

// Recognizer starts recognition sessions.
type Recognizer interface {
	Start(ctx context.Context, opts Options) (Recognition, error)
}

// stream is the Recognition shared by the concrete recognizers. The
// producer goroutine calls emit/fail and defers finish.
type stream struct {
	results chan Result
	errs    chan error
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newStream(parent context.Context) *stream {
	ctx, cancel := context.WithCancel(parent)
	return &stream{
		results: make(chan Result),
		errs:    make(chan error),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *stream) Results() <-chan Result { return s.results }
func (s *stream) Errors() <-chan error   { return s.errs }
func (s *stream) Done() <-chan struct{}  { return s.done }
func (s *stream) Stop()                  { s.cancel() }

// emit delivers r unless the session was stopped first.
func (s *stream) emit(r Result) bool {
	select {
	case s.results <- r:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *stream) fail(err error) bool {
	select {
	case s.errs <- err:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *stream) finish() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

var _ Recognition = (*stream)(nil)
