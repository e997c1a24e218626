package speech

import (
	"context"
	"sync"
	"time"
)

// MockSynthesizer implements Synthesizer for testing.
type MockSynthesizer struct {
	// SpeakFunc is called when Speak is invoked.
	// If nil, Speak returns nil immediately.
	SpeakFunc func(ctx context.Context, u Utterance) error

	mu          sync.Mutex
	utterances  []Utterance
	cancelCount int
	inflight    canceler
}

// NewMockSynthesizer returns a synthesizer that finishes instantly.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

// BlockingSynthesizer returns a mock whose Speak holds until cancelled.
func BlockingSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		SpeakFunc: func(ctx context.Context, u Utterance) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
}

// Speak records u and calls SpeakFunc.
func (m *MockSynthesizer) Speak(ctx context.Context, u Utterance) error {
	m.mu.Lock()
	m.utterances = append(m.utterances, u)
	m.mu.Unlock()

	ctx, done := m.inflight.track(ctx)
	defer done()

	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, u)
	}
	return nil
}

// Cancel cancels in-flight Speak calls and counts the call.
func (m *MockSynthesizer) Cancel() {
	m.mu.Lock()
	m.cancelCount++
	m.mu.Unlock()
	m.inflight.cancelAll()
}

// Utterances returns everything spoken so far.
func (m *MockSynthesizer) Utterances() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.utterances))
	copy(out, m.utterances)
	return out
}

// CancelCount returns how many times Cancel was called.
func (m *MockSynthesizer) CancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelCount
}

// MockRecognizer implements Recognizer for testing. Each Start returns a
// MockRecognition the test drives by hand.
type MockRecognizer struct {
	// StartErr, if set, is returned by Start.
	StartErr error

	mu       sync.Mutex
	sessions []*MockRecognition
	options  []Options
	started  chan *MockRecognition
}

// NewMockRecognizer creates a mock recognizer.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{started: make(chan *MockRecognition, 64)}
}

// Start records opts and returns a new MockRecognition.
func (m *MockRecognizer) Start(ctx context.Context, opts Options) (Recognition, error) {
	m.mu.Lock()
	m.options = append(m.options, opts)
	if m.StartErr != nil {
		m.mu.Unlock()
		return nil, m.StartErr
	}
	r := newMockRecognition(ctx)
	m.sessions = append(m.sessions, r)
	m.mu.Unlock()

	select {
	case m.started <- r:
	default:
	}
	return r, nil
}

// WaitStarted returns the next started session, or nil after timeout.
func (m *MockRecognizer) WaitStarted(timeout time.Duration) *MockRecognition {
	select {
	case r := <-m.started:
		return r
	case <-time.After(timeout):
		return nil
	}
}

// StartCount returns how many times Start was called.
func (m *MockRecognizer) StartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.options)
}

// LastOptions returns the options of the most recent Start.
func (m *MockRecognizer) LastOptions() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.options) == 0 {
		return Options{}
	}
	return m.options[len(m.options)-1]
}

// MockRecognition is a Recognition driven by the test.
type MockRecognition struct {
	*stream
	stopped chan struct{}
	once    sync.Once
}

func newMockRecognition(ctx context.Context) *MockRecognition {
	r := &MockRecognition{stream: newStream(ctx), stopped: make(chan struct{})}
	go func() {
		<-r.ctx.Done()
		r.finish()
	}()
	return r
}

// Stop ends the session and records that it was stopped.
func (r *MockRecognition) Stop() {
	r.once.Do(func() { close(r.stopped) })
	r.stream.Stop()
}

// Stopped reports whether Stop was called.
func (r *MockRecognition) Stopped() bool {
	select {
	case <-r.stopped:
		return true
	default:
		return false
	}
}

// Say delivers a final transcript. It reports false if the session ended
// before the consumer took it.
func (r *MockRecognition) Say(transcript string) bool {
	return r.emit(Result{Transcript: transcript, Confidence: 1, Final: true})
}

// Fail delivers err. It reports false if the session ended first.
func (r *MockRecognition) Fail(err error) bool {
	return r.fail(err)
}

// End finishes the session without a result.
func (r *MockRecognition) End() {
	r.finish()
}

var (
	_ Synthesizer = (*MockSynthesizer)(nil)
	_ Recognizer  = (*MockRecognizer)(nil)
	_ Recognition = (*MockRecognition)(nil)
)
