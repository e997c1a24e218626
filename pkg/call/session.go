// Package call runs one voice call: greet the user, listen for a question,
// ask the chat backend and speak the reply.
//
// A Session is an explicit state machine (see State). Every asynchronous
// outcome (recognition result, error, timeout, chat reply, timer) is
// checked against the current turn generation and state before it is
// applied, so anything that arrives after the turn moved on or the call
// ended is dropped.
package call

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-callbot/pkg/chat"
	"github.com/teslashibe/go-callbot/pkg/elapsed"
	"github.com/teslashibe/go-callbot/pkg/metrics"
	"github.com/teslashibe/go-callbot/pkg/speech"
)

// Voice is the fixed voice used for one kind of utterance.
type Voice struct {
	Language string
	Pitch    float64
	Rate     float64
}

// Config holds session behaviour.
type Config struct {
	Greeting      string
	GreetingVoice Voice
	ReplyVoice    Voice

	ListenLanguage string
	ListenTimeout  time.Duration

	SpeakerBannerTTL time.Duration
	ErrorBannerTTL   time.Duration
}

// DefaultConfig returns the stock greeting, voices and timeouts.
func DefaultConfig() Config {
	return Config{
		Greeting:         "Hi, I am Tanishk's AI. Ask me anything about his portfolio.",
		GreetingVoice:    Voice{Language: "en-US", Pitch: 1.2, Rate: 0.95},
		ReplyVoice:       Voice{Language: "en-US", Pitch: 1, Rate: 1},
		ListenLanguage:   "en-US",
		ListenTimeout:    7 * time.Second,
		SpeakerBannerTTL: 2 * time.Second,
		ErrorBannerTTL:   4 * time.Second,
	}
}

// Deps are the collaborators a session drives.
type Deps struct {
	Synthesizer speech.Synthesizer
	Recognizer  speech.Recognizer
	Chat        chat.Replier

	// Elapsed is owned by the caller. The session starts it and resets it
	// on End.
	Elapsed *elapsed.Counter

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Session is one active call.
type Session struct {
	id     string
	cfg    Config
	deps   Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	started       bool
	gen           uint64
	transcript    string
	message       string
	apiError      string
	speakerBanner bool
	speakerSeq    uint64
	speakerTimer  *time.Timer
	errorSeq      uint64
	errorTimer    *time.Timer
	recognition   speech.Recognition
	speakCancel   context.CancelFunc
	stopWatch     func() bool

	publishMu sync.Mutex
	observers []func(Snapshot)

	wg sync.WaitGroup
}

// New creates an idle session. Zero durations in cfg fall back to
// DefaultConfig.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Synthesizer == nil {
		return nil, errors.New("call: synthesizer required")
	}
	if deps.Recognizer == nil {
		return nil, errors.New("call: recognizer required")
	}
	if deps.Chat == nil {
		return nil, errors.New("call: chat client required")
	}
	if deps.Elapsed == nil {
		deps.Elapsed = elapsed.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.ListenTimeout <= 0 {
		cfg.ListenTimeout = def.ListenTimeout
	}
	if cfg.SpeakerBannerTTL <= 0 {
		cfg.SpeakerBannerTTL = def.SpeakerBannerTTL
	}
	if cfg.ErrorBannerTTL <= 0 {
		cfg.ErrorBannerTTL = def.ErrorBannerTTL
	}
	if cfg.ListenLanguage == "" {
		cfg.ListenLanguage = def.ListenLanguage
	}
	if cfg.Greeting == "" {
		cfg.Greeting = def.Greeting
	}
	if cfg.GreetingVoice.Language == "" {
		cfg.GreetingVoice.Language = def.GreetingVoice.Language
	}
	if cfg.ReplyVoice.Language == "" {
		cfg.ReplyVoice.Language = def.ReplyVoice.Language
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "call", "session", id),
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
	}, nil
}

// ID returns the session's random identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Observe registers fn to receive a snapshot after every change.
// Snapshots are delivered in order, one at a time. fn must not call back
// into the session.
func (s *Session) Observe(fn func(Snapshot)) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.observers = append(s.observers, fn)
}

// Start activates the call: it starts the elapsed counter, speaks the
// greeting once and then listens. Cancelling ctx ends the call.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	if err := s.transitionLocked(StateGreeting); err != nil {
		s.mu.Unlock()
		return err
	}
	speakCtx := s.beginSpeechLocked()
	s.deps.Elapsed.Start()
	s.wg.Add(1)
	s.stopWatch = context.AfterFunc(ctx, func() { _, _ = s.End() })
	s.mu.Unlock()

	s.deps.Metrics.RecordSessionStart()
	s.logger.Info("call started")
	s.publish()

	go s.greet(speakCtx)
	return nil
}

func (s *Session) greet(ctx context.Context) {
	defer s.wg.Done()

	err := s.deps.Synthesizer.Speak(ctx, s.utterance(s.cfg.Greeting, s.cfg.GreetingVoice))
	if err != nil && ctx.Err() == nil {
		s.deps.Metrics.RecordSynthesisFailure()
		s.logger.Warn("greeting failed", "error", err)
	}

	s.mu.Lock()
	greeting := s.state == StateGreeting
	s.mu.Unlock()
	if !greeting {
		return
	}

	if err := s.StartListening(); err != nil {
		s.logger.Debug("listen after greeting skipped", "error", err)
	}
}

// StartListening opens a recognition session with the listen timeout.
// From greeting or speaking it cuts the current speech first.
//
// Failures to start recognition are reported through the snapshot
// message, not the returned error.
func (s *Session) StartListening() error {
	s.mu.Lock()
	switch {
	case s.state == StateEnded:
		s.mu.Unlock()
		return ErrSessionEnded
	case !s.started:
		s.mu.Unlock()
		return ErrNotStarted
	case s.state == StateListening:
		s.mu.Unlock()
		return ErrAlreadyListening
	case s.state == StateAwaitingReply:
		s.mu.Unlock()
		return ErrBusy
	}
	if err := s.transitionLocked(StateListening); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cancelSpeechLocked()
	s.gen++
	gen := s.gen
	s.mu.Unlock()
	s.publish()

	rec, err := s.deps.Recognizer.Start(s.ctx, speech.DefaultOptions(s.cfg.ListenLanguage))
	if err != nil {
		s.recognitionFailed(gen, err)
		return nil
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateListening {
		s.mu.Unlock()
		rec.Stop()
		return nil
	}
	s.recognition = rec
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("listening", "turn", gen)
	go s.listen(gen, rec)
	return nil
}

// listen consumes exactly one outcome of a recognition session.
func (s *Session) listen(gen uint64, rec speech.Recognition) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.ListenTimeout)
	defer timer.Stop()

	for {
		select {
		case res := <-rec.Results():
			if !res.Final {
				continue
			}
			rec.Stop()
			s.handleTranscript(gen, res.Transcript)
		case err := <-rec.Errors():
			rec.Stop()
			s.recognitionFailed(gen, err)
		case <-rec.Done():
			s.recognitionEnded(gen)
		case <-timer.C:
			rec.Stop()
			s.micTimedOut(gen)
		case <-s.ctx.Done():
			rec.Stop()
		}
		return
	}
}

func (s *Session) handleTranscript(gen uint64, transcript string) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.recognition = nil
	s.transcript = transcript
	if err := s.transitionLocked(StateAwaitingReply); err != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.publish()

	s.deps.Metrics.RecordTurn()
	s.logger.Info("user said", "turn", gen, "transcript", transcript)

	start := time.Now()
	reply, err := s.deps.Chat.Ask(s.ctx, transcript)
	latency := time.Since(start)

	s.mu.Lock()
	if s.gen != gen || s.state != StateAwaitingReply {
		s.mu.Unlock()
		s.deps.Metrics.RecordChat(metrics.ResultCancelled, latency)
		s.logger.Debug("reply dropped", "turn", gen)
		return
	}

	if err != nil {
		s.message = MsgFetchFailed
		s.apiError = MsgAPIError
		_ = s.transitionLocked(StateError)
		s.armErrorTimerLocked()
		s.mu.Unlock()
		s.publish()

		s.deps.Metrics.RecordChat(metrics.ResultError, latency)
		s.logger.Error("chat request failed", "turn", gen, "error", err, "latency", latency)
		return
	}

	s.message = reply
	s.clearErrorLocked()
	_ = s.transitionLocked(StateSpeaking)
	speakCtx := s.beginSpeechLocked()
	s.mu.Unlock()
	s.publish()

	s.deps.Metrics.RecordChat(metrics.ResultOK, latency)
	s.logger.Info("bot replied", "turn", gen, "chars", len(reply), "latency", latency)

	err = s.deps.Synthesizer.Speak(speakCtx, s.utterance(reply, s.cfg.ReplyVoice))
	if err != nil && speakCtx.Err() == nil {
		s.deps.Metrics.RecordSynthesisFailure()
		s.logger.Warn("reply speech failed", "turn", gen, "error", err)
	}

	s.mu.Lock()
	if s.gen != gen || s.state != StateSpeaking {
		s.mu.Unlock()
		return
	}
	s.speakCancel = nil
	_ = s.transitionLocked(StateIdle)
	s.mu.Unlock()
	s.publish()
}

func (s *Session) recognitionFailed(gen uint64, err error) {
	kind := speech.Classify(err)

	s.mu.Lock()
	if s.gen != gen || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.recognition = nil

	if kind == speech.KindAborted {
		_ = s.transitionLocked(StateIdle)
		s.mu.Unlock()
		s.publish()
		return
	}

	switch kind {
	case speech.KindNotAllowed:
		s.message = MsgMicDenied
	case speech.KindNoSpeech:
		s.message = MsgNoSpeech
	default:
		s.message = MsgMicError
	}
	_ = s.transitionLocked(StateError)
	s.armErrorTimerLocked()
	s.mu.Unlock()
	s.publish()

	s.deps.Metrics.RecordRecognitionError(kind.String())
	s.logger.Warn("recognition failed", "turn", gen, "kind", kind, "error", err)
}

func (s *Session) recognitionEnded(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.recognition = nil
	_ = s.transitionLocked(StateIdle)
	s.mu.Unlock()
	s.publish()

	s.logger.Debug("recognition ended without result", "turn", gen)
}

func (s *Session) micTimedOut(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.recognition = nil
	s.message = MsgMicTimeout
	_ = s.transitionLocked(StateError)
	s.armErrorTimerLocked()
	s.mu.Unlock()
	s.publish()

	s.deps.Metrics.RecordMicTimeout()
	s.logger.Info("listening stopped", "turn", gen, "error", ErrMicTimeout, "timeout", s.cfg.ListenTimeout)
}

// ToggleSpeaker flips the speaker banner. Turning it on schedules it to
// hide after the speaker TTL; turning it off hides it immediately.
func (s *Session) ToggleSpeaker() error {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return ErrSessionEnded
	}

	s.speakerSeq++
	if s.speakerTimer != nil {
		s.speakerTimer.Stop()
		s.speakerTimer = nil
	}
	s.speakerBanner = !s.speakerBanner
	if s.speakerBanner {
		seq := s.speakerSeq
		s.speakerTimer = time.AfterFunc(s.cfg.SpeakerBannerTTL, func() { s.hideSpeakerBanner(seq) })
	}
	s.mu.Unlock()

	s.deps.Metrics.RecordSpeakerToggle()
	s.publish()
	return nil
}

func (s *Session) hideSpeakerBanner(seq uint64) {
	s.mu.Lock()
	if s.speakerSeq != seq || s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.speakerBanner = false
	s.speakerTimer = nil
	s.mu.Unlock()
	s.publish()
}

// armErrorTimerLocked clears the API error after the error TTL and
// returns an errored session to idle.
func (s *Session) armErrorTimerLocked() {
	s.errorSeq++
	seq := s.errorSeq
	if s.errorTimer != nil {
		s.errorTimer.Stop()
	}
	s.errorTimer = time.AfterFunc(s.cfg.ErrorBannerTTL, func() { s.expireError(seq) })
}

// clearErrorLocked drops the API error and disarms its timer.
func (s *Session) clearErrorLocked() {
	s.errorSeq++
	s.apiError = ""
	if s.errorTimer != nil {
		s.errorTimer.Stop()
		s.errorTimer = nil
	}
}

func (s *Session) expireError(seq uint64) {
	s.mu.Lock()
	if s.errorSeq != seq || s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.apiError = ""
	s.errorTimer = nil
	if s.state == StateError {
		_ = s.transitionLocked(StateIdle)
	}
	s.mu.Unlock()
	s.publish()
}

// End tears the call down: speech, recognition, the chat request in
// flight and all timers are cancelled, and the elapsed counter is reset.
// It returns the timer text as it read before the reset.
func (s *Session) End() (string, error) {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return "", ErrSessionEnded
	}
	timerText := s.deps.Elapsed.String()
	wasStarted := s.started

	_ = s.transitionLocked(StateEnded)
	s.gen++
	rec := s.recognition
	s.recognition = nil
	s.cancelSpeechLocked()
	s.speakerSeq++
	if s.speakerTimer != nil {
		s.speakerTimer.Stop()
		s.speakerTimer = nil
	}
	s.speakerBanner = false
	s.clearErrorLocked()
	stopWatch := s.stopWatch
	s.stopWatch = nil
	s.mu.Unlock()

	if rec != nil {
		rec.Stop()
	}
	s.deps.Synthesizer.Cancel()
	s.cancel()
	if stopWatch != nil {
		stopWatch()
	}
	s.deps.Elapsed.Reset()

	if wasStarted {
		s.deps.Metrics.RecordSessionEnd()
	}
	s.logger.Info("call ended", "elapsed", timerText)
	s.publish()
	return timerText, nil
}

// Wait blocks until every goroutine the session started has returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) utterance(text string, v Voice) speech.Utterance {
	return speech.Utterance{Text: text, Language: v.Language, Pitch: v.Pitch, Rate: v.Rate}
}

// beginSpeechLocked returns a context for the next utterance that
// cancelSpeechLocked can cut short.
func (s *Session) beginSpeechLocked() context.Context {
	ctx, cancel := context.WithCancel(s.ctx)
	s.speakCancel = cancel
	return ctx
}

func (s *Session) cancelSpeechLocked() {
	if s.speakCancel != nil {
		s.speakCancel()
		s.speakCancel = nil
	}
}

func (s *Session) transitionLocked(to State) error {
	from := s.state
	if !from.CanTransition(to) {
		err := &TransitionError{From: from, To: to}
		s.logger.Warn("transition rejected", "error", err)
		return err
	}
	s.state = to
	s.deps.Metrics.RecordTransition(from.String(), to.String())
	s.logger.Debug("state changed", "from", from, "to", to)
	return nil
}

func (s *Session) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.observers {
		fn(snap)
	}
}
