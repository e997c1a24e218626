package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-callbot/pkg/tts"
)

// canceler tracks the cancel funcs of in-flight Speak calls.
type canceler struct {
	mu      sync.Mutex
	next    int
	cancels map[int]context.CancelFunc
}

func (c *canceler) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancels == nil {
		c.cancels = make(map[int]context.CancelFunc)
	}
	id := c.next
	c.next++
	c.cancels[id] = cancel
	c.mu.Unlock()

	return ctx, func() {
		c.mu.Lock()
		delete(c.cancels, id)
		c.mu.Unlock()
		cancel()
	}
}

func (c *canceler) cancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.cancels {
		cancel()
	}
}

// TTSSynthesizer speaks through a tts.Provider and a Player.
type TTSSynthesizer struct {
	provider tts.Provider
	player   Player
	logger   *slog.Logger
	inflight canceler
}

// NewTTSSynthesizer creates a synthesizer from a provider and player.
func NewTTSSynthesizer(provider tts.Provider, player Player, logger *slog.Logger) *TTSSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTSSynthesizer{
		provider: provider,
		player:   player,
		logger:   logger.With("component", "speech.tts"),
	}
}

// Speak synthesizes u and plays it.
func (s *TTSSynthesizer) Speak(ctx context.Context, u Utterance) error {
	ctx, done := s.inflight.track(ctx)
	defer done()

	audio, err := s.provider.Synthesize(ctx, tts.Request{
		Text:     u.Text,
		Language: u.Language,
		Pitch:    u.Pitch,
		Rate:     u.Rate,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech: synthesize: %w", err)
	}

	s.logger.Debug("speaking", "chars", len(u.Text), "duration", audio.Duration)
	return s.player.Play(ctx, audio)
}

// Cancel stops every utterance in flight.
func (s *TTSSynthesizer) Cancel() {
	s.inflight.cancelAll()
}

// ConsoleSynthesizer writes utterances to a writer and holds for a
// speaking time proportional to their length.
type ConsoleSynthesizer struct {
	out      io.Writer
	perChar  time.Duration
	mu       sync.Mutex
	inflight canceler
}

// NewConsoleSynthesizer creates a console synthesizer. perChar is the
// simulated speaking time per character at rate 1.
func NewConsoleSynthesizer(out io.Writer, perChar time.Duration) *ConsoleSynthesizer {
	return &ConsoleSynthesizer{out: out, perChar: perChar}
}

// Speak prints u and waits out its simulated duration.
func (c *ConsoleSynthesizer) Speak(ctx context.Context, u Utterance) error {
	ctx, done := c.inflight.track(ctx)
	defer done()

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}

	c.mu.Lock()
	_, err := fmt.Fprintf(c.out, "🔊 [%s] %s\n", u.Language, u.Text)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("speech: console: %w", err)
	}

	d := time.Duration(float64(c.perChar) * float64(len(u.Text)) / rate)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops every utterance in flight.
func (c *ConsoleSynthesizer) Cancel() {
	c.inflight.cancelAll()
}

var (
	_ Synthesizer = (*TTSSynthesizer)(nil)
	_ Synthesizer = (*ConsoleSynthesizer)(nil)
)
