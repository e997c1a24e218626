package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ConsoleRecognizer treats each line read from an input as one spoken
// utterance. A blank line is silence.
//
// A single reader goroutine is shared across sessions, so lines typed while
// no session is open wait for the next one.
type ConsoleRecognizer struct {
	in     io.Reader
	prompt io.Writer
	logger *slog.Logger

	once  sync.Once
	lines chan string
}

// NewConsoleRecognizer reads utterances from in. If prompt is non-nil a
// listening cue is written to it when a session starts.
func NewConsoleRecognizer(in io.Reader, prompt io.Writer, logger *slog.Logger) *ConsoleRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleRecognizer{
		in:     in,
		prompt: prompt,
		logger: logger.With("component", "speech.console"),
		lines:  make(chan string),
	}
}

// Start opens a session that completes with the next input line.
func (c *ConsoleRecognizer) Start(ctx context.Context, opts Options) (Recognition, error) {
	c.once.Do(func() { go c.readLoop() })

	if c.prompt != nil {
		fmt.Fprintln(c.prompt, "🎤 listening... type your question and press enter")
	}

	s := newStream(ctx)
	go func() {
		defer s.finish()

		select {
		case line, ok := <-c.lines:
			if !ok {
				s.fail(ErrInputClosed)
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				s.fail(ErrNoSpeech)
				return
			}
			if !s.emit(Result{Transcript: line, Confidence: 1, Final: true}) {
				c.logger.Debug("input dropped, listening already stopped", "line", line)
			}
		case <-s.ctx.Done():
		}
	}()
	return s, nil
}

func (c *ConsoleRecognizer) readLoop() {
	defer close(c.lines)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("console input failed", "error", err)
	}
}

var _ Recognizer = (*ConsoleRecognizer)(nil)
