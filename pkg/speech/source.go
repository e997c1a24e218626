package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// AudioSource opens a stream of raw microphone audio
// (16-bit little-endian mono PCM).
type AudioSource interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// CommandSource captures audio from the stdout of an external command such
// as "arecord -q -f S16_LE -r 16000 -c 1 -t raw".
type CommandSource struct {
	command []string
}

// NewCommandSource parses a capture command line.
func NewCommandSource(command string) (*CommandSource, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("speech: empty capture command")
	}
	return &CommandSource{command: fields}, nil
}

// Open starts the command. Closing the reader kills it.
func (c *CommandSource) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, c.command[0], c.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("speech: capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: start capture: %v", ErrNotAllowed, err)
		}
		return nil, fmt.Errorf("speech: start capture: %w", err)
	}
	return &commandReader{ReadCloser: stdout, cmd: cmd}, nil
}

type commandReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *commandReader) Close() error {
	if r.cmd.Process != nil {
		_ = r.cmd.Process.Kill()
	}
	_ = r.cmd.Wait()
	return nil
}

// ReaderSource serves a fixed reader once, e.g. a recorded file.
type ReaderSource struct {
	R io.Reader
}

// Open returns the wrapped reader.
func (r ReaderSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(r.R), nil
}

var (
	_ AudioSource = (*CommandSource)(nil)
	_ AudioSource = ReaderSource{}
)
