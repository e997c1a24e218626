package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teslashibe/go-callbot/pkg/tts"
)

// Player plays a synthesized audio buffer, blocking until it is done.
type Player interface {
	Play(ctx context.Context, audio *tts.AudioResult) error
}

// CommandPlayer pipes audio into an external playback command on stdin.
// Cancelling ctx kills the command.
type CommandPlayer struct {
	command []string
	logger  *slog.Logger
}

// NewCommandPlayer parses a command line such as
// "ffplay -nodisp -autoexit -loglevel quiet".
func NewCommandPlayer(command string, logger *slog.Logger) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("speech: empty player command")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPlayer{
		command: fields,
		logger:  logger.With("component", "speech.player"),
	}, nil
}

// Play runs the command with the audio on stdin.
func (p *CommandPlayer) Play(ctx context.Context, audio *tts.AudioResult) error {
	if audio == nil || len(audio.Audio) == 0 {
		return nil
	}

	args := append(p.command[1:len(p.command):len(p.command)], p.formatArgs(audio.Format)...)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Stdin = bytes.NewReader(audio.Audio)

	p.logger.Debug("playing audio",
		"bytes", len(audio.Audio),
		"encoding", audio.Format.Encoding,
		"duration", audio.Duration,
	)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech: play: %w", err)
	}
	return nil
}

// formatArgs describes raw PCM to players that cannot sniff it.
// Containers like WAV and MP3 only need the stdin marker.
func (p *CommandPlayer) formatArgs(f tts.AudioFormat) []string {
	rate := f.SampleRate
	if rate == 0 {
		rate = tts.SampleRateFromEncoding(f.Encoding)
	}
	channels := max(f.Channels, 1)

	switch filepath.Base(p.command[0]) {
	case "ffplay":
		if f.Encoding.IsRawPCM() {
			return []string{"-f", "s16le", "-ar", strconv.Itoa(rate), "-ch_layout", channelLayout(channels), "-"}
		}
		return []string{"-"}
	case "aplay":
		if f.Encoding.IsRawPCM() {
			return []string{"-f", "S16_LE", "-r", strconv.Itoa(rate), "-c", strconv.Itoa(channels), "-"}
		}
		return []string{"-"}
	default:
		return nil
	}
}

func channelLayout(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}

var _ Player = (*CommandPlayer)(nil)
