package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/teslashibe/go-callbot/internal/config"
	"github.com/teslashibe/go-callbot/pkg/speech"
	"github.com/teslashibe/go-callbot/pkg/tts"
)

// consoleCharDelay approximates speaking time for printed utterances.
const consoleCharDelay = 40 * time.Millisecond

// newProvider builds the configured TTS provider. When credentials for the
// other cloud provider are present it is chained in as a fallback.
func newProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) (tts.Provider, error) {
	var providers []tts.Provider

	switch cfg.TTSProvider {
	case config.ProviderOpenAI:
		p, err := newOpenAI(cfg, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
		if cfg.GoogleAPIKey != "" {
			if g, err := newGoogle(ctx, cfg, logger); err == nil {
				providers = append(providers, g)
			} else {
				logger.Warn("google fallback unavailable", "error", err)
			}
		}
	case config.ProviderGoogle:
		g, err := newGoogle(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, g)
		if cfg.OpenAIKey != "" {
			if p, err := newOpenAI(cfg, logger); err == nil {
				providers = append(providers, p)
			} else {
				logger.Warn("openai fallback unavailable", "error", err)
			}
		}
	default:
		return nil, fmt.Errorf("tts provider %q has no audio backend", cfg.TTSProvider)
	}

	if len(providers) == 1 {
		return providers[0], nil
	}
	return tts.NewChain(logger, providers...)
}

func newOpenAI(cfg config.Config, logger *slog.Logger) (*tts.OpenAI, error) {
	return tts.NewOpenAI(
		tts.WithAPIKey(cfg.OpenAIKey),
		tts.WithVoice(cfg.TTSVoice),
		tts.WithLogger(logger),
	)
}

func newGoogle(ctx context.Context, cfg config.Config, logger *slog.Logger) (*tts.Google, error) {
	opts := []tts.Option{tts.WithLogger(logger)}
	if cfg.GoogleAPIKey != "" {
		opts = append(opts, tts.WithAPIKey(cfg.GoogleAPIKey))
	}
	if cfg.TTSProvider == config.ProviderGoogle {
		opts = append(opts, tts.WithVoice(cfg.TTSVoice))
	}
	return tts.NewGoogle(ctx, opts...)
}

// newSynthesizer returns the speech output for cfg. The console provider
// prints utterances instead of playing audio. The returned close func
// releases the provider.
func newSynthesizer(ctx context.Context, cfg config.Config, out io.Writer, logger *slog.Logger) (speech.Synthesizer, func() error, error) {
	if cfg.TTSProvider == config.ProviderConsole {
		return speech.NewConsoleSynthesizer(out, consoleCharDelay), func() error { return nil }, nil
	}

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	player, err := speech.NewCommandPlayer(cfg.PlayerCommand, logger)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}
	return speech.NewTTSSynthesizer(provider, player, logger), provider.Close, nil
}

// newRecognizer returns the speech input for cfg.
func newRecognizer(cfg config.Config, in io.Reader, prompt io.Writer, logger *slog.Logger) (speech.Recognizer, error) {
	switch cfg.STTProvider {
	case config.ProviderConsole:
		return speech.NewConsoleRecognizer(in, prompt, logger), nil
	case config.ProviderDeepgram:
		source, err := speech.NewCommandSource(cfg.CaptureCommand)
		if err != nil {
			return nil, err
		}
		return speech.NewDeepgram(speech.DeepgramConfig{
			APIKey: cfg.DeepgramKey,
			Model:  cfg.STTModel,
			Source: source,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.STTProvider)
	}
}
