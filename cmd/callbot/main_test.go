package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/teslashibe/go-callbot/internal/config"
	"github.com/teslashibe/go-callbot/internal/log"
	"github.com/teslashibe/go-callbot/pkg/speech"
	"github.com/teslashibe/go-callbot/pkg/tts"
)

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	vv := viper.New()
	config.SetDefaults(vv)
	return config.FromViper(vv)
}

func TestSessionConfig(t *testing.T) {
	cfg := defaultConfig(t)
	sc := sessionConfig(cfg)

	if sc.Greeting != config.DefaultGreeting {
		t.Errorf("unexpected greeting %q", sc.Greeting)
	}
	if sc.GreetingVoice.Pitch != 1.2 || sc.GreetingVoice.Rate != 0.95 || sc.GreetingVoice.Language != "en-US" {
		t.Errorf("unexpected greeting voice %+v", sc.GreetingVoice)
	}
	if sc.ListenTimeout != config.DefaultListenTimeout {
		t.Errorf("unexpected listen timeout %v", sc.ListenTimeout)
	}
	if sc.SpeakerBannerTTL != config.DefaultSpeakerBanner || sc.ErrorBannerTTL != config.DefaultErrorBanner {
		t.Errorf("unexpected banner durations %v %v", sc.SpeakerBannerTTL, sc.ErrorBannerTTL)
	}
}

func TestConsoleBackends(t *testing.T) {
	cfg := defaultConfig(t)
	logger := log.Discard()

	t.Run("synthesizer", func(t *testing.T) {
		var out bytes.Buffer
		synth, closeFn, err := newSynthesizer(context.Background(), cfg, &out, logger)
		if err != nil {
			t.Fatalf("newSynthesizer: %v", err)
		}
		defer closeFn()
		if _, ok := synth.(*speech.ConsoleSynthesizer); !ok {
			t.Errorf("expected console synthesizer, got %T", synth)
		}
	})

	t.Run("recognizer", func(t *testing.T) {
		rec, err := newRecognizer(cfg, strings.NewReader(""), &bytes.Buffer{}, logger)
		if err != nil {
			t.Fatalf("newRecognizer: %v", err)
		}
		if _, ok := rec.(*speech.ConsoleRecognizer); !ok {
			t.Errorf("expected console recognizer, got %T", rec)
		}
	})

	t.Run("unknown recognizer", func(t *testing.T) {
		bad := cfg
		bad.STTProvider = "whisper"
		if _, err := newRecognizer(bad, strings.NewReader(""), &bytes.Buffer{}, logger); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("deepgram without key", func(t *testing.T) {
		dg := cfg
		dg.STTProvider = config.ProviderDeepgram
		_, err := newRecognizer(dg, strings.NewReader(""), &bytes.Buffer{}, logger)
		if !errors.Is(err, speech.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestNewProvider(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.TTSProvider = config.ProviderOpenAI
	cfg.OpenAIKey = "sk-test"

	p, err := newProvider(context.Background(), cfg, log.Discard())
	if err != nil {
		t.Fatalf("newProvider: %v", err)
	}
	if _, ok := p.(*tts.OpenAI); !ok {
		t.Errorf("expected a single OpenAI provider, got %T", p)
	}

	t.Run("google fallback is chained", func(t *testing.T) {
		withGoogle := cfg
		withGoogle.GoogleAPIKey = "g-test"
		p, err := newProvider(context.Background(), withGoogle, log.Discard())
		if err != nil {
			t.Fatalf("newProvider: %v", err)
		}
		chain, ok := p.(*tts.Chain)
		if !ok {
			t.Fatalf("expected chain, got %T", p)
		}
		if len(chain.Providers()) != 2 {
			t.Errorf("expected 2 providers, got %d", len(chain.Providers()))
		}
	})
}

type listingMock struct {
	*tts.Mock
}

func (listingMock) Voices(ctx context.Context, language string) ([]tts.VoiceInfo, error) {
	return []tts.VoiceInfo{{Name: "en-US-Neural2-F", Languages: []string{language}, Gender: "FEMALE"}}, nil
}

func TestListVoices(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.TTSProvider = config.ProviderGoogle
	cfg.TTSVoice = "en-US-Neural2-F"

	t.Run("prints voices", func(t *testing.T) {
		var out bytes.Buffer
		if err := listVoices(context.Background(), &out, listingMock{tts.NewMock()}, cfg); err != nil {
			t.Fatalf("listVoices: %v", err)
		}
		got := out.String()
		for _, want := range []string{"google is reachable", "configured voice: en-US-Neural2-F", "FEMALE"} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("health failure", func(t *testing.T) {
		mock := tts.NewMock()
		mock.HealthFunc = func(context.Context) error { return tts.ErrProviderUnavailable }
		err := listVoices(context.Background(), &bytes.Buffer{}, mock, cfg)
		if !errors.Is(err, tts.ErrProviderUnavailable) {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})
}
