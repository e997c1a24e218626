package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg := FromViper(v)

	if cfg.ChatURL != "http://localhost:1601/chat" {
		t.Errorf("unexpected chat url %q", cfg.ChatURL)
	}
	if cfg.ListenTimeout != 7*time.Second {
		t.Errorf("expected 7s listen timeout, got %v", cfg.ListenTimeout)
	}
	if cfg.SpeakerBannerTTL != 2*time.Second {
		t.Errorf("expected 2s speaker banner, got %v", cfg.SpeakerBannerTTL)
	}
	if cfg.ErrorBannerTTL != 4*time.Second {
		t.Errorf("expected 4s error banner, got %v", cfg.ErrorBannerTTL)
	}
	if cfg.GreetingVoice.Pitch != 1.2 || cfg.GreetingVoice.Rate != 0.95 {
		t.Errorf("unexpected greeting voice %+v", cfg.GreetingVoice)
	}
	if cfg.GreetingVoice.Language != "en-US" || cfg.ReplyVoice.Language != "en-US" {
		t.Errorf("expected en-US voices, got %+v / %+v", cfg.GreetingVoice, cfg.ReplyVoice)
	}
	if cfg.ReplyVoice.Pitch != 1 || cfg.ReplyVoice.Rate != 1 {
		t.Errorf("reply voice should use engine defaults, got %+v", cfg.ReplyVoice)
	}
	if !strings.Contains(cfg.GreetingText, "Ask me anything") {
		t.Errorf("unexpected greeting %q", cfg.GreetingText)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CALLBOT_CHAT_URL", "http://example.test/chat")
	t.Setenv("CALLBOT_LISTEN_TIMEOUT", "3s")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	v := viper.New()
	Bind(v)
	cfg := FromViper(v)

	if cfg.ChatURL != "http://example.test/chat" {
		t.Errorf("expected env chat url, got %q", cfg.ChatURL)
	}
	if cfg.ListenTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.ListenTimeout)
	}
	if cfg.OpenAIKey != "sk-test" {
		t.Errorf("expected openai key from env, got %q", cfg.OpenAIKey)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		v := viper.New()
		SetDefaults(v)
		return FromViper(v)
	}

	t.Run("openai needs key", func(t *testing.T) {
		cfg := base()
		cfg.TTSProvider = ProviderOpenAI
		if err := cfg.Validate(); err == nil {
			t.Error("expected error without OPENAI_API_KEY")
		}
		cfg.OpenAIKey = "k"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("deepgram needs key", func(t *testing.T) {
		cfg := base()
		cfg.STTProvider = ProviderDeepgram
		if err := cfg.Validate(); err == nil {
			t.Error("expected error without DEEPGRAM_API_KEY")
		}
	})

	t.Run("unknown providers rejected", func(t *testing.T) {
		cfg := base()
		cfg.TTSProvider = "festival"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown tts provider")
		}
		cfg = base()
		cfg.STTProvider = "whisper"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown stt provider")
		}
	})

	t.Run("non-positive timeout rejected", func(t *testing.T) {
		cfg := base()
		cfg.ListenTimeout = 0
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for zero listen timeout")
		}
	})
}
