// Package config loads go-callbot configuration.
//
// Values are layered, lowest priority first: built-in defaults, an optional
// callbot.yaml, a .env file, CALLBOT_* environment variables, and finally any
// flags bound onto the viper instance by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultChatURL       = "http://localhost:1601/chat"
	DefaultHTTPAddr      = ":8080"
	DefaultGreeting      = "Hi, I am Tanishk's AI. Ask me anything about his portfolio."
	DefaultLanguage      = "en-US"
	DefaultGreetingPitch = 1.2
	DefaultGreetingRate  = 0.95
	DefaultListenTimeout = 7 * time.Second
	DefaultSpeakerBanner = 2 * time.Second
	DefaultErrorBanner   = 4 * time.Second
	DefaultChatTimeout   = 30 * time.Second

	DefaultCaptureCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"
	DefaultPlayerCommand  = "ffplay -nodisp -autoexit -loglevel quiet"
	DefaultDeepgramModel  = "nova-2"
)

// Provider names accepted in tts.provider and stt.provider.
const (
	ProviderConsole  = "console"
	ProviderOpenAI   = "openai"
	ProviderGoogle   = "google"
	ProviderDeepgram = "deepgram"
)

// EnvPrefix is prepended to every non-secret environment key,
// e.g. chat.url -> CALLBOT_CHAT_URL.
const EnvPrefix = "CALLBOT"

// Voice holds fixed synthesis parameters for one kind of utterance.
type Voice struct {
	Language string
	Pitch    float64
	Rate     float64
}

// Config holds all configuration for a call.
type Config struct {
	HTTPAddr string

	ChatURL     string
	ChatTimeout time.Duration

	GreetingText  string
	GreetingVoice Voice
	ReplyVoice    Voice

	ListenLanguage string
	ListenTimeout  time.Duration

	SpeakerBannerTTL time.Duration
	ErrorBannerTTL   time.Duration

	TTSProvider string
	TTSVoice    string

	STTProvider    string
	STTModel       string
	CaptureCommand string

	PlayerCommand string

	LogLevel string

	// Secrets, read from their conventional environment names.
	OpenAIKey    string
	GoogleAPIKey string
	DeepgramKey  string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("chat.url", DefaultChatURL)
	v.SetDefault("chat.timeout", DefaultChatTimeout)
	v.SetDefault("greeting.text", DefaultGreeting)
	v.SetDefault("greeting.language", DefaultLanguage)
	v.SetDefault("greeting.pitch", DefaultGreetingPitch)
	v.SetDefault("greeting.rate", DefaultGreetingRate)
	v.SetDefault("reply.language", DefaultLanguage)
	v.SetDefault("listen.language", DefaultLanguage)
	v.SetDefault("listen.timeout", DefaultListenTimeout)
	v.SetDefault("banner.speaker", DefaultSpeakerBanner)
	v.SetDefault("banner.error", DefaultErrorBanner)
	v.SetDefault("tts.provider", ProviderConsole)
	v.SetDefault("tts.voice", "")
	v.SetDefault("stt.provider", ProviderConsole)
	v.SetDefault("stt.model", DefaultDeepgramModel)
	v.SetDefault("stt.capture_command", DefaultCaptureCommand)
	v.SetDefault("player.command", DefaultPlayerCommand)
	v.SetDefault("log.level", "info")
}

// Bind wires v to the config file search path and the environment.
// It does not read anything yet.
func Bind(v *viper.Viper) {
	SetDefaults(v)

	v.SetConfigName("callbot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("secrets.openai", "OPENAI_API_KEY")
	_ = v.BindEnv("secrets.google", "GOOGLE_API_KEY")
	_ = v.BindEnv("secrets.deepgram", "DEEPGRAM_API_KEY")
}

// Load reads .env and callbot.yaml (both optional) and returns the resolved Config.
func Load(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	return FromViper(v), nil
}

// FromViper builds a Config from whatever v currently holds.
func FromViper(v *viper.Viper) Config {
	return Config{
		HTTPAddr:    v.GetString("http.addr"),
		ChatURL:     v.GetString("chat.url"),
		ChatTimeout: v.GetDuration("chat.timeout"),

		GreetingText: v.GetString("greeting.text"),
		GreetingVoice: Voice{
			Language: v.GetString("greeting.language"),
			Pitch:    v.GetFloat64("greeting.pitch"),
			Rate:     v.GetFloat64("greeting.rate"),
		},
		ReplyVoice: Voice{
			Language: v.GetString("reply.language"),
			Pitch:    1,
			Rate:     1,
		},

		ListenLanguage: v.GetString("listen.language"),
		ListenTimeout:  v.GetDuration("listen.timeout"),

		SpeakerBannerTTL: v.GetDuration("banner.speaker"),
		ErrorBannerTTL:   v.GetDuration("banner.error"),

		TTSProvider: strings.ToLower(v.GetString("tts.provider")),
		TTSVoice:    v.GetString("tts.voice"),

		STTProvider:    strings.ToLower(v.GetString("stt.provider")),
		STTModel:       v.GetString("stt.model"),
		CaptureCommand: v.GetString("stt.capture_command"),

		PlayerCommand: v.GetString("player.command"),
		LogLevel:      v.GetString("log.level"),

		OpenAIKey:    v.GetString("secrets.openai"),
		GoogleAPIKey: v.GetString("secrets.google"),
		DeepgramKey:  v.GetString("secrets.deepgram"),
	}
}

// Validate checks that the selected providers have what they need.
func (c Config) Validate() error {
	if c.ChatURL == "" {
		return errors.New("config: chat.url is required")
	}
	if c.ListenTimeout <= 0 {
		return fmt.Errorf("config: listen.timeout must be positive, got %v", c.ListenTimeout)
	}
	if c.SpeakerBannerTTL <= 0 || c.ErrorBannerTTL <= 0 {
		return errors.New("config: banner durations must be positive")
	}

	switch c.TTSProvider {
	case ProviderConsole, ProviderGoogle:
		// Google falls back to application default credentials without a key.
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return errors.New("config: OPENAI_API_KEY is required for tts.provider=openai")
		}
	default:
		return fmt.Errorf("config: unknown tts.provider %q", c.TTSProvider)
	}

	switch c.STTProvider {
	case ProviderConsole:
	case ProviderDeepgram:
		if c.DeepgramKey == "" {
			return errors.New("config: DEEPGRAM_API_KEY is required for stt.provider=deepgram")
		}
		if strings.TrimSpace(c.CaptureCommand) == "" {
			return errors.New("config: stt.capture_command is required for stt.provider=deepgram")
		}
	default:
		return fmt.Errorf("config: unknown stt.provider %q", c.STTProvider)
	}

	return nil
}
