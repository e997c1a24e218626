package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-callbot/internal/httpc"
)

const providerOpenAI = "openai"

// OpenAI voice options
const (
	VoiceAlloy   = string(openai.VoiceAlloy)
	VoiceEcho    = string(openai.VoiceEcho)
	VoiceFable   = string(openai.VoiceFable)
	VoiceOnyx    = string(openai.VoiceOnyx)
	VoiceNova    = string(openai.VoiceNova)
	VoiceShimmer = string(openai.VoiceShimmer)
)

// OpenAI model options
const (
	ModelTTS1   = string(openai.TTSModel1)
	ModelTTS1HD = string(openai.TTSModel1HD)
)

// OpenAI speed bounds.
const (
	openAIMinSpeed = 0.25
	openAIMaxSpeed = 4.0
)

// OpenAI implements Provider for OpenAI TTS.
// The API has no pitch control; Request.Pitch is ignored.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceShimmer
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpc.NewClient(cfg.Timeout)

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Synthesize requests raw 24kHz PCM for the request text.
func (o *OpenAI) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if req.Text == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	req = req.Normalized()
	start := time.Now()

	voice := o.config.VoiceID
	if req.Voice != "" {
		voice = req.Voice
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.config.ModelID),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          clamp(req.Rate, openAIMinSpeed, openAIMaxSpeed),
	})
	if err != nil {
		return nil, o.mapError(err)
	}
	defer resp.Close()

	latency := time.Since(start).Milliseconds()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, WrapError(providerOpenAI, fmt.Errorf("read response: %w", err))
	}

	o.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", voice,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   EncodingPCM24,
			SampleRate: 24000,
			Channels:   1,
			BitDepth:   16,
		},
		Duration:  PCMDuration(len(audio), 24000),
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Health lists models to verify the key.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.ListModels(ctx); err != nil {
		return o.mapError(err)
	}
	return nil
}

// Close is a no-op; the client holds no resources.
func (o *OpenAI) Close() error {
	return nil
}

func (o *OpenAI) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   providerOpenAI,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Provider:   providerOpenAI,
		}
	}

	return WrapError(providerOpenAI, err)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var _ Provider = (*OpenAI)(nil)
