package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

const providerGoogle = "google"

// Google voice and encoding defaults.
const (
	GoogleDefaultVoice = "en-US-Neural2-F"
	googleSampleRate   = 24000
	wavHeaderSize      = 44
)

// Google pitch bounds in semitones and rate bounds as a multiplier.
const (
	googleMinPitch = -20.0
	googleMaxPitch = 20.0
	googleMinRate  = 0.25
	googleMaxRate  = 4.0
)

// Google implements Provider for Google Cloud Text-to-Speech.
// It authenticates with an API key when one is configured and falls back
// to Application Default Credentials otherwise.
type Google struct {
	config  *Config
	service *texttospeech.Service
	logger  *slog.Logger
}

// NewGoogle creates a new Google Cloud TTS provider.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = GoogleDefaultVoice
	cfg.Apply(opts...)

	var clientOpts []option.ClientOption
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	} else {
		ts, err := google.DefaultTokenSource(ctx, texttospeech.CloudPlatformScope)
		if err != nil {
			return nil, WrapError(providerGoogle, fmt.Errorf("default credentials: %w", err))
		}
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}

	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: svc,
		logger:  cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize requests LINEAR16 audio (a WAV container) for the request.
func (g *Google) Synthesize(ctx context.Context, req Request) (*AudioResult, error) {
	if req.Text == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	req = req.Normalized()

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	voice := &texttospeech.VoiceSelectionParams{LanguageCode: req.Language}
	switch {
	case req.Voice != "":
		voice.Name = req.Voice
	case req.Language == "" || languageOf(g.config.VoiceID) == req.Language:
		voice.Name = g.config.VoiceID
	}
	if voice.LanguageCode == "" {
		voice.LanguageCode = languageOf(voice.Name)
	}

	start := time.Now()
	resp, err := g.service.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: voice,
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: googleSampleRate,
			Pitch:           PitchSemitones(req.Pitch),
			SpeakingRate:    clamp(req.Rate, googleMinRate, googleMaxRate),
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, g.mapError(err)
	}
	latency := time.Since(start).Milliseconds()

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}

	g.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", voice.Name,
		"language", voice.LanguageCode,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   EncodingWAV,
			SampleRate: googleSampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		Duration:  PCMDuration(max(len(audio)-wavHeaderSize, 0), googleSampleRate),
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Voices lists the voices available for a language. An empty language
// lists every voice.
func (g *Google) Voices(ctx context.Context, language string) ([]VoiceInfo, error) {
	call := g.service.Voices.List()
	if language != "" {
		call = call.LanguageCode(language)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, g.mapError(err)
	}

	voices := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, VoiceInfo{
			Name:      v.Name,
			Languages: v.LanguageCodes,
			Gender:    v.SsmlGender,
		})
	}
	return voices, nil
}

// Health lists en-US voices to verify credentials.
func (g *Google) Health(ctx context.Context) error {
	_, err := g.Voices(ctx, "en-US")
	return err
}

// Close is a no-op.
func (g *Google) Close() error {
	return nil
}

func (g *Google) mapError(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return &APIError{
			StatusCode: gErr.Code,
			Message:    gErr.Message,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

// PitchSemitones converts a pitch multiplier to the semitone offset Google
// expects, clamped to the API range. A multiplier of 1 maps to 0.
func PitchSemitones(multiplier float64) float64 {
	if multiplier <= 0 {
		return 0
	}
	return clamp(12*math.Log2(multiplier), googleMinPitch, googleMaxPitch)
}

// languageOf returns the "xx-YY" prefix of a voice name like "en-US-Neural2-F".
func languageOf(voiceName string) string {
	if len(voiceName) >= 5 && voiceName[2] == '-' {
		return voiceName[:5]
	}
	return ""
}

var _ Provider = (*Google)(nil)
