// Package tts provides a unified interface for text-to-speech providers.
//
// Providers turn a Request (text plus fixed voice parameters) into an audio
// buffer. OpenAI and Google Cloud Text-to-Speech are supported, Chain adds
// fallback across providers, and Mock is for tests.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx, tts.WithAPIKey(os.Getenv("GOOGLE_API_KEY")))
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{
//	    Text:     "Hello world",
//	    Language: "en-US",
//	    Pitch:    1.2,
//	    Rate:     0.95,
//	})
//	// result.Audio holds PCM or WAV bytes described by result.Format
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts a request to audio, returning the complete buffer.
	Synthesize(ctx context.Context, req Request) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request is one utterance to synthesize.
type Request struct {
	// Text is what to say.
	Text string

	// Language is a BCP-47 tag such as "en-US".
	Language string

	// Voice overrides the provider's configured voice when set.
	Voice string

	// Pitch is a multiplier where 1 is the engine default.
	// Zero is treated as 1.
	Pitch float64

	// Rate is a speaking-rate multiplier where 1 is the engine default.
	// Zero is treated as 1.
	Rate float64
}

// Normalized returns r with zero pitch and rate replaced by 1.
func (r Request) Normalized() Request {
	if r.Pitch <= 0 {
		r.Pitch = 1
	}
	if r.Rate <= 0 {
		r.Rate = 1
	}
	return r
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16
	EncodingWAV   Encoding = "wav"       // RIFF container, self-describing
	EncodingMP3   Encoding = "mp3_44100_128"
)

// IsRawPCM reports whether audio in this encoding has no container header.
func (e Encoding) IsRawPCM() bool {
	return e == EncodingPCM16 || e == EncodingPCM24
}

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM24, EncodingWAV:
		return 24000
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}

// PCMDuration estimates playback time for raw mono PCM16 audio.
func PCMDuration(n int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := n / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
