//go:build integration

package tts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/teslashibe/go-callbot/pkg/tts"
)

// Run with: go test -tags=integration ./pkg/tts/...

func TestOpenAIIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := tts.NewOpenAI(tts.WithAPIKey(apiKey))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(ctx, tts.Request{Text: "Hello from the call bot.", Rate: 0.95})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) == 0 {
		t.Error("expected audio")
	}
	t.Logf("OpenAI: %d bytes, %v, latency %dms", len(result.Audio), result.Duration, result.LatencyMs)
}

func TestGoogleIntegration(t *testing.T) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		t.Skip("GOOGLE_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := tts.NewGoogle(ctx, tts.WithAPIKey(apiKey))
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(ctx, tts.Request{
		Text:     "Hi, I am the call bot.",
		Language: "en-US",
		Pitch:    1.2,
		Rate:     0.95,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) <= 44 {
		t.Error("expected audio beyond the WAV header")
	}
	t.Logf("Google: %d bytes, %v, latency %dms", len(result.Audio), result.Duration, result.LatencyMs)
}
