package tts

import "context"

// VoiceInfo describes one voice a provider can speak with.
type VoiceInfo struct {
	Name      string   `json:"name"`
	Languages []string `json:"languages,omitempty"`
	Gender    string   `json:"gender,omitempty"`
}

// VoiceLister is implemented by providers that can enumerate voices.
type VoiceLister interface {
	Voices(ctx context.Context, language string) ([]VoiceInfo, error)
}

// Voices returns the fixed OpenAI voice set. OpenAI voices are
// multilingual, so language is ignored.
func (o *OpenAI) Voices(ctx context.Context, language string) ([]VoiceInfo, error) {
	names := []string{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}
	voices := make([]VoiceInfo, len(names))
	for i, n := range names {
		voices[i] = VoiceInfo{Name: n}
	}
	return voices, nil
}

var (
	_ VoiceLister = (*OpenAI)(nil)
	_ VoiceLister = (*Google)(nil)
)
