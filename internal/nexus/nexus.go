// Package nexus is the boundary to the generative-AI backend.
//
// From the core's point of view the backend is a black box: panels hand in
// text or image bytes and get text, audio, or image bytes back. The only
// coupling the rest of the app has with these calls is the entitlement
// check that must happen BEFORE any of them — the panel services own that
// rule; this package just talks to the API.
package nexus

import (
	"context"

	"github.com/ltoupin/nexus-console/internal/model"
)

// Voice profiles offered by the speech panel.
var Voices = []VoiceProfile{
	{Name: "Kore", Gender: "Female", Description: "Clear & Professional"},
	{Name: "Puck", Gender: "Male", Description: "Deep & Energetic"},
	{Name: "Charon", Gender: "Male", Description: "Calm & Steady"},
	{Name: "Fenrir", Gender: "Neutral", Description: "Ancient & Rich"},
	{Name: "Zephyr", Gender: "Neutral", Description: "Ethereal & Smooth"},
}

// VoiceProfile describes one synthesis voice.
type VoiceProfile struct {
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	Description string `json:"description"`
}

// KnownVoice reports whether name is one of the offered profiles.
func KnownVoice(name string) bool {
	for _, v := range Voices {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Synthesized speech format: 16-bit little-endian PCM, mono, 24 kHz.
const (
	SampleRate = 24000
	Channels   = 1
)

// Client is the collaborator interface the panel services consume. The
// Gemini implementation lives in gemini.go; tests inject fakes.
type Client interface {
	// Complete answers the newest user turn given the prior conversation.
	Complete(ctx context.Context, turns []model.Message) (string, error)

	// AnalyzeImage describes the image according to the instruction.
	AnalyzeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error)

	// Synthesize renders text as raw PCM audio in the given voice.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// GenerateImage produces image bytes for the prompt. A non-nil
	// reference image steers the generation.
	GenerateImage(ctx context.Context, prompt string, reference []byte, refMIME string) ([]byte, string, error)
}
