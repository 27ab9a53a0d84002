package nexus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ltoupin/nexus-console/internal/model"
)

// Model names per capability. The chat/vision model matches what the
// product advertises in the panel header; speech and image generation use
// the dedicated variants.
const (
	chatModel   = "gemini-3-flash-preview"
	speechModel = "gemini-2.5-flash-preview-tts"
	imageModel  = "gemini-2.5-flash-image-preview"
)

// systemPersona primes the chat model with the product voice.
const systemPersona = "You are Nexus, a precise and slightly futuristic AI assistant. " +
	"Answer helpfully and concisely."

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiClient creates a Gemini-backed collaborator.
//
// The per-request timeout is deliberate: the original frontend had none and
// a silent backend left the panel spinning forever. Absence of a response
// now surfaces as a context deadline error at the panel boundary.
func NewGeminiClient(ctx context.Context, apiKey string, timeout time.Duration) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("nexus: Gemini API key is required")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("nexus: creating Gemini client: %w", err)
	}

	return &GeminiClient{client: client, timeout: timeout}, nil
}

var _ Client = (*GeminiClient)(nil)

// Complete sends the conversation to the chat model. Prior turns are
// replayed with their original roles; the system persona rides along as a
// system instruction rather than a fake turn.
func (g *GeminiClient) Complete(ctx context.Context, turns []model.Message) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("nexus: conversation must contain at least one turn")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	resp, err := g.client.Models.GenerateContent(ctx, chatModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPersona, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("nexus: chat completion failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("nexus: chat model returned no text")
	}
	return text, nil
}

// AnalyzeImage sends image bytes plus the instruction to the multimodal
// model and returns its description.
func (g *GeminiClient) AnalyzeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("nexus: image data is required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(instruction),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, chatModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("nexus: image analysis failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("nexus: vision model returned no text")
	}
	return text, nil
}

// Synthesize asks the TTS model for raw PCM in the requested voice.
func (g *GeminiClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if !KnownVoice(voice) {
		return nil, fmt.Errorf("nexus: unknown voice %q", voice)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, speechModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("nexus: speech synthesis failed: %w", err)
	}

	audio := firstInlineData(resp, "audio/")
	if audio == nil {
		return nil, fmt.Errorf("nexus: speech model returned no audio")
	}
	return audio.Data, nil
}

// GenerateImage produces image bytes for the prompt, optionally steered by
// a reference image. Returns the bytes and their MIME type.
func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string, reference []byte, refMIME string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(reference) > 0 {
		parts = append(parts, genai.NewPartFromBytes(reference, refMIME))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("nexus: image generation failed: %w", err)
	}

	img := firstInlineData(resp, "image/")
	if img == nil {
		return nil, "", fmt.Errorf("nexus: image model returned no image")
	}
	return img.Data, img.MIMEType, nil
}

// firstInlineData scans the first candidate for an inline blob whose MIME
// type carries the given prefix.
func firstInlineData(resp *genai.GenerateContentResponse, mimePrefix string) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && strings.HasPrefix(part.InlineData.MIMEType, mimePrefix) {
			return part.InlineData
		}
	}
	return nil
}
