// Package service — AI panel business logic.
//
// PanelService fronts the four credit-gated panels: chat, lens (image
// analysis), voice (speech synthesis), and canvas (image generation).
// Every operation follows the same shape:
//
//  1. Validate the input (invalid requests are never charged)
//  2. Ask the ledger to deduct the action's cost — denial stops here,
//     before any model call
//  3. Call the Nexus model client and shape the result
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/ledger"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/nexus"
)

const (
	MaxPromptLength  = 4000
	MaxHistoryLength = 100
	MaxImageBytes    = 8 << 20 // 8MB upload ceiling
)

// PanelService handles the credit-gated AI panels.
type PanelService struct {
	credits *ledger.Ledger
	ai      nexus.Client
	logger  *slog.Logger
}

// NewPanelService creates a PanelService. The Nexus client may be nil when
// no API key is configured; panel calls then fail with a clear error after
// validation but before any credit is spent.
func NewPanelService(credits *ledger.Ledger, ai nexus.Client, logger *slog.Logger) *PanelService {
	return &PanelService{
		credits: credits,
		ai:      ai,
		logger:  logger,
	}
}

// Chat sends the conversation history to the model and returns the
// assistant's reply as a new message. Costs the chat action.
//
// The last entry of history must be the user's new message; the preceding
// entries give the model conversational context.
func (s *PanelService) Chat(ctx context.Context, history []model.Message) (*model.Message, error) {
	if len(history) == 0 {
		return nil, apperror.ValidationFailed("messages", "at least one message is required")
	}
	if len(history) > MaxHistoryLength {
		history = history[len(history)-MaxHistoryLength:]
	}
	last := history[len(history)-1]
	if strings.TrimSpace(last.Content) == "" {
		return nil, apperror.ValidationFailed("messages", "the last message must not be empty")
	}
	if len(last.Content) > MaxPromptLength {
		return nil, apperror.ValidationFailed("messages",
			fmt.Sprintf("message must be %d characters or less", MaxPromptLength))
	}

	if err := s.charge(ctx, ledger.ActionChat); err != nil {
		return nil, err
	}

	reply, err := s.ai.Complete(ctx, history)
	if err != nil {
		s.logger.Error("chat completion failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/panel: chat completion: %w", err)
	}

	return &model.Message{
		ID:        xid.New().String(),
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Lens analyzes an uploaded image and returns the model's description.
// Costs the lens action.
func (s *PanelService) Lens(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	if len(image) == 0 {
		return "", apperror.ValidationFailed("image", "an image is required")
	}
	if len(image) > MaxImageBytes {
		return "", apperror.ValidationFailed("image", "image is too large")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", apperror.ValidationFailed("image", "upload must be an image")
	}

	if err := s.charge(ctx, ledger.ActionLens); err != nil {
		return "", err
	}

	analysis, err := s.ai.AnalyzeImage(ctx, image, mimeType, instruction)
	if err != nil {
		s.logger.Error("image analysis failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("service/panel: image analysis: %w", err)
	}

	return analysis, nil
}

// Voice synthesizes speech for the given text with one of the known
// voices, returning a complete WAV file. Costs the voice action.
func (s *PanelService) Voice(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "text is required")
	}
	if len(text) > MaxPromptLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("text must be %d characters or less", MaxPromptLength))
	}
	if !nexus.KnownVoice(voice) {
		return nil, apperror.ValidationFailed("voice", fmt.Sprintf("unknown voice %q", voice))
	}

	if err := s.charge(ctx, ledger.ActionVoice); err != nil {
		return nil, err
	}

	pcm, err := s.ai.Synthesize(ctx, text, voice)
	if err != nil {
		s.logger.Error("speech synthesis failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/panel: speech synthesis: %w", err)
	}

	// The model returns raw 16-bit PCM; wrap it in a WAV header so the
	// browser can play it directly.
	return nexus.EncodeWAV(pcm, nexus.SampleRate, nexus.Channels), nil
}

// Canvas generates an image from a prompt, optionally steered by a
// reference image. Costs the canvas action — the most expensive one.
//
// The result carries the image as a data URL so the client can render and
// download it without a separate asset store.
func (s *PanelService) Canvas(ctx context.Context, prompt string, reference []byte, refMIME string) (*model.CanvasEntry, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperror.ValidationFailed("prompt", "a prompt is required")
	}
	if len(prompt) > MaxPromptLength {
		return nil, apperror.ValidationFailed("prompt",
			fmt.Sprintf("prompt must be %d characters or less", MaxPromptLength))
	}
	if len(reference) > MaxImageBytes {
		return nil, apperror.ValidationFailed("reference", "reference image is too large")
	}
	if len(reference) > 0 && !strings.HasPrefix(refMIME, "image/") {
		return nil, apperror.ValidationFailed("reference", "reference must be an image")
	}

	if err := s.charge(ctx, ledger.ActionCanvas); err != nil {
		return nil, err
	}

	img, mime, err := s.ai.GenerateImage(ctx, prompt, reference, refMIME)
	if err != nil {
		s.logger.Error("image generation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/panel: image generation: %w", err)
	}

	return &model.CanvasEntry{
		ID:        xid.New().String(),
		Prompt:    prompt,
		ImageURL:  fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img)),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// charge runs the credit deduction for one action. A denial becomes
// apperror.ErrInsufficient, which handlers translate to 402 with a
// localized message.
func (s *PanelService) charge(ctx context.Context, action ledger.Action) error {
	if s.ai == nil {
		// Refuse before spending credits when the model client is absent.
		return fmt.Errorf("service/panel: model client is not configured")
	}

	user, granted, err := s.credits.Deduct(ctx, action)
	if err != nil {
		return err
	}
	if !granted {
		s.logger.Info("credit deduction denied",
			slog.String("userID", user.ID),
			slog.String("action", string(action)),
			slog.Int("credits", user.Credits),
		)
		return apperror.InsufficientCredits("not enough credits for this action")
	}
	return nil
}
