package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/i18n"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/service"
)

// PanelHandler exposes the four credit-gated AI panels over HTTP.
//
// Every endpoint shares the same failure contract: an entitlement denial is
// a 402 with the insufficient-credits notice localized to the saved
// language, and a model failure is an inline error JSON — the shell itself
// never crashes because a panel call went wrong.
type PanelHandler struct {
	panels *service.PanelService
	shell  *service.ShellService
	logger *slog.Logger
}

func NewPanelHandler(panels *service.PanelService, shell *service.ShellService, logger *slog.Logger) *PanelHandler {
	return &PanelHandler{
		panels: panels,
		shell:  shell,
		logger: logger,
	}
}

type chatRequest struct {
	Messages []model.Message `json:"messages"`
}

// HandleChat runs a chat turn.
//
// HTTP: POST /api/chat  {"messages": [{role, content, ...}, ...]}
// The last message must be the user's new input.
func (h *PanelHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	reply, err := h.panels.Chat(r.Context(), req.Messages)
	if err != nil {
		h.writePanelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

type lensRequest struct {
	Image       string `json:"image"` // base64-encoded image bytes
	MimeType    string `json:"mimeType"`
	Instruction string `json:"instruction"`
}

// HandleLens analyzes an uploaded image.
//
// HTTP: POST /api/lens  {"image": "<base64>", "mimeType": "image/png", "instruction": "..."}
func (h *PanelHandler) HandleLens(w http.ResponseWriter, r *http.Request) {
	var req lensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", "image must be base64-encoded"))
		return
	}

	analysis, err := h.panels.Lens(r.Context(), image, req.MimeType, req.Instruction)
	if err != nil {
		h.writePanelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

type voiceRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// HandleVoice synthesizes speech and streams back a WAV file.
//
// HTTP: POST /api/voice  {"text": "...", "voice": "Kore"}
func (h *PanelHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	wav, err := h.panels.Voice(r.Context(), req.Text, req.Voice)
	if err != nil {
		h.writePanelError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(wav); err != nil {
		h.logger.Error("failed to write WAV response", slog.String("error", err.Error()))
	}
}

type canvasRequest struct {
	Prompt        string `json:"prompt"`
	Reference     string `json:"reference"` // optional base64 reference image
	ReferenceMIME string `json:"referenceMimeType"`
}

// HandleCanvas generates an image.
//
// HTTP: POST /api/canvas  {"prompt": "...", "reference": "<base64>", "referenceMimeType": "image/png"}
func (h *PanelHandler) HandleCanvas(w http.ResponseWriter, r *http.Request) {
	var req canvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	var reference []byte
	if req.Reference != "" {
		var err error
		reference, err = base64.StdEncoding.DecodeString(req.Reference)
		if err != nil {
			writeError(w, apperror.ValidationFailed("reference", "reference must be base64-encoded"))
			return
		}
	}

	entry, err := h.panels.Canvas(r.Context(), req.Prompt, reference, req.ReferenceMIME)
	if err != nil {
		h.writePanelError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// writePanelError is writeError plus the panel-specific localization: the
// denial notice and the generic model-failure notice are user-facing, so
// they come from the i18n table in the saved language.
func (h *PanelHandler) writePanelError(w http.ResponseWriter, err error) {
	lang := h.shell.Language()

	if errors.Is(err, apperror.ErrInsufficient) {
		writeJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error:   "insufficient_credits",
			Message: i18n.Localize(i18n.KeyInsufficientCredits, lang),
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeError(w, err)
		return
	}

	// Collaborator failure: inline notice, never a crash, never retried.
	writeJSON(w, http.StatusBadGateway, ErrorResponse{
		Error:   "nexus_error",
		Message: i18n.Localize(i18n.KeyAIError, lang),
	})
}
