package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/router"
	"github.com/ltoupin/nexus-console/internal/service"
)

// ShellHandler exposes the state that frames the panels: session profile,
// active module, preferences, dashboard tiles, the upgrade link, and the
// creator-only tier switch.
type ShellHandler struct {
	shell  *service.ShellService
	logger *slog.Logger
}

func NewShellHandler(shell *service.ShellService, logger *slog.Logger) *ShellHandler {
	return &ShellHandler{
		shell:  shell,
		logger: logger,
	}
}

// HandleMe returns the active session's profile.
//
// HTTP: GET /api/me
func (h *ShellHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.shell.Me(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type moduleResponse struct {
	Active  router.Module   `json:"active"`
	Modules []router.Module `json:"modules"`
}

// HandleGetModule reports the module the shell should render.
//
// HTTP: GET /api/module
func (h *ShellHandler) HandleGetModule(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, moduleResponse{
		Active:  h.shell.ActiveModule(),
		Modules: router.Modules(),
	})
}

type navigateRequest struct {
	Module string `json:"module"`
}

// HandleSetModule switches the active module.
//
// HTTP: PUT /api/module  {"module": "canvas"}
func (h *ShellHandler) HandleSetModule(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	active, err := h.shell.Navigate(req.Module)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, moduleResponse{
		Active:  active,
		Modules: router.Modules(),
	})
}

// HandleGetPreferences returns the saved theme and language.
//
// HTTP: GET /api/preferences
func (h *ShellHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.shell.Preferences())
}

type preferencesRequest struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
}

// HandleSetPreferences updates theme and/or language. Omitted fields keep
// their current value.
//
// HTTP: PUT /api/preferences  {"theme": "light", "language": "en"}
func (h *ShellHandler) HandleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	p, err := h.shell.UpdatePreferences(r.Context(), req.Theme, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// HandleDashboard returns the usage tiles.
//
// HTTP: GET /api/dashboard
func (h *ShellHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.shell.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleUpgrade returns the external elite checkout URL. The client opens
// it in a new tab; completing the payment does not change the tier.
//
// HTTP: GET /api/upgrade
func (h *ShellHandler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	u, err := h.shell.UpgradeURL()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

type setTierRequest struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
}

// HandleSetTier changes an account's tier. Creator accounts only.
//
// HTTP: POST /api/admin/tier  {"userId": "...", "tier": "elite"}
func (h *ShellHandler) HandleSetTier(w http.ResponseWriter, r *http.Request) {
	var req setTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"validation_error","message":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	updated, err := h.shell.SetTier(r.Context(), req.UserID, model.Tier(req.Tier))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
