// Package router tracks which feature panel of the shell is active.
//
// The state machine is deliberately flat: every module is reachable from
// every other one by an explicit Navigate call, there are no forbidden
// transitions and no terminal state. Two rules sit on top:
//
//   - no session → the effective output is always the auth view, whatever
//     the stored selector says;
//   - logout resets the selector to the dashboard, so the next login starts
//     from the default view.
package router

import (
	"fmt"
	"sync"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/model"
)

// Module identifies a feature panel.
type Module string

const (
	ModuleDashboard Module = "dashboard"
	ModuleChat      Module = "chat"
	ModuleCanvas    Module = "canvas"
	ModuleVoice     Module = "voice"
	ModuleLens      Module = "lens"
	ModuleSettings  Module = "settings"
	ModuleProfile   Module = "profile"
	ModuleAuth      Module = "auth"
)

// Modules lists every panel, in sidebar order.
func Modules() []Module {
	return []Module{
		ModuleDashboard,
		ModuleChat,
		ModuleCanvas,
		ModuleVoice,
		ModuleLens,
		ModuleSettings,
		ModuleProfile,
		ModuleAuth,
	}
}

// Valid reports whether m names a known panel.
func (m Module) Valid() bool {
	switch m {
	case ModuleDashboard, ModuleChat, ModuleCanvas, ModuleVoice,
		ModuleLens, ModuleSettings, ModuleProfile, ModuleAuth:
		return true
	}
	return false
}

// SessionReader is the slice of the session store the router needs: just
// "is somebody signed in". Taking an interface keeps the router trivially
// testable.
type SessionReader interface {
	Current() (*model.User, bool)
}

// Router holds the current module selector.
type Router struct {
	sessions SessionReader

	mu     sync.RWMutex
	active Module
}

// New creates a Router starting at the dashboard.
func New(sessions SessionReader) *Router {
	return &Router{
		sessions: sessions,
		active:   ModuleDashboard,
	}
}

// Navigate sets the selector unconditionally. Panels gate their own actions
// through the entitlement ledger; reachability itself is never gated.
func (r *Router) Navigate(m Module) error {
	if !m.Valid() {
		return apperror.ValidationFailed("module", fmt.Sprintf("unknown module %q", m))
	}

	r.mu.Lock()
	r.active = m
	r.mu.Unlock()
	return nil
}

// Active returns the effective module. With no session it is always the
// auth view — the stored selector is kept, but not exposed, so the view the
// user was on survives a token expiry.
func (r *Router) Active() Module {
	if _, ok := r.sessions.Current(); !ok {
		return ModuleAuth
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Reset returns the selector to the dashboard. Wired to the session store's
// logout notification by the composition root.
func (r *Router) Reset() {
	r.mu.Lock()
	r.active = ModuleDashboard
	r.mu.Unlock()
}

// OnSessionChange is the session store subscription hook: a nil user means
// logout, which resets the selector to its initial state.
func (r *Router) OnSessionChange(user *model.User) {
	if user == nil {
		r.Reset()
	}
}
