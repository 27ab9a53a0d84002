package router

import (
	"errors"
	"testing"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/model"
)

// fakeSession satisfies SessionReader with a switchable user.
type fakeSession struct {
	user *model.User
}

func (f *fakeSession) Current() (*model.User, bool) {
	if f.user == nil {
		return nil, false
	}
	return f.user, true
}

func signedIn() *fakeSession {
	return &fakeSession{user: &model.User{ID: "u1", Tier: model.TierBasic, Credits: 50}}
}

func TestInitialState(t *testing.T) {
	r := New(signedIn())
	if got := r.Active(); got != ModuleDashboard {
		t.Errorf("Active() = %s, want dashboard as the initial state", got)
	}
}

func TestNavigate_AllModulesReachable(t *testing.T) {
	r := New(signedIn())

	// Fully connected graph: any state reachable from any state.
	for _, from := range Modules() {
		for _, to := range Modules() {
			if err := r.Navigate(from); err != nil {
				t.Fatalf("Navigate(%s) error = %v", from, err)
			}
			if err := r.Navigate(to); err != nil {
				t.Fatalf("Navigate(%s→%s) error = %v", from, to, err)
			}
			if got := r.Active(); got != to {
				t.Errorf("Active() after %s→%s = %s", from, to, got)
			}
		}
	}
}

func TestNavigate_UnknownModule(t *testing.T) {
	r := New(signedIn())

	err := r.Navigate(Module("teleporter"))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Navigate(unknown) error = %v, want ErrValidation", err)
	}
	if got := r.Active(); got != ModuleDashboard {
		t.Errorf("Active() = %s, selector must not move on invalid input", got)
	}
}

func TestActive_ForcedToAuthWithoutSession(t *testing.T) {
	session := signedIn()
	r := New(session)

	// Navigate anywhere while signed out: the effective output is always
	// the auth view regardless of the requested target.
	session.user = nil
	for _, m := range Modules() {
		if err := r.Navigate(m); err != nil {
			t.Fatalf("Navigate(%s) error = %v", m, err)
		}
		if got := r.Active(); got != ModuleAuth {
			t.Errorf("Active() = %s without session, want auth", got)
		}
	}

	// The stored selector survives: signing back in reveals the last target.
	session.user = &model.User{ID: "u1"}
	if got := r.Active(); got != ModuleAuth {
		t.Errorf("Active() = %s, want the last navigated module (auth)", got)
	}
}

func TestOnSessionChange_LogoutResets(t *testing.T) {
	session := signedIn()
	r := New(session)

	if err := r.Navigate(ModuleVoice); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	// Logout: session disappears and the subscription fires with nil.
	session.user = nil
	r.OnSessionChange(nil)

	// While signed out the view is auth...
	if got := r.Active(); got != ModuleAuth {
		t.Errorf("Active() = %s without session, want auth", got)
	}

	// ...and after the next login the selector is back at the dashboard,
	// not on the voice panel.
	session.user = &model.User{ID: "u1"}
	if got := r.Active(); got != ModuleDashboard {
		t.Errorf("Active() after logout+login = %s, want dashboard", got)
	}
}

func TestOnSessionChange_LoginDoesNotReset(t *testing.T) {
	session := signedIn()
	r := New(session)

	if err := r.Navigate(ModuleLens); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	r.OnSessionChange(session.user) // login/update event, non-nil

	if got := r.Active(); got != ModuleLens {
		t.Errorf("Active() = %s, a login event must not move the selector", got)
	}
}
