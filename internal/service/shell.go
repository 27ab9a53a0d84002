// Package service — shell composition logic.
//
// ShellService backs everything around the panels: who is signed in,
// which module is active, the saved preferences, the dashboard usage
// tiles, the elite upgrade link, and the creator-only tier switch.
package service

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/config"
	"github.com/ltoupin/nexus-console/internal/ledger"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/prefs"
	"github.com/ltoupin/nexus-console/internal/router"
	"github.com/ltoupin/nexus-console/internal/session"
)

// Elite subscription checkout constants. There is no payment callback —
// completing the checkout does not change the tier; only SetTier does.
const (
	upgradeItemName = "Nexus IA Elite Subscription"
	upgradeAmount   = "9.99"
	upgradeCurrency = "EUR"
)

// ShellService composes the session, router, and preference state that
// frames the AI panels.
type ShellService struct {
	sessions *session.Store
	modules  *router.Router
	prefs    *prefs.Store
	credits  *ledger.Ledger
	cfg      *config.Config
	logger   *slog.Logger
}

func NewShellService(
	sessions *session.Store,
	modules *router.Router,
	preferences *prefs.Store,
	credits *ledger.Ledger,
	cfg *config.Config,
	logger *slog.Logger,
) *ShellService {
	return &ShellService{
		sessions: sessions,
		modules:  modules,
		prefs:    preferences,
		credits:  credits,
		cfg:      cfg,
		logger:   logger,
	}
}

// Profile is the session view returned by /api/me.
type Profile struct {
	User    *model.User `json:"user"`
	Creator bool        `json:"creator"`
}

// Me returns the active session's user, or ErrUnauthorized when nobody is
// signed in.
func (s *ShellService) Me(ctx context.Context) (*Profile, error) {
	user, ok := s.sessions.Current()
	if !ok {
		return nil, apperror.Unauthorized("no active session")
	}
	return &Profile{
		User:    user,
		Creator: s.cfg.IsCreator(user.Email),
	}, nil
}

// ActiveModule reports the module the shell should render right now.
// Without a session this is always the auth module.
func (s *ShellService) ActiveModule() router.Module {
	return s.modules.Active()
}

// Navigate switches the active module.
func (s *ShellService) Navigate(name string) (router.Module, error) {
	m := router.Module(name)
	if err := s.modules.Navigate(m); err != nil {
		return "", err
	}
	return s.modules.Active(), nil
}

// Preferences is the saved appearance state returned by /api/preferences.
type Preferences struct {
	Theme    prefs.Theme `json:"theme"`
	Language string      `json:"language"`
}

func (s *ShellService) Preferences() Preferences {
	return Preferences{
		Theme:    s.prefs.Theme(),
		Language: s.prefs.Language(),
	}
}

// UpdatePreferences applies the provided values. Empty fields are left
// unchanged so the client can update theme and language independently.
func (s *ShellService) UpdatePreferences(ctx context.Context, theme, language string) (Preferences, error) {
	if theme != "" {
		if err := s.prefs.SetTheme(ctx, prefs.Theme(theme)); err != nil {
			return Preferences{}, err
		}
	}
	if language != "" {
		if err := s.prefs.SetLanguage(ctx, language); err != nil {
			return Preferences{}, err
		}
	}
	return s.Preferences(), nil
}

// Dashboard carries the usage tiles: how much of the starting balance has
// been spent, the current tier, and whether the account is a creator.
type Dashboard struct {
	Credits     int        `json:"credits"`
	CreditsUsed int        `json:"creditsUsed"`
	CreditsMax  int        `json:"creditsMax"`
	Unlimited   bool       `json:"unlimited"`
	Tier        model.Tier `json:"tier"`
	Creator     bool       `json:"creator"`
}

// Stats builds the dashboard view for the active session.
//
// Elite accounts show the unlimited flag instead of a meaningful usage
// fraction; their pinned sentinel balance would make "used of 50" absurd.
func (s *ShellService) Stats(ctx context.Context) (*Dashboard, error) {
	user, ok := s.sessions.Current()
	if !ok {
		return nil, apperror.Unauthorized("no active session")
	}

	d := &Dashboard{
		Credits:    user.Credits,
		CreditsMax: model.DefaultCredits,
		Unlimited:  user.Elite(),
		Tier:       user.Tier,
		Creator:    s.cfg.IsCreator(user.Email),
	}
	if !user.Elite() {
		used := model.DefaultCredits - user.Credits
		if used < 0 {
			used = 0
		}
		d.CreditsUsed = used
	}
	return d, nil
}

// UpgradeURL returns the external PayPal checkout link for the elite
// subscription.
func (s *ShellService) UpgradeURL() (string, error) {
	if s.cfg.PayPalBusiness == "" {
		return "", apperror.NotFound("upgrade link", "paypal")
	}

	q := url.Values{}
	q.Set("cmd", "_xclick")
	q.Set("business", s.cfg.PayPalBusiness)
	q.Set("item_name", upgradeItemName)
	q.Set("amount", upgradeAmount)
	q.Set("currency_code", upgradeCurrency)

	return "https://www.paypal.com/cgi-bin/webscr?" + q.Encode(), nil
}

// SetTier changes a user's tier. Only creator accounts may call it; the
// ledger pins the credit balance to match the new tier.
func (s *ShellService) SetTier(ctx context.Context, userID string, tier model.Tier) (*model.User, error) {
	actor, ok := s.sessions.Current()
	if !ok {
		return nil, apperror.Unauthorized("no active session")
	}
	if !s.cfg.IsCreator(actor.Email) {
		return nil, apperror.Forbidden("only creator accounts may change tiers")
	}
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	updated, err := s.credits.SetTier(ctx, userID, tier)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tier changed",
		slog.String("actor", actor.ID),
		slog.String("userID", updated.ID),
		slog.String("tier", string(updated.Tier)),
	)

	return updated, nil
}

// Language exposes the saved language so handlers can localize notices.
func (s *ShellService) Language() string {
	return s.prefs.Language()
}
