package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/model"
	"github.com/ltoupin/nexus-console/internal/prefs"
	"github.com/ltoupin/nexus-console/internal/router"
)

func TestMe_NoSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.shell.Me(context.Background())
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Me() without session error = %v, want ErrUnauthorized", err)
	}
}

func TestMe_CreatorFlag(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, &model.User{Username: "boss", Email: "Creator@Nexus.DEV", Tier: model.TierBasic, Credits: 10})

	profile, err := env.shell.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	// Creator emails match case-insensitively
	if !profile.Creator {
		t.Error("Me() creator flag should be true for a configured creator email")
	}
}

func TestStats_UsageMeter(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, &model.User{Username: "lea", Email: "lea@example.com", Tier: model.TierBasic, Credits: 37})

	d, err := env.shell.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if d.Credits != 37 || d.CreditsUsed != 13 || d.CreditsMax != model.DefaultCredits {
		t.Errorf("Stats() = %d used %d of %d, want 13 of %d with 37 left",
			d.Credits, d.CreditsUsed, d.CreditsMax, model.DefaultCredits)
	}
	if d.Unlimited {
		t.Error("basic account should not be unlimited")
	}
}

func TestStats_EliteUnlimited(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, &model.User{Username: "vip", Email: "vip@example.com", Tier: model.TierElite, Credits: model.UnlimitedCredits})

	d, err := env.shell.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if !d.Unlimited {
		t.Error("elite account should report unlimited")
	}
	if d.CreditsUsed != 0 {
		t.Errorf("elite usage = %d, want 0", d.CreditsUsed)
	}
}

func TestNavigate_SwitchesModule(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, &model.User{Username: "lea", Email: "lea@example.com", Tier: model.TierBasic, Credits: 10})

	active, err := env.shell.Navigate("canvas")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if active != router.ModuleCanvas {
		t.Errorf("active module = %q, want canvas", active)
	}

	if _, err := env.shell.Navigate("warp-drive"); err == nil {
		t.Error("Navigate() should reject unknown modules")
	}
}

func TestActiveModule_ForcedToAuthWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	if got := env.shell.ActiveModule(); got != router.ModuleAuth {
		t.Errorf("ActiveModule() without session = %q, want auth", got)
	}
}

func TestUpdatePreferences_PartialUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.shell.UpdatePreferences(ctx, "light", "")
	if err != nil {
		t.Fatalf("UpdatePreferences() error = %v", err)
	}
	if p.Theme != prefs.ThemeLight {
		t.Errorf("theme = %q, want light", p.Theme)
	}
	// Untouched language keeps its default
	if p.Language != prefs.DefaultLanguage {
		t.Errorf("language = %q, want %q", p.Language, prefs.DefaultLanguage)
	}

	if _, err := env.shell.UpdatePreferences(ctx, "sepia", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("invalid theme error = %v, want ErrValidation", err)
	}
}

func TestUpgradeURL_Checkout(t *testing.T) {
	env := newTestEnv(t)

	u, err := env.shell.UpgradeURL()
	if err != nil {
		t.Fatalf("UpgradeURL() error = %v", err)
	}

	for _, want := range []string{
		"https://www.paypal.com/cgi-bin/webscr?",
		"business=billing%40nexus.dev",
		"item_name=Nexus+IA+Elite+Subscription",
		"amount=9.99",
		"currency_code=EUR",
	} {
		if !strings.Contains(u, want) {
			t.Errorf("UpgradeURL() = %q, missing %q", u, want)
		}
	}
}

func TestUpgradeURL_Unconfigured(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.PayPalBusiness = ""

	if _, err := env.shell.UpgradeURL(); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpgradeURL() error = %v, want ErrNotFound", err)
	}
}

func TestSetTier_CreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target := &model.User{Username: "lea", Email: "lea@example.com", Tier: model.TierBasic, Credits: 10}
	if err := env.users.Create(ctx, target); err != nil {
		t.Fatalf("seeding target: %v", err)
	}

	// A regular account may not change tiers
	env.loginAs(t, &model.User{Username: "pleb", Email: "pleb@example.com", Tier: model.TierBasic, Credits: 10})
	if _, err := env.shell.SetTier(ctx, target.ID, model.TierElite); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("SetTier() by non-creator error = %v, want ErrForbidden", err)
	}

	// A creator may
	env.loginAs(t, &model.User{Username: "boss", Email: "creator@nexus.dev", Tier: model.TierBasic, Credits: 10})
	updated, err := env.shell.SetTier(ctx, target.ID, model.TierElite)
	if err != nil {
		t.Fatalf("SetTier() error = %v", err)
	}
	if updated.Tier != model.TierElite || updated.Credits != model.UnlimitedCredits {
		t.Errorf("SetTier() = (%s, %d), want (elite, %d)", updated.Tier, updated.Credits, model.UnlimitedCredits)
	}
}

func TestSetTier_NoSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.shell.SetTier(context.Background(), "someone", model.TierElite)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("SetTier() without session error = %v, want ErrUnauthorized", err)
	}
}
