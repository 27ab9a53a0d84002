// Package config loads server configuration from environment variables.
//
// WHY A CONFIG STRUCT?
// Reading env vars one by one in main() works, but the defaults and parsing
// end up scattered. A single annotated struct keeps every knob, its env var
// name, and its default in one place, and env.Parse does the conversion
// (int, bool, slices, durations) for us.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting for the Nexus Console server.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/nexus.db"`

	// JWT_SECRET must be a long random string. Use:
	//   JWT_SECRET=$(openssl rand -hex 32)
	JWTSecret string `env:"JWT_SECRET"`

	// Gemini API key for the AI collaborator. If unset, the panel endpoints
	// return errors but the shell still starts.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`

	// Timeout applied to each outbound Gemini request. The original frontend
	// had none and could spin forever; the server adds one deliberately.
	AITimeout time.Duration `env:"AI_TIMEOUT" envDefault:"2m"`

	// GitHub OAuth app credentials (optional login provider).
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	// CreatorEmails are the privileged accounts allowed to change tiers.
	// Matched case-insensitively against the account email.
	CreatorEmails []string `env:"CREATOR_EMAILS" envSeparator:","`

	// PayPalBusiness is the recipient of the external elite checkout page.
	// There is no callback or webhook — a completed payment does not change
	// the account tier; that is an explicit administrative operation.
	PayPalBusiness string `env:"PAYPAL_BUSINESS"`

	// Per-action credit costs. Chat costs 1 by product definition; the
	// others default by rough output weight and stay configurable.
	CostChat   int `env:"COST_CHAT" envDefault:"1"`
	CostLens   int `env:"COST_LENS" envDefault:"1"`
	CostVoice  int `env:"COST_VOICE" envDefault:"2"`
	CostCanvas int `env:"COST_CANVAS" envDefault:"4"`
}

// Load parses the environment into a Config and applies derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return cfg, nil
}

// IsCreator reports whether the given email belongs to a configured
// privileged account. Comparison is case-insensitive — email is the
// privileged-account match key.
func (c Config) IsCreator(email string) bool {
	for _, creator := range c.CreatorEmails {
		if strings.EqualFold(strings.TrimSpace(creator), email) {
			return true
		}
	}
	return false
}
