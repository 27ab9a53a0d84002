// Package prefs owns the theme and language preferences.
//
// Preferences are persisted independently of the session and survive
// logout. Every getter is TOTAL: whatever is in storage — a known value, an
// unknown string, or nothing at all — maps to a defined preference. The
// defaults mirror the original deployment: dark theme, French.
package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ltoupin/nexus-console/internal/apperror"
	"github.com/ltoupin/nexus-console/internal/repository"
)

// Theme is the display theme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	// DefaultTheme is what any unknown or absent stored value maps to.
	DefaultTheme = ThemeDark

	// DefaultLanguage is the fallback locale code. Language is an open set,
	// so unlike the theme it only defaults when absent or blank.
	DefaultLanguage = "fr"
)

// Store reads and writes the two preference keys. Each setter persists
// immediately and independently of the other.
type Store struct {
	kv     repository.KVRepository
	logger *slog.Logger

	mu       sync.RWMutex
	theme    Theme
	language string
	loaded   bool
}

// NewStore creates a preference store. Call Hydrate at startup; until then
// the getters serve the defaults.
func NewStore(kv repository.KVRepository, logger *slog.Logger) *Store {
	return &Store{
		kv:       kv,
		logger:   logger,
		theme:    DefaultTheme,
		language: DefaultLanguage,
	}
}

// Hydrate loads the persisted preferences. Unknown stored values fall back
// to the defaults silently — a half-written or hand-edited storage area
// must never break startup.
func (s *Store) Hydrate(ctx context.Context) error {
	theme, _, err := s.kv.Get(ctx, repository.KeyTheme)
	if err != nil {
		return fmt.Errorf("prefs: reading theme: %w", err)
	}
	lang, _, err := s.kv.Get(ctx, repository.KeyLanguage)
	if err != nil {
		return fmt.Errorf("prefs: reading language: %w", err)
	}

	s.mu.Lock()
	s.theme = normalizeTheme(theme)
	s.language = normalizeLanguage(lang)
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Theme returns the current display theme.
func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme validates, applies, and persists the theme.
func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if theme != ThemeDark && theme != ThemeLight {
		return apperror.ValidationFailed("theme", fmt.Sprintf("unknown theme %q", theme))
	}

	if err := s.kv.Set(ctx, repository.KeyTheme, string(theme)); err != nil {
		return fmt.Errorf("prefs: persisting theme: %w", err)
	}

	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()

	s.logger.Info("theme changed", slog.String("theme", string(theme)))
	return nil
}

// Language returns the current locale code.
func (s *Store) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage applies and persists the locale code. The set of languages is
// open — the localization layer handles codes it has no table for — so the
// only rejected value is a blank one.
func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return apperror.ValidationFailed("language", "language code is required")
	}

	if err := s.kv.Set(ctx, repository.KeyLanguage, lang); err != nil {
		return fmt.Errorf("prefs: persisting language: %w", err)
	}

	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()

	s.logger.Info("language changed", slog.String("language", lang))
	return nil
}

func normalizeTheme(raw string) Theme {
	switch Theme(raw) {
	case ThemeDark, ThemeLight:
		return Theme(raw)
	}
	return DefaultTheme
}

func normalizeLanguage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLanguage
	}
	return raw
}
