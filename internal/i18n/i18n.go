// Package i18n is the localization table for user-facing shell strings.
//
// The original kept per-language dictionaries with a silent fallback chain;
// here that is reframed as a single total function: Localize(key, lang)
// always returns a defined string. Unknown language → the default language
// (French, matching the deployed product); unknown key → the key itself,
// which keeps a missing entry visible instead of blanking the UI.
package i18n

// DefaultLanguage is the fallback locale.
const DefaultLanguage = "fr"

// Message keys. Handlers reference these constants rather than raw strings
// so a typo is a compile error, not a silent fallback.
const (
	KeyDashboard           = "dashboard"
	KeyChat                = "chat"
	KeyCanvas              = "canvas"
	KeyVoice               = "voice"
	KeyLens                = "lens"
	KeySettings            = "settings"
	KeyLogout              = "logout"
	KeyCollapse            = "collapse"
	KeyWelcome             = "welcome"
	KeyCredits             = "credits"
	KeyInsufficientCredits = "insufficient_credits"
	KeyAIError             = "ai_error"
)

var tables = map[string]map[string]string{
	"fr": {
		KeyDashboard:           "Tableau de bord",
		KeyChat:                "Nexus Chat",
		KeyCanvas:              "Nexus Canvas",
		KeyVoice:               "Nexus Voice",
		KeyLens:                "Nexus Lens",
		KeySettings:            "Paramètres",
		KeyLogout:              "Déconnexion",
		KeyCollapse:            "Réduire",
		KeyWelcome:             "Bienvenue",
		KeyCredits:             "Crédits",
		KeyInsufficientCredits: "Crédits insuffisants !",
		KeyAIError:             "Une erreur est survenue lors de la communication avec le Nexus.",
	},
	"en": {
		KeyDashboard:           "Dashboard",
		KeyChat:                "Nexus Chat",
		KeyCanvas:              "Nexus Canvas",
		KeyVoice:               "Nexus Voice",
		KeyLens:                "Nexus Lens",
		KeySettings:            "Settings",
		KeyLogout:              "Log Out",
		KeyCollapse:            "Collapse",
		KeyWelcome:             "Welcome",
		KeyCredits:             "Credits",
		KeyInsufficientCredits: "Insufficient credits!",
		KeyAIError:             "An error occurred during nexus communication.",
	},
}

// Localize returns the string for key in the given language. Total over
// both arguments: no input combination produces an error or an empty
// result.
func Localize(key, lang string) string {
	table, ok := tables[lang]
	if !ok {
		table = tables[DefaultLanguage]
	}
	if msg, ok := table[key]; ok {
		return msg
	}
	// A key missing from a non-default table still resolves through the
	// default language before giving up.
	if msg, ok := tables[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// Languages returns the locale codes with a full table.
func Languages() []string {
	return []string{"fr", "en"}
}
