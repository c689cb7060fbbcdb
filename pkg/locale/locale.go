package locale

import "strings"

const (
	// DefaultLocale is the site's fallback language.
	DefaultLocale = "hu"
)

// SupportedLocales are the languages the booking site renders.
var SupportedLocales = []string{"hu", "en", "de"}

// Resolve clamps a requested locale to a supported one. Unknown or empty
// values fall back to the default so notification templates always have
// a renderable language.
func Resolve(requested string) string {
	return ResolveWithin(requested, SupportedLocales, DefaultLocale)
}

// ResolveWithin clamps against an explicit supported set, used when the
// deployment narrows the site languages via configuration.
func ResolveWithin(requested string, supported []string, fallback string) string {
	normalized := normalize(requested)
	if normalized == "" {
		return fallback
	}

	for _, loc := range supported {
		if normalized == normalize(loc) {
			return loc
		}
	}

	return fallback
}

// normalize lowercases and strips a region subtag ("en-US" -> "en").
func normalize(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if idx := strings.IndexAny(locale, "-_"); idx >= 0 {
		locale = locale[:idx]
	}
	return locale
}
