package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeAddressLine(line string) string {
	return TrimAndNormalize(line)
}

var (
	emailPipeline  = Pipeline{strings.TrimSpace, strings.ToLower}
	extrasPipeline = Pipeline{TrimAndNormalize, strings.ToLower}
)

func NormalizeEmail(email string) string {
	return emailPipeline.Apply(email)
}

// NormalizeExtras deduplicates requested extras (child seat, GPS, etc.)
// after lowercasing.
func NormalizeExtras(extras []string) []string {
	return NormalizeStringSlice(extras, extrasPipeline.Apply)
}
