package locale

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultRegion anchors parsing of nationally formatted numbers
// ("06 30 ...") submitted without a country code.
const defaultRegion = "HU"

// regionLocales maps the booking market's dialing regions to the site
// language their contacts are addressed in.
var regionLocales = map[string]string{
	"HU": "hu",
	"DE": "de",
	"AT": "de",
}

// InferLocaleFromPhone guesses a notification language from the region
// of the contact's phone number, falling back to the site default for
// unknown regions and unparsable input.
func InferLocaleFromPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return DefaultLocale
	}

	parsed, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil {
		return DefaultLocale
	}
	if loc, ok := regionLocales[phonenumbers.GetRegionCodeForNumber(parsed)]; ok {
		return loc
	}
	return DefaultLocale
}
