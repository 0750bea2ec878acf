package analytics

import (
	"strings"
	"unicode"
)

// UnknownProvider is reported when no provider keyword appears in an expense.
const UnknownProvider = "Unknown Provider"

var providerKeywords = []string{"Dealer", "Service Center", "Auto Shop", "Garage", "Mechanic", "Workshop"}

var providerStopwords = map[string]struct{}{
	"at": {}, "the": {}, "a": {}, "an": {}, "from": {}, "to": {}, "by": {}, "in": {},
}

// ExtractProviderName guesses a service provider from an expense's description
// and notes. The first keyword found wins. When the word right before the
// keyword is a name it is kept, so "paid Smith Garage" gives "Smith Garage".
func ExtractProviderName(description, notes string) string {
	text := strings.TrimSpace(description + " " + notes)
	if text == "" {
		return UnknownProvider
	}
	lower := strings.ToLower(text)

	for _, kw := range providerKeywords {
		idx := strings.Index(lower, strings.ToLower(kw))
		if idx < 0 {
			continue
		}
		prefix := lower[:idx]
		if len(text) == len(lower) {
			prefix = text[:idx]
		}
		words := strings.Fields(prefix)
		if len(words) == 0 {
			return kw
		}
		prev := strings.TrimFunc(words[len(words)-1], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if prev == "" {
			return kw
		}
		if _, stop := providerStopwords[strings.ToLower(prev)]; stop {
			return kw
		}
		return prev + " " + kw
	}
	return UnknownProvider
}
