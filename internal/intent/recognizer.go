package intent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lower-cases and trims raw command text. Internal runs of
// whitespace collapse to a single space so spoken transcripts with stray
// spacing match the same patterns.
func Normalize(raw string) string {
	lower := cases.Lower(language.Und).String(raw)
	return strings.Join(strings.Fields(lower), " ")
}

// Recognize maps raw text to the first matching action of the role's catalog.
// A trailing "because ..." clause is ignored for matching and extracted as the
// reason parameter. It returns false when the role is unknown or nothing
// matched.
func Recognize(raw string, role Role) (Intent, bool) {
	catalog := CatalogFor(role)
	if catalog == nil {
		return Intent{}, false
	}

	text := Normalize(raw)
	if text == "" {
		return Intent{}, false
	}

	command, _ := splitReason(text)
	action, pattern, ok := catalog.match(command)
	if !ok {
		return Intent{Text: text}, false
	}

	return Intent{
		Action: action,
		Params: Extract(text, pattern),
		Text:   text,
	}, true
}
