package providers

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var categoryCaser = cases.Title(language.English)

// normalizeScrapedText cleans one cell of portal text: unicode compatibility
// normalization folds full-width characters and typographic clones portals
// love, non-breaking spaces become plain spaces, and runs of whitespace
// collapse to one.
func normalizeScrapedText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeCategory additionally title-cases the label so "DRY GOODS" and
// "dry goods" land in the same catalog bucket.
func normalizeCategory(s string) string {
	s = normalizeScrapedText(s)
	if s == "" {
		return ""
	}
	return categoryCaser.String(strings.ToLower(s))
}
