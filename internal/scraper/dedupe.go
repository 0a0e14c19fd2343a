package scraper

import (
	"fmt"
	"strings"

	"casahunt/propertyworker/helpers"
)

// dedupeKey identifies the same property listed on multiple marketplaces.
// Title casing and whitespace vary between sites, the asking price rarely
// does.
func dedupeKey(l Listing) string {
	title := helpers.CollapseWhitespace(strings.ToLower(l.Title))
	return fmt.Sprintf("%s|%d", title, l.Price)
}

// Dedupe removes listings that share a normalized title and price, keeping
// the first occurrence. Input order is preserved.
func Dedupe(listings []Listing) []Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		key := dedupeKey(l)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}
