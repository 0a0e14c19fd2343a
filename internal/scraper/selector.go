package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Chain is an ordered list of alternative CSS selectors for one field.
// Selectors are tried in order against a scope; the first non-empty result
// wins. A chain that matches nothing yields an empty result, never an
// error. Missing markup is normal, not exceptional.
type Chain []string

// First returns the selection of the first selector producing at least one
// match, or nil when none does.
func (c Chain) First(scope *goquery.Selection) *goquery.Selection {
	if scope == nil {
		return nil
	}
	for _, sel := range c {
		if found := scope.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// Text returns the trimmed text of the first selector yielding non-empty
// text. Selectors that match nodes with empty text are skipped in favor of
// later alternatives.
func (c Chain) Text(scope *goquery.Selection) string {
	if scope == nil {
		return ""
	}
	for _, sel := range c {
		found := scope.Find(sel)
		if found.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(found.First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// Attr returns the first non-empty attribute value found, trying each
// selector in chain order and, per match, each attribute name in order.
func (c Chain) Attr(scope *goquery.Selection, names ...string) string {
	if scope == nil {
		return ""
	}
	for _, sel := range c {
		found := scope.Find(sel)
		if found.Length() == 0 {
			continue
		}
		for _, name := range names {
			if val, ok := found.First().Attr(name); ok {
				if val = strings.TrimSpace(val); val != "" {
					return val
				}
			}
		}
	}
	return ""
}

// Texts collects the trimmed texts of all nodes matched by the first
// selector that matches anything.
func (c Chain) Texts(scope *goquery.Selection) []string {
	found := c.First(scope)
	if found == nil {
		return nil
	}
	var out []string
	found.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}
