package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// Field heuristic extractors. All of these are pure, total functions over
// free text: absence of data is a typed result, never an error. The
// vocabulary is the mixed Spanish/English wording the Mexican listing sites
// actually use.

var (
	priceChars = regexp.MustCompile(`[^0-9.,]`)
	moneyRe    = regexp.MustCompile(`\$\s*[\d,]+(?:\.\d{2})?`)
	sizeRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*m[²2]`)
)

// BedroomPatterns is the ordered bedroom vocabulary. Each pattern captures
// the leading number; range wordings like "2 a 3 recámaras" capture the
// first (minimum) number.
var BedroomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)(?:\s*a\s*\d+)?\s*rec[aá]maras?`),
	regexp.MustCompile(`(?i)(\d+)(?:\s*a\s*\d+)?\s*habitaci[oó]n(?:es)?`),
	regexp.MustCompile(`(?i)(\d+)\s*rec\b`),
	regexp.MustCompile(`(?i)(\d+)(?:\s*a\s*\d+)?\s*bedrooms?`),
	regexp.MustCompile(`(?i)(\d+)(?:\s*a\s*\d+)?\s*dormitorios?`),
}

// BathroomPatterns is the ordered bathroom vocabulary.
var BathroomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)(?:\s*a\s*\d+)?\s*ba[ñn]os?`),
	regexp.MustCompile(`(?i)(\d+)(?:\s*a\s*\d+)?\s*baths?`),
}

var propertyTypeKeywords = []struct {
	keyword string
	ptype   PropertyType
}{
	{"casa", House},
	{"departamento", Apartment},
	{"depto", Apartment},
	{"terreno", Land},
	{"oficina", Office},
	{"local", Commercial},
	{"bodega", Commercial},
	{"comercial", Commercial},
}

// ExtractPrice parses a price out of free text. Sites sometimes render
// abbreviated thousands ("850" for 850,000), so values below 1000 are scaled
// up. Unparseable text yields 0, which drops the record later under the
// essential-field invariant.
func ExtractPrice(text string) int {
	cleaned := priceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return 0
	}
	if value < 1000 {
		value *= 1000
	}
	return int(value)
}

// FindMoney returns the first money-looking fragment ("$ 1,250,000") in
// text, or "" when there is none.
func FindMoney(text string) string {
	return moneyRe.FindString(text)
}

// ExtractCurrency picks the currency code out of raw price text. MXN is the
// default; only an explicit USD marker switches it.
func ExtractCurrency(text string) string {
	if strings.Contains(text, "USD") || strings.Contains(text, "US$") {
		return "USD"
	}
	return "MXN"
}

// ExtractCount scans text against an ordered vocabulary pattern list and
// returns the first captured number. The boolean reports whether any
// pattern matched.
func ExtractCount(text string, patterns []*regexp.Regexp) (int, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return n, true
		}
	}
	return 0, false
}

// ExtractSize returns the first "<n> m²" (or m2) match in square meters.
func ExtractSize(text string) (float64, bool) {
	m := sizeRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ClassifyPropertyType infers a property type from title or category text
// via an ordered keyword table; the first keyword found wins.
func ClassifyPropertyType(text string) PropertyType {
	lower := strings.ToLower(text)
	for _, entry := range propertyTypeKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.ptype
		}
	}
	return Other
}

// SplitLocation derives {neighborhood/city, state} from a raw location
// string, splitting on the first comma or dash.
func SplitLocation(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if i := strings.IndexAny(raw, ",-"); i >= 0 {
		return strings.TrimSpace(raw[:i]), strings.TrimSpace(raw[i+1:])
	}
	return raw, ""
}
