package scraper

import "strings"

// challengeMarkers are fragments that identify anti-bot interstitials and
// access-denied pages. A provider can hand these back as a perfectly valid
// HTTP 200 body, so they have to be recognized by content.
var challengeMarkers = []string{
	"just a moment",
	"cf-browser-verification",
	"cf-chl-widget",
	"attention required! | cloudflare",
	"access denied",
	"px-captcha",
	"are you a human",
	"verify you are human",
	"unusual traffic from your computer",
}

// challengeScanLimit bounds the scan; challenge pages identify themselves
// near the top of the document.
const challengeScanLimit = 16 * 1024

// IsChallenge reports whether a fetched body is an anti-bot challenge page
// rather than real content.
func IsChallenge(body string) bool {
	if len(body) > challengeScanLimit {
		body = body[:challengeScanLimit]
	}
	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
