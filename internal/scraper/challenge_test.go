package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsChallenge(t *testing.T) {
	assert.True(t, IsChallenge(`<html><head><title>Just a moment...</title></head></html>`))
	assert.True(t, IsChallenge(`<div id="cf-browser-verification"></div>`))
	assert.True(t, IsChallenge(`<title>Access Denied</title>`))
	assert.True(t, IsChallenge(`<div class="px-captcha"></div>`))
	assert.True(t, IsChallenge(`Please verify you are human to continue`))

	assert.False(t, IsChallenge(`<html><body><li class="ui-search-layout__item">Casa</li></body></html>`))
	assert.False(t, IsChallenge(""))
}

func TestIsChallengeScanLimit(t *testing.T) {
	// Markers past the scan window are ignored.
	body := strings.Repeat("<p>casa en venta</p>", 2048) + "just a moment"
	assert.False(t, IsChallenge(body))
}
