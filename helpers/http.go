package helpers

import (
	"bytes"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0.3 Safari/605.1.15",
}

var referers = []string{
	"https://www.google.com/",
	"https://www.google.com.mx/",
	"https://www.bing.com/",
}

// RandomUserAgent returns a browser user agent picked at random.
func RandomUserAgent() string {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	return userAgents[rnd.Intn(len(userAgents))]
}

// BrowserHeaders applies browser-like headers with a random user agent and referer.
func BrowserHeaders(req *http.Request) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Cache-Control", "no-cache")
}

// ToUTF8 converts a response body to UTF-8 using the Content-Type header as a hint.
// Bodies already in UTF-8 are returned as is.
func ToUTF8(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)

	if name == "utf-8" || name == "UTF-8" {
		return string(body), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return "", fmt.Errorf("failed to convert body to UTF-8: %w", err)
	}

	return buf.String(), nil
}
