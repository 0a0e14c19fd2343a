package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"casahunt/propertyworker/config"
	apperrors "casahunt/propertyworker/pkg/errors"
)

func testClient(serverURL string) *ScrapeDoClient {
	return NewScrapeDoClient(&config.Config{
		ScrapeDoToken:   "test-token",
		ScrapeDoURL:     serverURL,
		FetchTimeout:    5 * time.Second,
		SourceBlockTime: time.Minute,
	}, nil)
}

func TestScrapeDoFetch(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"token":        q.Get("token"),
			"url":          q.Get("url"),
			"geoCode":      q.Get("geoCode"),
			"render":       q.Get("render"),
			"waitSelector": q.Get("waitSelector"),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>casa con 3 recámaras</body></html>"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	body, err := client.Fetch(context.Background(), "testsource", "https://example.mx/venta", Options{
		Render:  true,
		WaitFor: ".card",
		GeoCode: "mx",
	})

	assert.NoError(t, err)
	assert.Contains(t, body, "recámaras")
	assert.Equal(t, "test-token", gotQuery["token"])
	assert.Equal(t, "https://example.mx/venta", gotQuery["url"])
	assert.Equal(t, "mx", gotQuery["geoCode"])
	assert.Equal(t, "true", gotQuery["render"])
	assert.Equal(t, ".card", gotQuery["waitSelector"])
}

func TestScrapeDoFetchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Fetch(context.Background(), "testsource", "https://example.mx", Options{})

	assert.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimit))
}

func TestScrapeDoFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Fetch(context.Background(), "testsource", "https://example.mx", Options{})

	assert.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork))
}

func TestScrapeDoFetchContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	client := testClient(server.URL)
	_, err := client.Fetch(ctx, "testsource", "https://example.mx", Options{})
	assert.Error(t, err)
}
