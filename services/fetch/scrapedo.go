package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"casahunt/propertyworker/config"
	"casahunt/propertyworker/helpers"
	"casahunt/propertyworker/logger"
	apperrors "casahunt/propertyworker/pkg/errors"
	"casahunt/propertyworker/services/cache"
)

// ScrapeDoClient fetches pages through the scrape.do rendering proxy.
// Sources that answer 429 get a block key in the cache so the next fetch
// cycle skips them instead of hammering a throttled site.
type ScrapeDoClient struct {
	token     string
	baseURL   string
	client    *http.Client
	cacheSvc  cache.CacheService
	blockTime time.Duration
	log       *logger.Logger
}

// NewScrapeDoClient creates a scrape.do client from the configuration.
func NewScrapeDoClient(cfg *config.Config, cacheSvc cache.CacheService) *ScrapeDoClient {
	return &ScrapeDoClient{
		token:     cfg.ScrapeDoToken,
		baseURL:   strings.TrimRight(cfg.ScrapeDoURL, "/"),
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		cacheSvc:  cacheSvc,
		blockTime: cfg.SourceBlockTime,
		log:       logger.ForComponent("fetch"),
	}
}

// Fetch retrieves the HTML of targetURL for one source. The body is
// returned as UTF-8 regardless of the site's charset.
func (c *ScrapeDoClient) Fetch(ctx context.Context, source, targetURL string, opts Options) (string, error) {
	if cache.IsBlocked(c.cacheSvc, source) {
		return "", apperrors.NewRateLimit(source, c.blockTime)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(targetURL, opts), nil)
	if err != nil {
		return "", apperrors.NewNetwork(source, "building fetch request", err)
	}
	helpers.BrowserHeaders(req)
	for name, value := range opts.Headers {
		req.Header.Set(name, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.NewNetwork(source, "fetching "+targetURL, err)
	}
	defer resp.Body.Close()

	// scrape.do relays the target's 429 and reports its own concurrency
	// limit as 430.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 430 {
		cache.BlockSource(c.cacheSvc, source, c.blockTime)
		return "", apperrors.NewRateLimit(source, c.blockTime)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.NewNetwork(source, "unexpected status "+resp.Status, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewNetwork(source, "reading response body", err)
	}

	utf8Body, err := helpers.ToUTF8(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", apperrors.NewParsing(source, "decoding response charset", err)
	}

	c.log.Debug().
		Str("source", source).
		Int("bytes", len(utf8Body)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched page")
	return utf8Body, nil
}

// requestURL assembles the scrape.do API call for one target page.
func (c *ScrapeDoClient) requestURL(targetURL string, opts Options) string {
	params := url.Values{}
	params.Set("token", c.token)
	params.Set("url", targetURL)
	if opts.GeoCode != "" {
		params.Set("geoCode", opts.GeoCode)
	}
	if opts.Render {
		params.Set("render", "true")
	}
	if opts.WaitFor != "" {
		params.Set("waitSelector", opts.WaitFor)
	}
	if opts.Super {
		params.Set("super", "true")
	}
	return c.baseURL + "/?" + params.Encode()
}
