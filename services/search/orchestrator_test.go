package search

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"casahunt/propertyworker/internal/scraper"
	apperrors "casahunt/propertyworker/pkg/errors"
	"casahunt/propertyworker/services/fetch"
)

// stubFetcher serves canned bodies per source.
type stubFetcher struct {
	bodies map[string]string
	errs   map[string]error
	delay  time.Duration
}

func (f *stubFetcher) Fetch(ctx context.Context, source, targetURL string, opts fetch.Options) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.errs[source]; ok {
		return "", err
	}
	return f.bodies[source], nil
}

func newTestAdapter(source string) *scraper.Adapter {
	return scraper.NewAdapter(scraper.AdapterConfig{
		Source:  source,
		BaseURL: "https://" + source + ".example.mx",
		Selectors: scraper.FieldSelectors{
			Card:  scraper.Chain{".card"},
			Title: scraper.Chain{".title"},
			Link:  scraper.Chain{"a"},
			Price: scraper.Chain{".price"},
		},
		ExternalID: regexp.MustCompile(`/casa-(\d+)`),
		BuildURL: func(q scraper.SearchQuery) string {
			return "https://" + source + ".example.mx/venta"
		},
	})
}

const goodBody = `
<div class="card">
  <h2 class="title">Casa uno</h2>
  <a href="/casa-1">ver</a>
  <span class="price">$1,200,000</span>
</div>
<div class="card">
  <h2 class="title">Casa dos</h2>
  <a href="/casa-2">ver</a>
  <span class="price">$2,400,000</span>
</div>`

func TestScrapeAllPartialFailure(t *testing.T) {
	adapters := []*scraper.Adapter{newTestAdapter("alpha"), newTestAdapter("beta")}
	fetcher := &stubFetcher{
		bodies: map[string]string{"alpha": goodBody},
		errs:   map[string]error{"beta": apperrors.NewNetwork("beta", "boom", nil)},
	}

	o, err := NewOrchestrator(adapters, fetcher, time.Second)
	assert.NoError(t, err)

	result := o.ScrapeAll(context.Background(), scraper.SearchQuery{City: "cdmx"})

	assert.Len(t, result.Listings, 2)
	assert.Equal(t, []string{"alpha"}, result.Sources)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "beta", result.Errors[0].Source)
}

func TestScrapeAllAllSources(t *testing.T) {
	adapters := []*scraper.Adapter{newTestAdapter("alpha"), newTestAdapter("beta")}
	fetcher := &stubFetcher{
		bodies: map[string]string{"alpha": goodBody, "beta": goodBody},
	}

	o, err := NewOrchestrator(adapters, fetcher, time.Second)
	assert.NoError(t, err)

	result := o.ScrapeAll(context.Background(), scraper.SearchQuery{})

	assert.Len(t, result.Listings, 4)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, result.Sources)
	assert.Empty(t, result.Errors)
}

func TestScrapeAllChallengeDetected(t *testing.T) {
	adapters := []*scraper.Adapter{newTestAdapter("alpha")}
	fetcher := &stubFetcher{
		bodies: map[string]string{"alpha": `<title>Just a moment...</title>`},
	}

	o, err := NewOrchestrator(adapters, fetcher, time.Second)
	assert.NoError(t, err)

	result := o.ScrapeAll(context.Background(), scraper.SearchQuery{})

	assert.Empty(t, result.Listings)
	assert.Len(t, result.Errors, 1)
	assert.True(t, apperrors.IsType(result.Errors[0].Err, apperrors.ErrorTypeChallenge))
}

func TestScrapeAllPerSourceTimeout(t *testing.T) {
	adapters := []*scraper.Adapter{newTestAdapter("alpha")}
	fetcher := &stubFetcher{
		bodies: map[string]string{"alpha": goodBody},
		delay:  200 * time.Millisecond,
	}

	o, err := NewOrchestrator(adapters, fetcher, 10*time.Millisecond)
	assert.NoError(t, err)

	result := o.ScrapeAll(context.Background(), scraper.SearchQuery{})

	assert.Empty(t, result.Listings)
	assert.Len(t, result.Errors, 1)
}

func TestNewOrchestratorRequiresAdapters(t *testing.T) {
	_, err := NewOrchestrator(nil, &stubFetcher{}, time.Second)
	assert.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))
}
