package main

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/services/fetch"
	"casahunt/propertyworker/services/search"
)

// Test pages mimicking two listing marketplaces. The second card on the
// first site carries no parseable price and must be dropped; the first
// card of the second site duplicates a listing from the first.
const alphaHTML = `
<!DOCTYPE html>
<html>
<body>
    <div class="card">
        <h2 class="title">Casa en venta Coyoacán</h2>
        <a href="/casa-101">ver</a>
        <span class="price">$2,500,000</span>
        <span class="location">Coyoacán, Ciudad de México</span>
        <span class="attr">3 recámaras</span>
        <span class="attr">2 baños</span>
        <span class="attr">180 m²</span>
    </div>
    <div class="card">
        <h2 class="title">Departamento sin precio</h2>
        <a href="/casa-102">ver</a>
        <span class="price">Consultar</span>
    </div>
    <div class="card">
        <h2 class="title">Terreno en Zapopan</h2>
        <a href="/casa-103">ver</a>
        <span class="price">850</span>
        <span class="location">Zapopan - Jalisco</span>
    </div>
</body>
</html>`

const betaHTML = `
<!DOCTYPE html>
<html>
<body>
    <div class="card">
        <h2 class="title">Casa en Venta   Coyoacán</h2>
        <a href="/casa-901">ver</a>
        <span class="price">$2,500,000</span>
    </div>
    <div class="card">
        <h2 class="title">Oficina en Reforma</h2>
        <a href="/casa-902">ver</a>
        <span class="price">$5,000,000</span>
    </div>
</body>
</html>`

type fixtureFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  map[string]int
}

func (f *fixtureFetcher) Fetch(ctx context.Context, source, targetURL string, opts fetch.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[source]++
	return f.bodies[source], nil
}

type memoryStore struct {
	mu       sync.Mutex
	listings map[string]scraper.Listing
	searches int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{listings: make(map[string]scraper.Listing)}
}

func (m *memoryStore) Search(ctx context.Context, q scraper.SearchQuery) ([]scraper.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []scraper.Listing
	for _, l := range m.listings {
		out = append(out, l)
	}
	return out, nil
}

func (m *memoryStore) Upsert(ctx context.Context, listings []scraper.Listing) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return len(listings), nil
}

func (m *memoryStore) LogSearch(ctx context.Context, q scraper.SearchQuery, resultCount int, sources []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
}

func fixtureAdapter(source string) *scraper.Adapter {
	return scraper.NewAdapter(scraper.AdapterConfig{
		Source:  source,
		BaseURL: "https://" + source + ".example.mx",
		Selectors: scraper.FieldSelectors{
			Card:     scraper.Chain{".card"},
			Title:    scraper.Chain{".title"},
			Link:     scraper.Chain{"a"},
			Price:    scraper.Chain{".price"},
			Location: scraper.Chain{".location"},
			Attrs:    scraper.Chain{".attr"},
			Images:   scraper.Chain{"img"},
		},
		ExternalID: regexp.MustCompile(`/casa-(\d+)`),
		BuildURL: func(q scraper.SearchQuery) string {
			return "https://" + source + ".example.mx/venta"
		},
	})
}

// TestPipelineEndToEnd drives a full search through fan-out, extraction,
// dedup, persistence and the read-through path.
func TestPipelineEndToEnd(t *testing.T) {
	fetcher := &fixtureFetcher{bodies: map[string]string{
		"alpha": alphaHTML,
		"beta":  betaHTML,
	}}
	store := newMemoryStore()

	orchestrator, err := search.NewOrchestrator(
		[]*scraper.Adapter{fixtureAdapter("alpha"), fixtureAdapter("beta")},
		fetcher,
		5*time.Second,
	)
	assert.NoError(t, err)
	service := search.NewService(orchestrator, store, nil)

	resp, err := service.Search(context.Background(), scraper.SearchQuery{City: "mexico city"})
	assert.NoError(t, err)
	assert.False(t, resp.FromCache)

	// alpha yields 2 of 3 cards, beta yields 2; one beta card duplicates
	// an alpha listing.
	assert.Equal(t, 3, resp.Total)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, resp.Sources)
	assert.Empty(t, resp.Failed)

	byID := make(map[string]scraper.Listing)
	for _, l := range resp.Listings {
		byID[l.ID] = l
	}
	assert.Contains(t, byID, "alpha-101")
	assert.Contains(t, byID, "alpha-103")
	assert.Contains(t, byID, "beta-902")
	assert.NotContains(t, byID, "beta-901")

	coyoacan := byID["alpha-101"]
	assert.Equal(t, 2500000, coyoacan.Price)
	assert.Equal(t, 3, coyoacan.Bedrooms)
	assert.Equal(t, 2, coyoacan.Bathrooms)
	assert.Equal(t, 180.0, coyoacan.SizeSqm)
	assert.Equal(t, scraper.House, coyoacan.PropertyType)

	zapopan := byID["alpha-103"]
	assert.Equal(t, 850000, zapopan.Price)
	assert.Equal(t, scraper.Land, zapopan.PropertyType)
	assert.Equal(t, []string{scraper.PlaceholderImage}, zapopan.Images)

	// Everything that survived dedup was persisted and the search logged.
	assert.Len(t, store.listings, 3)
	assert.Equal(t, 1, store.searches)

	// The second identical search is served from the store.
	resp2, err := service.Search(context.Background(), scraper.SearchQuery{City: "mexico city"})
	assert.NoError(t, err)
	assert.True(t, resp2.FromCache)
	assert.Equal(t, 3, resp2.Total)
	assert.Equal(t, 1, fetcher.calls["alpha"])
	assert.Equal(t, 1, fetcher.calls["beta"])
}
