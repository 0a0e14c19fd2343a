package worker

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/services/fetch"
	"casahunt/propertyworker/services/publisher"
	"casahunt/propertyworker/services/search"
	"casahunt/propertyworker/services/store"
)

// recordingFetcher counts fetches per source and serves one fixed page.
type recordingFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *recordingFetcher) Fetch(ctx context.Context, source, targetURL string, opts fetch.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, targetURL)
	f.mu.Unlock()
	return `
<div class="card">
  <h2 class="title">Casa refresco</h2>
  <a href="/casa-1">ver</a>
  <span class="price">$1,100,000</span>
</div>`, nil
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu        sync.Mutex
	published map[string]int
	trims     int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{published: make(map[string]int)}
}

func (m *MockPublisher) PublishListings(source string, listings []scraper.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[source] += len(listings)
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trims++
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

func newRefreshService(t *testing.T, fetcher fetch.Fetcher, pub publisher.Publisher) *search.Service {
	t.Helper()
	adapter := scraper.NewAdapter(scraper.AdapterConfig{
		Source:  "alpha",
		BaseURL: "https://alpha.example.mx",
		Selectors: scraper.FieldSelectors{
			Card:  scraper.Chain{".card"},
			Title: scraper.Chain{".title"},
			Link:  scraper.Chain{"a"},
			Price: scraper.Chain{".price"},
		},
		ExternalID: regexp.MustCompile(`/casa-(\d+)`),
		BuildURL: func(q scraper.SearchQuery) string {
			return "https://alpha.example.mx/venta/" + q.City
		},
	})
	o, err := search.NewOrchestrator([]*scraper.Adapter{adapter}, fetcher, time.Second)
	assert.NoError(t, err)
	return search.NewService(o, nil, pub)
}

func TestWorkerRunCycle(t *testing.T) {
	fetcher := &recordingFetcher{}
	pub := NewMockPublisher()
	svc := newRefreshService(t, fetcher, pub)

	w := NewWorker(svc, pub, nil, []string{"mexico city", "guadalajara"}, time.Minute)
	w.runCycle(context.Background())

	// One refresh per city.
	assert.Len(t, fetcher.calls, 2)
	assert.ElementsMatch(t, []string{
		"https://alpha.example.mx/venta/mexico city",
		"https://alpha.example.mx/venta/guadalajara",
	}, fetcher.calls)

	// Streams are trimmed once per cycle, after publishing.
	assert.Equal(t, 1, pub.trims)
	assert.Equal(t, 2, pub.published["alpha"])
}

// stubHistory serves canned search records.
type stubHistory struct {
	records []store.SearchRecord
}

func (h *stubHistory) RecentSearches(ctx context.Context, limit int) ([]store.SearchRecord, error) {
	return h.records, nil
}

func (h *stubHistory) Stats(ctx context.Context) (store.Stats, error) {
	return store.Stats{TotalProperties: 3, FreshProperties: 3}, nil
}

func TestWorkerCycleQueriesMergeHistory(t *testing.T) {
	fetcher := &recordingFetcher{}
	pub := NewMockPublisher()
	svc := newRefreshService(t, fetcher, pub)

	history := &stubHistory{records: []store.SearchRecord{
		{Query: scraper.SearchQuery{City: "Cancun", Bedrooms: 2}},
		{Query: scraper.SearchQuery{City: "MEXICO CITY"}},
		{Query: scraper.SearchQuery{}},
	}}

	w := NewWorker(svc, pub, history, []string{"mexico city", "guadalajara"}, time.Minute)
	queries := w.cycleQueries(context.Background())

	// Configured cities first, then logged searches minus duplicates and
	// cityless entries.
	assert.Len(t, queries, 3)
	assert.Equal(t, "mexico city", queries[0].City)
	assert.Equal(t, "guadalajara", queries[1].City)
	assert.Equal(t, "Cancun", queries[2].City)
	assert.Equal(t, 2, queries[2].Bedrooms)
}

func TestWorkerStartStopsOnCancel(t *testing.T) {
	fetcher := &recordingFetcher{}
	pub := NewMockPublisher()
	svc := newRefreshService(t, fetcher, pub)

	w := NewWorker(svc, pub, nil, []string{"monterrey"}, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	// The immediate cycle plus at least one tick.
	fetcher.mu.Lock()
	calls := len(fetcher.calls)
	fetcher.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
}
