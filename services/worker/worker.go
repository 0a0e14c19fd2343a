package worker

import (
	"context"
	"strings"
	"sync"
	"time"

	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/logger"
	"casahunt/propertyworker/services/publisher"
	"casahunt/propertyworker/services/search"
	"casahunt/propertyworker/services/store"
)

// recentSearchLimit caps how many saved searches one cycle replays on top
// of the configured cities.
const recentSearchLimit = 10

// History exposes the stored search log and corpus stats to the worker.
type History interface {
	RecentSearches(ctx context.Context, limit int) ([]store.SearchRecord, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Worker keeps popular searches warm by refreshing them on an interval.
// Each cycle refreshes the configured cities plus recently logged searches
// in parallel, then trims the listing streams.
type Worker struct {
	service   *search.Service
	publisher publisher.Publisher
	history   History
	cities    []string
	interval  time.Duration
	log       *logger.Logger
}

// NewWorker creates a refresh worker over the given cities. The history
// source is optional.
func NewWorker(service *search.Service, pub publisher.Publisher, history History, cities []string, interval time.Duration) *Worker {
	return &Worker{
		service:   service,
		publisher: pub,
		history:   history,
		cities:    cities,
		interval:  interval,
		log:       logger.ForComponent("worker"),
	}
}

// Start runs refresh cycles until the context is cancelled. The first
// cycle runs immediately.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().
		Int("cities", len(w.cities)).
		Dur("interval", w.interval).
		Msg("refresh worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("refresh worker stopped")
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle refreshes every due query in parallel.
func (w *Worker) runCycle(ctx context.Context) {
	start := time.Now()
	queries := w.cycleQueries(ctx)

	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q scraper.SearchQuery) {
			defer wg.Done()
			resp, err := w.service.Refresh(ctx, q)
			if err != nil {
				w.log.Warn().Err(err).Str("city", q.City).Msg("refresh failed")
				return
			}
			w.log.Debug().Str("city", q.City).Int("listings", resp.Total).Msg("refreshed")
		}(q)
	}
	wg.Wait()

	if w.publisher != nil {
		if err := w.publisher.TrimStreams(); err != nil {
			logger.LogError("worker", err, "stream trimming failed")
		}
	}

	ev := w.log.Info().
		Int("queries", len(queries)).
		Dur("elapsed", time.Since(start))
	if w.history != nil {
		if stats, err := w.history.Stats(ctx); err == nil {
			ev = ev.
				Int("stored_total", stats.TotalProperties).
				Int("stored_fresh", stats.FreshProperties)
		}
	}
	ev.Msg("refresh cycle finished")
}

// cycleQueries merges the configured cities with recently logged searches,
// one query per city.
func (w *Worker) cycleQueries(ctx context.Context) []scraper.SearchQuery {
	var queries []scraper.SearchQuery
	seen := make(map[string]struct{})

	add := func(q scraper.SearchQuery) {
		key := strings.ToLower(strings.TrimSpace(q.City))
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
	}

	for _, city := range w.cities {
		add(scraper.SearchQuery{City: city})
	}

	if w.history != nil {
		records, err := w.history.RecentSearches(ctx, recentSearchLimit)
		if err != nil {
			w.log.Warn().Err(err).Msg("failed to load recent searches")
			return queries
		}
		for _, r := range records {
			add(r.Query)
		}
	}
	return queries
}
