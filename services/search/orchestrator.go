package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/logger"
	apperrors "casahunt/propertyworker/pkg/errors"
	"casahunt/propertyworker/services/fetch"
)

// SourceError is one source's failure within an otherwise successful run.
type SourceError struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// Result is the outcome of one fan-out across all sources. Sources lists
// who contributed listings; Errors lists who failed. A run only fails as a
// whole when every source fails.
type Result struct {
	Listings []scraper.Listing
	Sources  []string
	Errors   []SourceError
}

// Orchestrator fans one query out to every source adapter concurrently and
// settles all of them before returning.
type Orchestrator struct {
	adapters []*scraper.Adapter
	fetcher  fetch.Fetcher
	timeout  time.Duration
	log      *logger.Logger
}

// NewOrchestrator creates an orchestrator over the given adapters.
func NewOrchestrator(adapters []*scraper.Adapter, fetcher fetch.Fetcher, timeout time.Duration) (*Orchestrator, error) {
	if len(adapters) == 0 {
		return nil, apperrors.NewConfiguration("no source adapters configured", nil)
	}
	return &Orchestrator{
		adapters: adapters,
		fetcher:  fetcher,
		timeout:  timeout,
		log:      logger.ForComponent("orchestrator"),
	}, nil
}

// ScrapeAll runs the query against every source. Failures are collected,
// never propagated early; a slow or blocked source must not cost the
// results of the rest.
func (o *Orchestrator) ScrapeAll(ctx context.Context, q scraper.SearchQuery) Result {
	type outcome struct {
		source   string
		listings []scraper.Listing
		err      error
	}

	start := time.Now()
	outcomes := make(chan outcome, len(o.adapters))
	var wg sync.WaitGroup
	for _, a := range o.adapters {
		wg.Add(1)
		go func(a *scraper.Adapter) {
			defer wg.Done()
			listings, err := o.scrapeOne(ctx, a, q)
			outcomes <- outcome{source: a.Source(), listings: listings, err: err}
		}(a)
	}
	wg.Wait()
	close(outcomes)

	var result Result
	for out := range outcomes {
		if out.err != nil {
			ev := o.log.Warn().Err(out.err).Str("source", out.source)
			var perr *apperrors.PipelineError
			if errors.As(out.err, &perr) {
				ev = ev.Bool("retryable", perr.IsRetryable())
			}
			ev.Msg("source failed")
			result.Errors = append(result.Errors, SourceError{Source: out.source, Err: out.err})
			continue
		}
		result.Listings = append(result.Listings, out.listings...)
		result.Sources = append(result.Sources, out.source)
	}

	o.log.Info().
		Int("listings", len(result.Listings)).
		Str("sources", strings.Join(result.Sources, ",")).
		Int("failures", len(result.Errors)).
		Dur("elapsed", time.Since(start)).
		Msg("fan-out settled")
	return result
}

// scrapeOne runs one source end to end: URL, fetch, challenge check,
// parse. Each source gets its own timeout so one slow site cannot absorb
// the whole run.
func (o *Orchestrator) scrapeOne(ctx context.Context, a *scraper.Adapter, q scraper.SearchQuery) ([]scraper.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	targetURL := a.BuildSearchURL(q)

	body, err := o.fetcher.Fetch(ctx, a.Source(), targetURL, fetch.Options{
		Render:  a.Config.Render,
		WaitFor: a.Config.WaitFor,
		GeoCode: "mx",
		Super:   a.Config.Render,
	})
	if err != nil {
		return nil, err
	}

	if scraper.IsChallenge(body) {
		return nil, apperrors.NewChallenge(a.Source())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, apperrors.NewParsing(a.Source(), "parsing document", err)
	}

	var ids scraper.IDCounter
	return a.Parse(doc, &ids), nil
}
