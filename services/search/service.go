package search

import (
	"context"
	"sort"

	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/logger"
	apperrors "casahunt/propertyworker/pkg/errors"
	"casahunt/propertyworker/services/publisher"
)

// ListingStore is the persistence surface the search service needs.
type ListingStore interface {
	Search(ctx context.Context, q scraper.SearchQuery) ([]scraper.Listing, error)
	Upsert(ctx context.Context, listings []scraper.Listing) (int, error)
	LogSearch(ctx context.Context, q scraper.SearchQuery, resultCount int, sources []string)
}

// Response is one answered search.
type Response struct {
	Listings  []scraper.Listing `json:"listings"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	Limit     int               `json:"limit"`
	FromCache bool              `json:"from_cache"`
	Sources   []string          `json:"sources,omitempty"`
	Failed    []string          `json:"failed_sources,omitempty"`
}

// Service answers property searches read-through: stored fresh listings
// first, live scraping on a miss. Store and publisher are optional; without
// them the service degrades to scrape-only.
type Service struct {
	orchestrator *Orchestrator
	store        ListingStore
	publisher    publisher.Publisher
	log          *logger.Logger
}

// NewService wires the search service.
func NewService(o *Orchestrator, store ListingStore, pub publisher.Publisher) *Service {
	return &Service{
		orchestrator: o,
		store:        store,
		publisher:    pub,
		log:          logger.ForComponent("search"),
	}
}

// validateQuery rejects bound pairs that can never match anything.
func validateQuery(q scraper.SearchQuery) error {
	if q.PriceMin > 0 && q.PriceMax > 0 && q.PriceMin > q.PriceMax {
		return apperrors.NewValidation("query", "price_min must not exceed price_max")
	}
	if q.SizeMin > 0 && q.SizeMax > 0 && q.SizeMin > q.SizeMax {
		return apperrors.NewValidation("query", "size_min must not exceed size_max")
	}
	return nil
}

// Search answers a query, preferring stored fresh listings over a live
// scrape.
func (s *Service) Search(ctx context.Context, q scraper.SearchQuery) (Response, error) {
	if err := validateQuery(q); err != nil {
		return Response{}, err
	}
	if s.store != nil {
		stored, err := s.store.Search(ctx, q)
		if err != nil {
			s.log.Warn().Err(err).Msg("stored search failed, falling through to scrape")
		} else if len(stored) > 0 {
			s.log.Info().Int("listings", len(stored)).Msg("serving stored listings")
			resp := s.respond(stored, q, nil)
			resp.FromCache = true
			return resp, nil
		}
	}
	return s.scrape(ctx, q)
}

// Refresh always scrapes live, bypassing the stored read. The background
// worker uses it to keep popular cities warm.
func (s *Service) Refresh(ctx context.Context, q scraper.SearchQuery) (Response, error) {
	if err := validateQuery(q); err != nil {
		return Response{}, err
	}
	return s.scrape(ctx, q)
}

func (s *Service) scrape(ctx context.Context, q scraper.SearchQuery) (Response, error) {
	result := s.orchestrator.ScrapeAll(ctx, q)

	listings := scraper.Dedupe(result.Listings)
	listings = filterListings(listings, q)

	if s.store != nil && len(listings) > 0 {
		if _, err := s.store.Upsert(ctx, listings); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist scraped listings")
		}
	}
	s.publish(result)
	if s.store != nil {
		// History is best effort and never fails the search.
		s.store.LogSearch(ctx, q, len(listings), result.Sources)
	}

	// Source failures are data, not errors. A run where every source
	// failed still answers with an empty list and the failed sources.
	resp := s.respond(listings, q, result.Errors)
	resp.Sources = result.Sources
	return resp, nil
}

// publish pushes each source's fresh listings onto its stream.
func (s *Service) publish(result Result) {
	if s.publisher == nil {
		return
	}
	bySource := make(map[string][]scraper.Listing)
	for _, l := range result.Listings {
		bySource[l.Source] = append(bySource[l.Source], l)
	}
	for source, listings := range bySource {
		if err := s.publisher.PublishListings(source, listings); err != nil {
			s.log.Warn().Err(err).Str("source", source).Msg("failed to publish listings")
		}
	}
}

func (s *Service) respond(listings []scraper.Listing, q scraper.SearchQuery, errs []SourceError) Response {
	sortListings(listings, q)

	total := len(listings)
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var failed []string
	for _, e := range errs {
		failed = append(failed, e.Source)
	}

	return Response{
		Listings: paginate(listings, page, limit),
		Total:    total,
		Page:     page,
		Limit:    limit,
		Failed:   failed,
	}
}

// filterListings applies the query bounds locally. Not every source honors
// filters in its search URL, so scraped results are re-checked.
func filterListings(listings []scraper.Listing, q scraper.SearchQuery) []scraper.Listing {
	var out []scraper.Listing
	for _, l := range listings {
		if q.PriceMin > 0 && l.Price < q.PriceMin {
			continue
		}
		if q.PriceMax > 0 && l.Price > q.PriceMax {
			continue
		}
		if q.Bedrooms > 0 && l.Bedrooms > 0 && l.Bedrooms < q.Bedrooms {
			continue
		}
		if q.Bathrooms > 0 && l.Bathrooms > 0 && l.Bathrooms < q.Bathrooms {
			continue
		}
		if q.SizeMin > 0 && l.SizeSqm > 0 && l.SizeSqm < q.SizeMin {
			continue
		}
		if q.SizeMax > 0 && l.SizeSqm > 0 && l.SizeSqm > q.SizeMax {
			continue
		}
		if q.PropertyType != "" && l.PropertyType != scraper.Other && l.PropertyType != q.PropertyType {
			continue
		}
		out = append(out, l)
	}
	return out
}

func sortListings(listings []scraper.Listing, q scraper.SearchQuery) {
	var less func(a, b scraper.Listing) bool
	switch q.SortBy {
	case scraper.SortByPrice:
		less = func(a, b scraper.Listing) bool { return a.Price < b.Price }
	case scraper.SortBySize:
		less = func(a, b scraper.Listing) bool { return a.SizeSqm < b.SizeSqm }
	case scraper.SortByDate:
		less = func(a, b scraper.Listing) bool { return a.FetchedAt.Before(b.FetchedAt) }
	default:
		return
	}
	sort.SliceStable(listings, func(i, j int) bool {
		if q.SortDesc {
			return less(listings[j], listings[i])
		}
		return less(listings[i], listings[j])
	})
}

func paginate(listings []scraper.Listing, page, limit int) []scraper.Listing {
	start := (page - 1) * limit
	if start >= len(listings) {
		return []scraper.Listing{}
	}
	end := start + limit
	if end > len(listings) {
		end = len(listings)
	}
	return listings[start:end]
}
