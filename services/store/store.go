package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"casahunt/propertyworker/internal/scraper"
	"casahunt/propertyworker/logger"
	apperrors "casahunt/propertyworker/pkg/errors"
)

// Store persists listings and search history in Postgres. Listings are
// keyed by (source, external_id); an upsert refreshes last_seen_at, and
// reads only surface rows seen within the freshness window.
type Store struct {
	pool      *pgxpool.Pool
	freshness time.Duration
	log       *logger.Logger
}

// New connects to Postgres and ensures the schema exists.
func New(ctx context.Context, databaseURL string, freshness time.Duration) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.NewStore("creating connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStore("pinging database", err)
	}

	s := &Store{
		pool:      pool,
		freshness: freshness,
		log:       logger.ForComponent("store"),
	}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Upsert writes listings inside per-listing transactions and returns how
// many were saved. One bad listing never rolls back its siblings; failures
// are logged and counted out.
func (s *Store) Upsert(ctx context.Context, listings []scraper.Listing) (int, error) {
	saved := 0
	for _, l := range listings {
		if err := s.upsertOne(ctx, l); err != nil {
			s.log.Warn().Err(err).Str("listing", l.ID).Msg("failed to save listing")
			continue
		}
		saved++
	}
	s.log.Debug().Int("saved", saved).Int("total", len(listings)).Msg("upserted listings")
	return saved, nil
}

func (s *Store) upsertOne(ctx context.Context, l scraper.Listing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewStore("beginning transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO properties (
			id, external_id, source, title, price, currency, location, city,
			state, bedrooms, bathrooms, size_sqm, property_type, link,
			description, last_seen_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (source, external_id) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			location = EXCLUDED.location,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			size_sqm = EXCLUDED.size_sqm,
			property_type = EXCLUDED.property_type,
			link = EXCLUDED.link,
			description = EXCLUDED.description,
			last_seen_at = EXCLUDED.last_seen_at`,
		l.ID, l.ExternalID, l.Source, l.Title, l.Price, l.Currency,
		l.Location, l.City, l.State, l.Bedrooms, l.Bathrooms, l.SizeSqm,
		string(l.PropertyType), l.Link, l.Description, l.FetchedAt)
	if err != nil {
		return apperrors.NewStore("upserting property", err)
	}

	// Children are replaced on every pass; a listing's images and features
	// have no identity of their own.
	if _, err := tx.Exec(ctx, `DELETE FROM property_images WHERE property_id = $1`, l.ID); err != nil {
		return apperrors.NewStore("clearing images", err)
	}
	for i, img := range l.Images {
		if _, err := tx.Exec(ctx,
			`INSERT INTO property_images (property_id, url, is_primary) VALUES ($1, $2, $3)`,
			l.ID, img, i == 0); err != nil {
			return apperrors.NewStore("inserting image", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM property_features WHERE property_id = $1`, l.ID); err != nil {
		return apperrors.NewStore("clearing features", err)
	}
	for _, feature := range l.Features {
		if _, err := tx.Exec(ctx,
			`INSERT INTO property_features (property_id, feature) VALUES ($1, $2)`,
			l.ID, feature); err != nil {
			return apperrors.NewStore("inserting feature", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewStore("committing listing", err)
	}
	return nil
}

// Search returns stored listings matching the query, newest first. Rows
// outside the freshness window are excluded unless the query opts into
// stale results.
func (s *Store) Search(ctx context.Context, q scraper.SearchQuery) ([]scraper.Listing, error) {
	sql, args := buildSearchSQL(q, s.freshness)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.NewStore("querying properties", err)
	}
	defer rows.Close()

	var listings []scraper.Listing
	for rows.Next() {
		var l scraper.Listing
		var ptype string
		if err := rows.Scan(&l.ID, &l.ExternalID, &l.Source, &l.Title, &l.Price,
			&l.Currency, &l.Location, &l.City, &l.State, &l.Bedrooms,
			&l.Bathrooms, &l.SizeSqm, &ptype, &l.Link, &l.Description,
			&l.FetchedAt); err != nil {
			return nil, apperrors.NewStore("scanning property row", err)
		}
		l.PropertyType = scraper.PropertyType(ptype)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStore("iterating property rows", err)
	}

	if err := s.hydrate(ctx, listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// hydrate attaches images and features to already scanned listings.
func (s *Store) hydrate(ctx context.Context, listings []scraper.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	ids := make([]string, len(listings))
	index := make(map[string]int, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
		index[l.ID] = i
	}

	rows, err := s.pool.Query(ctx,
		`SELECT property_id, url FROM property_images WHERE property_id = ANY($1) ORDER BY is_primary DESC, id`, ids)
	if err != nil {
		return apperrors.NewStore("querying images", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid, url string
		if err := rows.Scan(&pid, &url); err != nil {
			return apperrors.NewStore("scanning image row", err)
		}
		if i, ok := index[pid]; ok {
			listings[i].Images = append(listings[i].Images, url)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewStore("iterating image rows", err)
	}

	frows, err := s.pool.Query(ctx,
		`SELECT property_id, feature FROM property_features WHERE property_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return apperrors.NewStore("querying features", err)
	}
	defer frows.Close()
	for frows.Next() {
		var pid, feature string
		if err := frows.Scan(&pid, &feature); err != nil {
			return apperrors.NewStore("scanning feature row", err)
		}
		if i, ok := index[pid]; ok {
			listings[i].Features = append(listings[i].Features, feature)
		}
	}
	if err := frows.Err(); err != nil {
		return apperrors.NewStore("iterating feature rows", err)
	}
	return nil
}

// LogSearch records a search in the history table. History is best effort;
// errors are logged and swallowed so they never fail a search.
func (s *Store) LogSearch(ctx context.Context, q scraper.SearchQuery, resultCount int, sources []string) {
	payload, err := json.Marshal(q)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode search query for history")
		return
	}
	if sources == nil {
		sources = []string{}
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_history (id, query, sources, result_count) VALUES ($1, $2, $3, $4)`,
		uuid.New(), payload, sources, resultCount)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to record search history")
	}
}

// SearchRecord is one row of search history.
type SearchRecord struct {
	ID          uuid.UUID           `json:"id"`
	Query       scraper.SearchQuery `json:"query"`
	Sources     []string            `json:"sources"`
	ResultCount int                 `json:"result_count"`
	SearchedAt  time.Time           `json:"searched_at"`
}

// RecentSearches returns the latest search history entries, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, query, sources, result_count, searched_at
		 FROM search_history ORDER BY searched_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.NewStore("querying search history", err)
	}
	defer rows.Close()

	var records []SearchRecord
	for rows.Next() {
		var r SearchRecord
		var payload []byte
		if err := rows.Scan(&r.ID, &payload, &r.Sources, &r.ResultCount, &r.SearchedAt); err != nil {
			return nil, apperrors.NewStore("scanning history row", err)
		}
		if err := json.Unmarshal(payload, &r.Query); err != nil {
			s.log.Warn().Err(err).Str("id", r.ID.String()).Msg("skipping undecodable history entry")
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStore("iterating history rows", err)
	}
	return records, nil
}

// Stats summarizes the stored corpus.
type Stats struct {
	TotalProperties int            `json:"total_properties"`
	FreshProperties int            `json:"fresh_properties"`
	AvgPrice        int            `json:"avg_price"`
	MinPrice        int            `json:"min_price"`
	MaxPrice        int            `json:"max_price"`
	BySource        map[string]int `json:"by_source"`
	LastUpdated     time.Time      `json:"last_updated"`
}

// Stats reports listing counts, price spread within the freshness window,
// and per-source totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{BySource: make(map[string]int)}

	cutoff := time.Now().Add(-s.freshness)
	err := s.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE last_seen_at >= $1),
		       coalesce(avg(price) FILTER (WHERE last_seen_at >= $1), 0)::bigint,
		       coalesce(min(price) FILTER (WHERE last_seen_at >= $1), 0),
		       coalesce(max(price) FILTER (WHERE last_seen_at >= $1), 0),
		       coalesce(max(last_seen_at), 'epoch'::timestamptz)
		FROM properties`, cutoff).
		Scan(&stats.TotalProperties, &stats.FreshProperties, &stats.AvgPrice,
			&stats.MinPrice, &stats.MaxPrice, &stats.LastUpdated)
	if err != nil {
		return Stats{}, apperrors.NewStore("querying totals", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT source, count(*) FROM properties GROUP BY source`)
	if err != nil {
		return Stats{}, apperrors.NewStore("querying per-source counts", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return Stats{}, apperrors.NewStore("scanning source count", err)
		}
		stats.BySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, apperrors.NewStore("iterating source counts", err)
	}
	return stats, nil
}
