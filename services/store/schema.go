package store

import (
	"context"

	apperrors "casahunt/propertyworker/pkg/errors"
)

// Schema mirrors what the search pipeline needs and nothing more. Child
// tables are rebuilt wholesale on every upsert, so they carry no updated_at
// bookkeeping of their own.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		external_id TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		price BIGINT NOT NULL,
		currency TEXT NOT NULL DEFAULT 'MXN',
		location TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		bedrooms INT NOT NULL DEFAULT 0,
		bathrooms INT NOT NULL DEFAULT 0,
		size_sqm DOUBLE PRECISION NOT NULL DEFAULT 0,
		property_type TEXT NOT NULL DEFAULT 'Other',
		link TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source, external_id)
	)`,
	`CREATE TABLE IF NOT EXISTS property_images (
		id BIGSERIAL PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS property_features (
		id BIGSERIAL PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		feature TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS search_history (
		id UUID PRIMARY KEY,
		query JSONB NOT NULL,
		sources TEXT[] NOT NULL DEFAULT '{}',
		result_count INT NOT NULL DEFAULT 0,
		searched_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_city ON properties (lower(city))`,
	`CREATE INDEX IF NOT EXISTS idx_properties_last_seen ON properties (last_seen_at)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_price ON properties (price)`,
	`CREATE INDEX IF NOT EXISTS idx_property_images_property ON property_images (property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_property_features_property ON property_features (property_id)`,
}

func (s *Store) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return apperrors.NewStore("initializing schema", err)
		}
	}
	return nil
}
