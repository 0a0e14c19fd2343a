package store

import (
	"fmt"
	"strings"
	"time"

	"casahunt/propertyworker/internal/scraper"
)

const searchResultLimit = 50

const listingColumns = `id, external_id, source, title, price, currency, location, city,
	state, bedrooms, bathrooms, size_sqm, property_type, link, description, last_seen_at`

// buildSearchSQL translates a query into a parameterized SELECT. City
// matching is a substring match against both city and location because
// sources disagree on which field carries the neighborhood.
func buildSearchSQL(q scraper.SearchQuery, freshness time.Duration) (string, []interface{}) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.IncludeStale {
		conds = append(conds, "last_seen_at >= "+arg(time.Now().Add(-freshness)))
	}
	if q.City != "" {
		p := arg("%" + q.City + "%")
		conds = append(conds, fmt.Sprintf("(city ILIKE %s OR location ILIKE %s)", p, p))
	}
	if q.Area != "" {
		conds = append(conds, "location ILIKE "+arg("%"+q.Area+"%"))
	}
	if q.PriceMin > 0 {
		conds = append(conds, "price >= "+arg(q.PriceMin))
	}
	if q.PriceMax > 0 {
		conds = append(conds, "price <= "+arg(q.PriceMax))
	}
	if q.Bedrooms > 0 {
		conds = append(conds, "bedrooms >= "+arg(q.Bedrooms))
	}
	if q.Bathrooms > 0 {
		conds = append(conds, "bathrooms >= "+arg(q.Bathrooms))
	}
	if q.SizeMin > 0 {
		conds = append(conds, "size_sqm >= "+arg(q.SizeMin))
	}
	if q.SizeMax > 0 {
		conds = append(conds, "size_sqm <= "+arg(q.SizeMax))
	}
	if q.PropertyType != "" {
		conds = append(conds, "property_type = "+arg(string(q.PropertyType)))
	}

	sql := "SELECT " + listingColumns + " FROM properties"
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY last_seen_at DESC, price ASC LIMIT " + arg(searchResultLimit)

	return sql, args
}
