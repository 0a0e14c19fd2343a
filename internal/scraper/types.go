package scraper

import (
	"regexp"
	"time"
)

// PropertyType is the canonical classification of a listing.
type PropertyType string

const (
	House      PropertyType = "House"
	Apartment  PropertyType = "Apartment"
	Land       PropertyType = "Land"
	Office     PropertyType = "Office"
	Commercial PropertyType = "Commercial"
	Other      PropertyType = "Other"
)

// PlaceholderImage is used when a card carries no usable image.
const PlaceholderImage = "https://via.placeholder.com/300x200"

// Listing is the canonical property record produced by the pipeline.
// It is immutable once constructed and rebuilt on every extraction pass.
type Listing struct {
	ID           string       `json:"id"`
	ExternalID   string       `json:"external_id"`
	Title        string       `json:"title"`
	Price        int          `json:"price"`
	Currency     string       `json:"currency"`
	Location     string       `json:"location"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	Bedrooms     int          `json:"bedrooms"`
	Bathrooms    int          `json:"bathrooms,omitempty"`
	SizeSqm      float64      `json:"size_sqm,omitempty"`
	PropertyType PropertyType `json:"property_type"`
	Link         string       `json:"link"`
	Images       []string     `json:"images"`
	Features     []string     `json:"features,omitempty"`
	Description  string       `json:"description,omitempty"`
	Source       string       `json:"source"`
	FetchedAt    time.Time    `json:"fetched_at"`
}

// SortKey selects the field search results are ordered by.
type SortKey string

const (
	SortByPrice SortKey = "price"
	SortByDate  SortKey = "date"
	SortBySize  SortKey = "size"
)

// SearchQuery describes one property search across all sources.
type SearchQuery struct {
	City     string `json:"city,omitempty"`
	Area     string `json:"area,omitempty"`
	ZipCode  string `json:"zip_code,omitempty"`
	PriceMin int    `json:"price_min,omitempty"`
	PriceMax int    `json:"price_max,omitempty"`
	Bedrooms int    `json:"bedrooms,omitempty"`

	Bathrooms    int          `json:"bathrooms,omitempty"`
	SizeMin      float64      `json:"size_min,omitempty"`
	SizeMax      float64      `json:"size_max,omitempty"`
	PropertyType PropertyType `json:"property_type,omitempty"`
	Features     []string     `json:"features,omitempty"`

	SortBy   SortKey `json:"sort_by,omitempty"`
	SortDesc bool    `json:"sort_desc,omitempty"`
	Page     int     `json:"page,omitempty"`
	Limit    int     `json:"limit,omitempty"`

	// IncludeStale disables the freshness filter on stored listings.
	IncludeStale bool `json:"include_stale,omitempty"`
}

// IDCounter hands out synthetic ids for cards without an external id.
// One counter is created per extraction run so parsing stays deterministic
// and runs never share state.
type IDCounter struct {
	n int
}

// Next returns the next synthetic id number.
func (c *IDCounter) Next() int {
	c.n++
	return c.n
}

// FieldSelectors holds the per-field selector fallback chains of one source.
type FieldSelectors struct {
	Card     Chain
	Title    Chain
	Link     Chain
	Price    Chain
	Location Chain
	Attrs    Chain
	Images   Chain
	Headline Chain
}

// AdapterConfig is the static configuration of one source adapter.
// Changing site markup should only ever require editing this, not code.
type AdapterConfig struct {
	Source  string
	BaseURL string

	// Render asks the fetch collaborator for JS-executed HTML; WaitFor is an
	// optional marker the collaborator waits for before capturing.
	Render  bool
	WaitFor string

	CitySlugs   map[string]string
	DefaultSlug string

	Selectors FieldSelectors

	// LinkCardAttr reads the link from an attribute on the card node itself,
	// before falling back to the Link chain.
	LinkCardAttr string

	// IDAttr reads the external id from a card attribute; ExternalID captures
	// it from the listing link. Both unset means synthetic ids.
	IDAttr     string
	ExternalID *regexp.Regexp

	// MaxCards caps how many cards one parse pass keeps.
	MaxCards int

	// BuildURL maps a query onto the site's URL scheme. Pure and deterministic.
	BuildURL func(q SearchQuery) string
}
