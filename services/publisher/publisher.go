package publisher

import "casahunt/propertyworker/internal/scraper"

// Publisher fans freshly scraped listings out to downstream consumers.
type Publisher interface {
	// PublishListings publishes one source's listings to its stream
	PublishListings(source string, listings []scraper.Listing) error

	// TrimStreams trims all listing streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
