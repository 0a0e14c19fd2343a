package fetch

import "context"

// Options tunes one fetch. Render asks for JS-executed HTML; WaitFor is a
// CSS selector the renderer waits for before capturing; Super upgrades to
// residential proxies for the hard targets.
type Options struct {
	Render  bool
	WaitFor string
	GeoCode string
	Super   bool

	// Headers are forwarded to the target on top of the default browser
	// headers.
	Headers map[string]string
}

// Fetcher retrieves HTML for one listing source.
type Fetcher interface {
	Fetch(ctx context.Context, source, targetURL string, opts Options) (string, error)
}
