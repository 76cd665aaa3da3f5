package crawler

import (
	"context"
)

// HTTPClient issues a GET and returns status + body for any status code.
// It returns an error only when no response was obtained.
type HTTPClient interface {
	Get(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// AnchorExtractor pulls anchors out of an HTML body.
type AnchorExtractor interface {
	ExtractAnchors(body []byte) ([]Anchor, error)
}

// RobotsPolicy decides whether a URL may be fetched by the given agent.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL, userAgent string) bool
}

// PageFetcher retrieves and parses a single page. redirects may be nil, in
// which case every hop is followed.
type PageFetcher interface {
	PickUserAgent() string
	Fetch(ctx context.Context, rawURL, userAgent string, redirects RedirectCheck) (Page, error)
}

// RateLimiter paces requests per host.
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
