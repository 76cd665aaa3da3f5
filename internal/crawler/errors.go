package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks timeouts, refused connections, DNS failures and similar.
	ErrTransport = errors.New("transport error")
	// ErrParse marks an HTML body the extractor could not parse.
	ErrParse = errors.New("parse error")
	// ErrRobotsFetch marks a robots.txt that could not be fetched or parsed.
	ErrRobotsFetch = errors.New("robots fetch failed")
	// ErrInvalidSeed is the only error that aborts a run before it starts.
	ErrInvalidSeed = errors.New("invalid seed url")
	// ErrRedirectBlocked marks a redirect hop refused by robots.txt or the visited set.
	ErrRedirectBlocked = errors.New("redirect blocked")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d (%s) for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// FetchError is returned by Fetcher.Fetch; the branch it belongs to yields no links.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// fetchErrorKind buckets a fetch failure for logs and metrics.
func fetchErrorKind(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrRedirectBlocked):
		return "redirect"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "other"
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
