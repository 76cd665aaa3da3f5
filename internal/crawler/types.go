package crawler

import (
	"net/http"
	"time"
)

// Entry is a unit of frontier work: a URL and the BFS depth it was discovered at.
type Entry struct {
	URL   string
	Depth int
}

// Anchor is a single <a href> extracted from a page body.
type Anchor struct {
	Href string
	Text string
}

// RedirectCheck vets each redirect hop before it is followed. A non-nil
// error stops the chain and fails the fetch.
type RedirectCheck func(target string) error

// FetchRequest captures everything the HTTP collaborator needs for one GET.
type FetchRequest struct {
	URL           string
	Headers       http.Header
	Timeout       time.Duration
	CheckRedirect RedirectCheck
}

// FetchResponse is what the HTTP collaborator returns for any status code.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Page is a successfully fetched and parsed page.
type Page struct {
	URL        string
	StatusCode int
	UserAgent  string
	Anchors    []Anchor
	Bytes      int
	Duration   time.Duration
}

// Stats counts what happened during a crawl run.
type Stats struct {
	PagesFetched int64 `json:"pages_fetched"`
	FetchErrors  int64 `json:"fetch_errors"`
	RobotsDenied int64 `json:"robots_denied"`
	Enqueued     int64 `json:"enqueued"`
	Duplicates   int64 `json:"duplicates"`
	DepthDropped int64 `json:"depth_dropped"`
}

// Result is the outcome of Coordinator.Run.
type Result struct {
	RunID    string        `json:"run_id"`
	SeedURL  string        `json:"seed_url"`
	Found    bool          `json:"found"`
	URL      string        `json:"url,omitempty"`
	Visited  []string      `json:"visited"`
	Stats    Stats         `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// NotFoundMessage is printed when a crawl exhausts without a match.
const NotFoundMessage = "No career page found."

// String renders the result the way the CLI prints it.
func (r Result) String() string {
	if !r.Found {
		return NotFoundMessage
	}
	return r.URL
}
