package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/career-crawler/internal/metrics"
)

const defaultRobotsTimeout = 10 * time.Second

// RobotsCache enforces robots.txt per origin. Rules are fetched lazily on the
// first query for an origin and cached for the rest of the run. A failed
// fetch caches a nil ruleset, which allows everything.
type RobotsCache struct {
	client    HTTPClient
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.RWMutex
	rules   map[string]*robotstxt.RobotsData
	flights singleflight.Group
}

// NewRobotsCache builds the robots policy. With respect unset every URL is allowed.
func NewRobotsCache(
	respect bool,
	client HTTPClient,
	userAgent string,
	timeout time.Duration,
	logger *zap.Logger,
) RobotsPolicy {
	if !respect {
		return &allowAllPolicy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRobotsTimeout
	}
	return &RobotsCache{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
		rules:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed implements RobotsPolicy.
func (r *RobotsCache) Allowed(ctx context.Context, rawURL, userAgent string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	data := r.load(ctx, parsed)
	if data == nil {
		metrics.ObserveRobots("unknown")
		return true
	}
	allowed := data.TestAgent(robotsPath(parsed), userAgent)
	if allowed {
		metrics.ObserveRobots("allowed")
	} else {
		metrics.ObserveRobots("denied")
	}
	return allowed
}

func (r *RobotsCache) load(ctx context.Context, parsed *url.URL) *robotstxt.RobotsData {
	origin := originOf(parsed)
	if data, ok := r.cached(origin); ok {
		return data
	}

	v, _, _ := r.flights.Do(origin, func() (any, error) {
		// A flight that finished between our cache miss and Do has already
		// stored the result.
		if data, ok := r.cached(origin); ok {
			return data, nil
		}
		data, err := r.fetch(ctx, origin)
		if err != nil {
			r.logger.Warn("robots fetch failed; allowing access",
				zap.String("origin", origin),
				zap.Error(err),
			)
		}
		r.mu.Lock()
		r.rules[origin] = data
		r.mu.Unlock()
		return data, nil
	})
	data, _ := v.(*robotstxt.RobotsData)
	return data
}

func (r *RobotsCache) cached(origin string) (*robotstxt.RobotsData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.rules[origin]
	return data, ok
}

func (r *RobotsCache) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	robotsURL := origin + "/robots.txt"
	headers := http.Header{}
	if r.userAgent != "" {
		headers.Set("User-Agent", r.userAgent)
	}
	resp, err := r.client.Get(ctx, FetchRequest{URL: robotsURL, Headers: headers, Timeout: r.timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRobotsFetch, err)
	}
	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: %w", ErrRobotsFetch, &StatusError{URL: robotsURL, StatusCode: resp.StatusCode})
	}
	data, err := robotstxt.FromBytes(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrRobotsFetch, err)
	}
	return data, nil
}

func originOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func robotsPath(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

type allowAllPolicy struct{}

func (a *allowAllPolicy) Allowed(context.Context, string, string) bool { return true }
