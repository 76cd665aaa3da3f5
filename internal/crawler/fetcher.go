package crawler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/career-crawler/internal/metrics"
)

// DefaultUserAgents is the identity pool rotated per request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
}

const defaultAccept = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"

// FetcherConfig controls politeness and admission for page fetches.
type FetcherConfig struct {
	UserAgents           []string
	Timeout              time.Duration
	MinDelay             time.Duration
	MaxDelay             time.Duration
	MaxConcurrentFetches int
}

// Fetcher performs one polite GET per call and hands the body to the
// extractor. The admission limiter bounds open requests independently of how
// many workers are pulling from the frontier.
type Fetcher struct {
	client    HTTPClient
	extractor AnchorExtractor
	limiter   RateLimiter
	admission *semaphore.Weighted
	cfg       FetcherConfig
	logger    *zap.Logger

	intN  func(n int64) int64
	pause func(ctx context.Context, d time.Duration) error
}

// NewFetcher wires the politeness layer around client. limiter may be nil.
func NewFetcher(
	cfg FetcherConfig,
	client HTTPClient,
	extractor AnchorExtractor,
	limiter RateLimiter,
	logger *zap.Logger,
) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = DefaultMaxConcurrentFetches
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Fetcher{
		client:    client,
		extractor: extractor,
		limiter:   limiter,
		admission: semaphore.NewWeighted(int64(cfg.MaxConcurrentFetches)),
		cfg:       cfg,
		logger:    logger,
		intN:      rand.Int64N,
		pause:     sleepContext,
	}
}

// PickUserAgent returns a random identity from the pool.
func (f *Fetcher) PickUserAgent() string {
	return f.cfg.UserAgents[f.intN(int64(len(f.cfg.UserAgents)))]
}

// Fetch implements PageFetcher. Any transport error, timeout, refused
// redirect or non-2xx status yields a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, userAgent string, redirects RedirectCheck) (Page, error) {
	if userAgent == "" {
		userAgent = f.PickUserAgent()
	}

	if err := f.admission.Acquire(ctx, 1); err != nil {
		return Page{}, &FetchError{URL: rawURL, Err: fmt.Errorf("%w: admission: %w", ErrTransport, err)}
	}
	resp, err := f.get(ctx, rawURL, userAgent, redirects)
	f.admission.Release(1)
	if err != nil {
		return Page{}, &FetchError{URL: rawURL, Err: err}
	}
	metrics.ObservePage(rawURL, resp.StatusCode, len(resp.Body))
	if !isSuccess(resp.StatusCode) {
		return Page{}, &FetchError{URL: rawURL, Err: &StatusError{URL: rawURL, StatusCode: resp.StatusCode}}
	}

	anchors, err := f.extractor.ExtractAnchors(resp.Body)
	if err != nil {
		f.logger.Debug("anchor extraction failed; treating page as link-free",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		anchors = nil
	}

	// Links resolve against the post-redirect URL.
	pageURL := resp.URL
	if pageURL == "" {
		pageURL = rawURL
	}
	return Page{
		URL:        pageURL,
		StatusCode: resp.StatusCode,
		UserAgent:  userAgent,
		Anchors:    anchors,
		Bytes:      len(resp.Body),
		Duration:   resp.Duration,
	}, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, userAgent string, redirects RedirectCheck) (FetchResponse, error) {
	if err := f.pause(ctx, f.politenessDelay()); err != nil {
		return FetchResponse{}, fmt.Errorf("%w: politeness delay: %w", ErrTransport, err)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return FetchResponse{}, fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	headers := http.Header{}
	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", defaultAccept)
	resp, err := f.client.Get(ctx, FetchRequest{
		URL:           rawURL,
		Headers:       headers,
		Timeout:       f.cfg.Timeout,
		CheckRedirect: redirects,
	})
	if err != nil {
		return FetchResponse{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}

// politenessDelay is uniform over [MinDelay, MaxDelay].
func (f *Fetcher) politenessDelay() time.Duration {
	span := f.cfg.MaxDelay - f.cfg.MinDelay
	if span <= 0 {
		return f.cfg.MinDelay
	}
	return f.cfg.MinDelay + time.Duration(f.intN(int64(span)+1))
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("sleep canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
