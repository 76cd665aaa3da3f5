package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/career-crawler/internal/metrics"
)

// Coordinator runs the breadth-first search for a careers page. Each Run owns
// its own crawl state; a Coordinator can be reused for sequential runs.
type Coordinator struct {
	cfg     Config
	fetcher PageFetcher
	robots  RobotsPolicy
	matcher *KeywordMatcher
	ids     IDGenerator
	logger  *zap.Logger
}

// NewCoordinator wires the engine. robots and ids may be nil.
func NewCoordinator(
	cfg Config,
	fetcher PageFetcher,
	robots RobotsPolicy,
	matcher *KeywordMatcher,
	ids IDGenerator,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if robots == nil {
		robots = &allowAllPolicy{}
	}
	if matcher == nil {
		matcher = NewKeywordMatcher(cfg.Keywords)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Coordinator{
		cfg:     cfg,
		fetcher: fetcher,
		robots:  robots,
		matcher: matcher,
		ids:     ids,
		logger:  logger,
	}
}

// crawlState is everything shared by the workers of one run. It is created by
// Run and dropped when Run returns.
type crawlState struct {
	runID    string
	seed     string
	scope    *Scope
	signal   *ResultSignal
	frontier *Frontier
	logger   *zap.Logger

	pagesFetched atomic.Int64
	fetchErrors  atomic.Int64
	robotsDenied atomic.Int64
}

// Run crawls from seed until a careers link is found or the frontier is
// exhausted. Ordinary crawl failures never surface as errors; only an
// invalid seed or a canceled ctx do.
func (c *Coordinator) Run(ctx context.Context, seed string) (Result, error) {
	started := time.Now()

	seedURL, err := url.Parse(seed)
	if err != nil {
		return Result{SeedURL: seed}, fmt.Errorf("parse seed %q: %w: %w", seed, ErrInvalidSeed, err)
	}
	if !seedURL.IsAbs() || (seedURL.Scheme != "http" && seedURL.Scheme != "https") {
		return Result{SeedURL: seed}, fmt.Errorf("seed %q must be an absolute http(s) url: %w", seed, ErrInvalidSeed)
	}
	scope, err := NewScope(seedURL)
	if err != nil {
		return Result{SeedURL: seed}, err
	}

	runID := c.newRunID()
	logger := c.logger.With(zap.String("run_id", runID))
	signal := NewResultSignal()
	st := &crawlState{
		runID:    runID,
		seed:     seedURL.String(),
		scope:    scope,
		signal:   signal,
		frontier: NewFrontier(c.cfg.MaxDepth, signal, logger),
		logger:   logger,
	}

	logger.Info("crawl started",
		zap.String("seed", st.seed),
		zap.String("domain", scope.Base()),
		zap.Int("max_depth", c.cfg.MaxDepth),
		zap.Int("workers", c.cfg.Workers),
	)

	// The seed must be queued before any worker can observe an empty frontier.
	st.frontier.Enqueue(Entry{URL: st.seed, Depth: 0})

	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			st.frontier.Close()
		case <-signal.Done():
			st.frontier.Close()
		case <-stop:
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.work(ctx, st, id)
		}(i + 1)
	}
	wg.Wait()
	close(stop)
	<-watcherDone

	result := st.result(time.Since(started))
	switch {
	case result.Found:
		metrics.ObserveOutcome("found")
		logger.Info("crawl finished", zap.String("career_page", result.URL), zap.Duration("duration", result.Duration))
	case ctx.Err() != nil:
		metrics.ObserveOutcome("canceled")
		logger.Warn("crawl interrupted", zap.Error(ctx.Err()))
		return result, fmt.Errorf("crawl interrupted: %w", ctx.Err())
	default:
		metrics.ObserveOutcome("exhausted")
		logger.Info("crawl exhausted without a match",
			zap.Int64("pages_fetched", result.Stats.PagesFetched),
			zap.Duration("duration", result.Duration),
		)
	}
	return result, nil
}

func (c *Coordinator) work(ctx context.Context, st *crawlState, id int) {
	logger := st.logger.With(zap.Int("worker", id))
	for {
		entry, ok := st.frontier.Dequeue()
		if !ok {
			return
		}
		metrics.IncActiveWorkers()
		c.process(ctx, st, entry, logger)
		metrics.DecActiveWorkers()
		st.frontier.Done(entry)
	}
}

func (c *Coordinator) process(ctx context.Context, st *crawlState, entry Entry, logger *zap.Logger) {
	logger = logger.With(zap.String("url", entry.URL), zap.Int("depth", entry.Depth))

	if st.signal.Found() || ctx.Err() != nil {
		logger.Debug("crawl already settled; discarding entry")
		return
	}
	if entry.Depth > c.cfg.MaxDepth {
		logger.Debug("max depth reached; discarding entry")
		return
	}

	userAgent := c.fetcher.PickUserAgent()
	if !c.robots.Allowed(ctx, entry.URL, userAgent) {
		st.robotsDenied.Add(1)
		logger.Info("blocked by robots.txt")
		return
	}
	if st.signal.Found() {
		return
	}

	page, err := c.fetcher.Fetch(ctx, entry.URL, userAgent, c.redirectCheck(ctx, st, entry, userAgent))
	if err != nil {
		st.fetchErrors.Add(1)
		kind := fetchErrorKind(err)
		metrics.ObserveFetchError(kind)
		logger.Warn("fetch failed; dropping branch", zap.String("kind", kind), zap.Error(err))
		return
	}
	st.pagesFetched.Add(1)
	if st.signal.Found() {
		logger.Debug("discarding page fetched after match")
		return
	}
	logger.Info("crawled page", zap.Int("anchors", len(page.Anchors)), zap.Duration("took", page.Duration))

	base, err := url.Parse(page.URL)
	if err != nil {
		logger.Warn("unparseable page url", zap.Error(err))
		return
	}

	next := make([]Entry, 0, len(page.Anchors))
	for _, anchor := range page.Anchors {
		target, ok := resolveLink(base, anchor.Href)
		if !ok {
			continue
		}
		if signal, matched := c.matcher.Match(target, anchor.Text); matched {
			found := target.String()
			if st.signal.Set(found) {
				logger.Info("career page found",
					zap.String("career_page", found),
					zap.String("signal", string(signal)),
				)
			}
			return
		}
		if st.scope.Contains(target) {
			next = append(next, Entry{URL: target.String(), Depth: entry.Depth + 1})
		}
	}

	for _, e := range next {
		if st.frontier.Enqueue(e) {
			logger.Debug("discovered", zap.String("link", e.URL), zap.Int("link_depth", e.Depth))
		}
	}
}

// redirectCheck applies the same gates as a discovered link to every redirect
// hop: robots.txt must allow it and no other entry may have claimed it.
// A hop back to the entry's own URL is allowed.
func (c *Coordinator) redirectCheck(ctx context.Context, st *crawlState, entry Entry, userAgent string) RedirectCheck {
	return func(target string) error {
		if target == entry.URL {
			return nil
		}
		if !c.robots.Allowed(ctx, target, userAgent) {
			st.robotsDenied.Add(1)
			return fmt.Errorf("%w: %s disallowed by robots.txt", ErrRedirectBlocked, target)
		}
		if !st.frontier.Claim(target) {
			return fmt.Errorf("%w: %s already visited", ErrRedirectBlocked, target)
		}
		return nil
	}
}

func (st *crawlState) result(elapsed time.Duration) Result {
	enqueued, duplicates, dropped := st.frontier.Stats()
	found, ok := st.signal.URL()
	return Result{
		RunID:   st.runID,
		SeedURL: st.seed,
		Found:   ok,
		URL:     found,
		Visited: st.frontier.Visited(),
		Stats: Stats{
			PagesFetched: st.pagesFetched.Load(),
			FetchErrors:  st.fetchErrors.Load(),
			RobotsDenied: st.robotsDenied.Load(),
			Enqueued:     enqueued,
			Duplicates:   duplicates,
			DepthDropped: dropped,
		},
		Duration: elapsed,
	}
}

func (c *Coordinator) newRunID() string {
	if c.ids != nil {
		id, err := c.ids.NewID()
		if err == nil {
			return id
		}
		c.logger.Warn("run id generation failed", zap.Error(err))
	}
	return "run-" + strconv.FormatInt(time.Now().UnixNano(), 36)
}
