package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/career-crawler/internal/api"
	"github.com/JakeFAU/career-crawler/internal/config"
	"github.com/JakeFAU/career-crawler/internal/crawler"
	goqueryextractor "github.com/JakeFAU/career-crawler/internal/extractor/goquery"
	collyfetcher "github.com/JakeFAU/career-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/career-crawler/internal/id/uuid"
	"github.com/JakeFAU/career-crawler/internal/logging"
	"github.com/JakeFAU/career-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/career-crawler/internal/storage/local"
)

func runCrawl(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	seed, err := crawler.NormalizeSeed(opts.seed)
	if err != nil {
		logger.Error("invalid seed url", zap.String("url", opts.seed), zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := api.NewRunTracker()
	opsDone := startOpsServer(ctx, cfg.Metrics.Addr, tracker, logger)

	coordinator := buildCoordinator(cfg, logger)
	tracker.Start(seed)
	result, runErr := coordinator.Run(ctx, seed)
	tracker.Finish(result, runErr)

	err = report(cmd, cfg, opts, result, runErr, logger)
	if opsDone != nil {
		lingerOps(ctx, cfg.Metrics.Linger, logger)
		stop()
		<-opsDone
	}
	return err
}

// report archives and prints the result. An interrupted crawl still prints
// what it visited and then returns the interruption.
func report(
	cmd *cobra.Command,
	cfg config.Config,
	opts *rootOptions,
	result crawler.Result,
	runErr error,
	logger *zap.Logger,
) error {
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run crawler: %w", runErr)
	}
	if cfg.Output.ResultsDir != "" {
		if err := archiveResult(cmd.Context(), cfg.Output.ResultsDir, result, logger); err != nil {
			return err
		}
	}
	if err := printResult(cmd.OutOrStdout(), result, opts); err != nil {
		return fmt.Errorf("print result: %w", err)
	}
	return runErr
}

// lingerOps keeps the ops server up so /v1/run can serve the finished run.
// An interrupt ends the wait early.
func lingerOps(ctx context.Context, linger time.Duration, logger *zap.Logger) {
	if linger <= 0 || ctx.Err() != nil {
		return
	}
	logger.Info("ops server lingering", zap.Duration("linger", linger))
	timer := time.NewTimer(linger)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func buildCoordinator(cfg config.Config, logger *zap.Logger) *crawler.Coordinator {
	engineCfg := cfg.CrawlerConfig()

	client := collyfetcher.New(collyfetcher.Config{
		Timeout:     cfg.HTTP.Timeout,
		MaxBodySize: cfg.HTTP.MaxBodyBytes,
	})

	var limiter crawler.RateLimiter
	if cfg.Politeness.RateLimitPerHost > 0 {
		limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Politeness.RateLimitPerHost,
			DefaultBurst: cfg.Politeness.Burst,
		})
	}

	fetcher := crawler.NewFetcher(
		engineCfg.FetcherConfig(),
		client,
		goqueryextractor.New(),
		limiter,
		logger.Named("fetcher"),
	)
	robots := crawler.NewRobotsCache(
		engineCfg.RespectRobots,
		client,
		engineCfg.RobotsUserAgent,
		cfg.HTTP.RobotsTimeout,
		logger.Named("robots"),
	)

	return crawler.NewCoordinator(
		engineCfg,
		fetcher,
		robots,
		crawler.NewKeywordMatcher(engineCfg.Keywords),
		uuid.New(),
		logger.Named("crawler"),
	)
}

// startOpsServer serves the ops routes until ctx ends. It returns nil when
// addr is empty.
func startOpsServer(ctx context.Context, addr string, tracker *api.RunTracker, logger *zap.Logger) <-chan struct{} {
	if addr == "" {
		return nil
	}
	done := make(chan struct{})
	server := api.NewServer(tracker, logger.Named("ops"))
	go func() {
		defer close(done)
		if err := server.Serve(ctx, addr); err != nil {
			logger.Warn("ops server stopped", zap.Error(err))
		}
	}()
	return done
}

func archiveResult(ctx context.Context, dir string, result crawler.Result, logger *zap.Logger) error {
	store, err := local.New(local.Config{BaseDir: dir})
	if err != nil {
		return fmt.Errorf("open results dir: %w", err)
	}
	uri, err := store.Save(ctx, result)
	if err != nil {
		return fmt.Errorf("archive result: %w", err)
	}
	logger.Info("result archived", zap.String("run_id", result.RunID), zap.String("uri", uri))
	return nil
}

func printResult(w io.Writer, result crawler.Result, opts *rootOptions) error {
	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return nil
	}

	if _, err := fmt.Fprintln(w, result.String()); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if !opts.showVisited {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Visited pages:"); err != nil {
		return fmt.Errorf("write visited: %w", err)
	}
	for _, u := range result.Visited {
		if _, err := fmt.Fprintf(w, "  %s\n", u); err != nil {
			return fmt.Errorf("write visited: %w", err)
		}
	}
	return nil
}
