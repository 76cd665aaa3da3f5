// Package cmd defines and implements the CLI for the career-crawler executable.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/career-crawler/internal/crawler"
)

type rootOptions struct {
	seed        string
	configFile  string
	showVisited bool
	jsonOutput  bool
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "career-crawler",
		Short: "Find a company's careers page by crawling its site breadth-first.",
		Long: `career-crawler starts at a seed URL and walks the site's link graph
breadth-first, staying inside the seed's registrable domain and honoring
robots.txt. It stops at the first link that looks like a careers or jobs
page and prints its URL, or "No career page found." when the crawl runs
out of links.`,
		Example:       "  career-crawler --url example.com\n  career-crawler -u https://example.com --max-depth 2 --show-visited",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.seed, "url", "u", "", "seed URL to start crawling from")
	flags.StringVar(&opts.configFile, "config", "", "config file (default is ./career-crawler.yaml or $HOME/career-crawler.yaml)")
	flags.BoolVar(&opts.showVisited, "show-visited", false, "print every visited URL after the result")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print the full result as JSON")

	flags.Int("max-depth", crawler.DefaultMaxDepth, "maximum link depth to follow from the seed")
	flags.Int("workers", crawler.DefaultWorkers, "number of crawl workers")
	flags.Int("max-fetches", crawler.DefaultMaxConcurrentFetches, "maximum concurrent HTTP fetches")
	flags.Duration("timeout", crawler.DefaultRequestTimeout, "per-request timeout")
	flags.Duration("min-delay", crawler.DefaultMinDelay, "minimum politeness delay before each fetch")
	flags.Duration("max-delay", crawler.DefaultMaxDelay, "maximum politeness delay before each fetch")
	flags.Float64("rate-limit", 0, "per-host requests per second (0 disables)")
	flags.Bool("ignore-robots", false, "do not fetch or obey robots.txt")
	flags.String("results-dir", "", "write each run's JSON result into this directory")
	flags.String("metrics-addr", "", "serve /metrics, /healthz and /v1/run on this address")
	flags.Duration("metrics-linger", 10*time.Second, "keep the ops server up this long after the crawl ends")
	flags.Bool("dev-log", false, "use the human-readable development logger")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	if err := cmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("mark url flag required: %v", err))
	}
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
