package crawler

import (
	"fmt"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxDepth             = 3
	DefaultWorkers              = 5
	DefaultMaxConcurrentFetches = 10
	DefaultRequestTimeout       = 5 * time.Second
	DefaultMinDelay             = time.Second
	DefaultMaxDelay             = 3 * time.Second
)

// Config holds the immutable parameters of one crawl run. It is decoupled from
// Viper so the engine can be built and tested without a config file.
type Config struct {
	MaxDepth             int
	Workers              int
	MaxConcurrentFetches int
	RequestTimeout       time.Duration
	MinDelay             time.Duration
	MaxDelay             time.Duration
	UserAgents           []string
	RobotsUserAgent      string
	RespectRobots        bool
	Keywords             []string
}

// DefaultConfig returns the stock settings: depth 3, five workers, ten fetches.
func DefaultConfig() Config {
	return Config{
		MaxDepth:             DefaultMaxDepth,
		Workers:              DefaultWorkers,
		MaxConcurrentFetches: DefaultMaxConcurrentFetches,
		RequestTimeout:       DefaultRequestTimeout,
		MinDelay:             DefaultMinDelay,
		MaxDelay:             DefaultMaxDelay,
		UserAgents:           append([]string(nil), DefaultUserAgents...),
		RespectRobots:        true,
		Keywords:             append([]string(nil), DefaultKeywords...),
	}
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.MaxConcurrentFetches <= 0 {
		return fmt.Errorf("crawler.max_concurrent_fetches must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return fmt.Errorf("politeness delays must be >= 0")
	}
	if c.MaxDelay < c.MinDelay {
		return fmt.Errorf("politeness.max_delay must be >= politeness.min_delay")
	}
	return nil
}

// FetcherConfig projects the fetch-related settings.
func (c Config) FetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgents:           c.UserAgents,
		Timeout:              c.RequestTimeout,
		MinDelay:             c.MinDelay,
		MaxDelay:             c.MaxDelay,
		MaxConcurrentFetches: c.MaxConcurrentFetches,
	}
}
