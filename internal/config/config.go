// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/career-crawler/internal/crawler"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Politeness PolitenessConfig `mapstructure:"politeness"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Output     OutputConfig     `mapstructure:"output"`
}

// CrawlerConfig governs the search itself.
type CrawlerConfig struct {
	MaxDepth             int      `mapstructure:"max_depth"`
	Workers              int      `mapstructure:"workers"`
	MaxConcurrentFetches int      `mapstructure:"max_concurrent_fetches"`
	RespectRobots        bool     `mapstructure:"respect_robots"`
	Keywords             []string `mapstructure:"keywords"`
}

// HTTPConfig configures the HTTP client.
type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	RobotsTimeout   time.Duration `mapstructure:"robots_timeout"`
	UserAgents      []string      `mapstructure:"user_agents"`
	RobotsUserAgent string        `mapstructure:"robots_user_agent"`
	MaxBodyBytes    int           `mapstructure:"max_body_bytes"`
}

// PolitenessConfig controls request pacing.
type PolitenessConfig struct {
	MinDelay         time.Duration `mapstructure:"min_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	RateLimitPerHost float64       `mapstructure:"rate_limit_per_host"`
	Burst            int           `mapstructure:"burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the ops server when Addr is set. Linger keeps it
// serving the finished run for a while before the process exits.
type MetricsConfig struct {
	Addr   string        `mapstructure:"addr"`
	Linger time.Duration `mapstructure:"linger"`
}

// OutputConfig controls where finished runs are archived. An empty
// ResultsDir disables archiving.
type OutputConfig struct {
	ResultsDir string `mapstructure:"results_dir"`
}

// flagKeys maps CLI flag names to the config keys they override.
var flagKeys = map[string]string{
	"max-depth":      "crawler.max_depth",
	"workers":        "crawler.workers",
	"max-fetches":    "crawler.max_concurrent_fetches",
	"timeout":        "http.timeout",
	"min-delay":      "politeness.min_delay",
	"max-delay":      "politeness.max_delay",
	"rate-limit":     "politeness.rate_limit_per_host",
	"metrics-addr":   "metrics.addr",
	"metrics-linger": "metrics.linger",
	"dev-log":        "logging.development",
	"log-level":      "logging.level",
	"results-dir":    "output.results_dir",
}

// Load builds a Config from defaults, an optional file, the environment and
// any changed flags, in increasing order of precedence. With an empty path
// a career-crawler.yaml in the working directory or $HOME is used if present.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}
	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if flags != nil && flags.Changed("ignore-robots") {
		ignore, err := flags.GetBool("ignore-robots")
		if err != nil {
			return Config{}, fmt.Errorf("read ignore-robots flag: %w", err)
		}
		cfg.Crawler.RespectRobots = !ignore
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("career-crawler")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.max_depth", crawler.DefaultMaxDepth)
	v.SetDefault("crawler.workers", crawler.DefaultWorkers)
	v.SetDefault("crawler.max_concurrent_fetches", crawler.DefaultMaxConcurrentFetches)
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.keywords", crawler.DefaultKeywords)
	v.SetDefault("http.timeout", crawler.DefaultRequestTimeout)
	v.SetDefault("http.robots_timeout", 10*time.Second)
	v.SetDefault("http.user_agents", crawler.DefaultUserAgents)
	v.SetDefault("http.robots_user_agent", "")
	v.SetDefault("http.max_body_bytes", 10*1024*1024)
	v.SetDefault("politeness.min_delay", crawler.DefaultMinDelay)
	v.SetDefault("politeness.max_delay", crawler.DefaultMaxDelay)
	v.SetDefault("politeness.rate_limit_per_host", 0)
	v.SetDefault("politeness.burst", 1)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.linger", 10*time.Second)
	v.SetDefault("output.results_dir", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := c.CrawlerConfig().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if len(c.HTTP.UserAgents) == 0 {
		return fmt.Errorf("invalid config: http.user_agents must not be empty")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("invalid config: http.max_body_bytes must be >= 0")
	}
	if c.Politeness.RateLimitPerHost < 0 {
		return fmt.Errorf("invalid config: politeness.rate_limit_per_host must be >= 0")
	}
	if c.Politeness.Burst < 0 {
		return fmt.Errorf("invalid config: politeness.burst must be >= 0")
	}
	if c.Metrics.Linger < 0 {
		return fmt.Errorf("invalid config: metrics.linger must be >= 0")
	}
	return nil
}

// CrawlerConfig projects the settings the crawl engine consumes.
func (c Config) CrawlerConfig() crawler.Config {
	return crawler.Config{
		MaxDepth:             c.Crawler.MaxDepth,
		Workers:              c.Crawler.Workers,
		MaxConcurrentFetches: c.Crawler.MaxConcurrentFetches,
		RequestTimeout:       c.HTTP.Timeout,
		MinDelay:             c.Politeness.MinDelay,
		MaxDelay:             c.Politeness.MaxDelay,
		UserAgents:           c.HTTP.UserAgents,
		RobotsUserAgent:      c.RobotsUserAgent(),
		RespectRobots:        c.Crawler.RespectRobots,
		Keywords:             c.Crawler.Keywords,
	}
}

// RobotsUserAgent is the identity used for robots.txt requests. It defaults
// to the first entry of the rotation pool.
func (c Config) RobotsUserAgent() string {
	if ua := strings.TrimSpace(c.HTTP.RobotsUserAgent); ua != "" {
		return ua
	}
	if len(c.HTTP.UserAgents) > 0 {
		return c.HTTP.UserAgents[0]
	}
	return ""
}
