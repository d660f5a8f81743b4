package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Catalog configuration
	HAMAPIKey      string  `long:"ham-api-key" env:"HAM_API_KEY" description:"Harvard Art Museums API key"`
	HAMBaseURL     string  `long:"ham-base-url" env:"HAM_BASE_URL" default:"https://api.harvardartmuseums.org/object" description:"Harvard Art Museums object endpoint"`
	RequestTimeout int     `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"20" description:"Catalog request timeout in seconds"`
	RateLimit      float64 `long:"rate-limit" env:"RATE_LIMIT" default:"5" description:"Maximum catalog requests per second (0 disables)"`
	RateBurst      int     `long:"rate-burst" env:"RATE_BURST" default:"5" description:"Catalog request burst size"`
	BreakerEnabled bool    `long:"breaker" env:"BREAKER_ENABLED" description:"Guard catalog requests with a circuit breaker"`

	// Retrieval configuration
	MaxTries  int    `long:"max-tries" env:"MAX_TRIES" default:"10" description:"Random draws per discovery before giving up"`
	SeenLimit int    `long:"seen-limit" env:"SEEN_LIMIT" default:"30" description:"Recently seen ids remembered per session"`
	BansFile  string `long:"bans-file" env:"BANS_FILE" description:"YAML file with bans applied to new sessions"`

	// Application configuration
	DBPath           string `long:"db-path" env:"DB_PATH" description:"SQLite database file for sessions (empty keeps them in memory)"`
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey     string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	PageCountRefresh int    `long:"page-count-refresh" env:"PAGE_COUNT_REFRESH" default:"0" description:"Seconds between catalog page count refreshes (0 disables)"`
	WorkerCount      int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Veni Vici/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns nil, nil
// when help was requested.
func Load() (*Cfg, error) {
	cfg, err := Parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		HAMAPIKey:        raw.HAMAPIKey,
		HAMBaseURL:       raw.HAMBaseURL,
		RequestTimeout:   raw.RequestTimeout,
		RateLimit:        raw.RateLimit,
		RateBurst:        raw.RateBurst,
		BreakerEnabled:   raw.BreakerEnabled,
		MaxTries:         raw.MaxTries,
		SeenLimit:        raw.SeenLimit,
		BansFile:         raw.BansFile,
		DBPath:           raw.DBPath,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		PageCountRefresh: raw.PageCountRefresh,
		WorkerCount:      raw.WorkerCount,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Cfg) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Cfg) GetPageCountRefresh() time.Duration {
	return time.Duration(c.PageCountRefresh) * time.Second
}

func validate(cfg *Cfg) error {
	nonNegativeFields := map[string]int{
		"request timeout":    cfg.RequestTimeout,
		"rate burst":         cfg.RateBurst,
		"max tries":          cfg.MaxTries,
		"seen limit":         cfg.SeenLimit,
		"page count refresh": cfg.PageCountRefresh,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	if cfg.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
