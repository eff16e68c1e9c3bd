// Package config holds run configuration for the scraper.
package config

import (
	"fmt"
	"time"
)

// Config holds scraper configuration. Values come from defaults, an
// optional YAML settings file, environment variables, and flags, in that
// order of increasing precedence.
type Config struct {
	EntriesFile string
	Plugin      string

	// Driver selects the session backend: "chrome" (scripted browser) or
	// "static" (plain HTTP, for sites that paginate without scripting).
	Driver      string
	UserAgent   string
	HTTPTimeout time.Duration

	// NavTimeout bounds every navigator wait call.
	NavTimeout time.Duration
	// RateLimitDelay is the pause between entries.
	RateLimitDelay time.Duration
	// DataStrict aborts an entry on any validation or count mismatch;
	// false degrades those to warnings.
	DataStrict bool

	BrowserVisible bool
	BrowserLogging bool

	OutputFile     string
	OutputFormat   string // csv, json, or dual
	OutputNameBase string
	PickOutputName bool

	PipelineBufferSize int
	BatchSize          int
	DedupCacheSize     int

	Verbose     bool
	MetricsAddr string
	LogFile     string
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		EntriesFile:        "configs/entries.json",
		Plugin:             "seek",
		Driver:             "chrome",
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		HTTPTimeout:        10 * time.Second,
		NavTimeout:         20 * time.Second,
		RateLimitDelay:     5 * time.Second,
		DataStrict:         true,
		BrowserVisible:     false,
		BrowserLogging:     false,
		OutputFormat:       "csv",
		OutputNameBase:     "reviews",
		PickOutputName:     false,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupCacheSize:     4096,
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.EntriesFile == "" {
		return fmt.Errorf("entries file cannot be empty")
	}
	if c.Plugin == "" {
		return fmt.Errorf("plugin cannot be empty")
	}
	if c.Driver != "chrome" && c.Driver != "static" {
		return fmt.Errorf("driver must be chrome or static")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.NavTimeout <= 0 {
		return fmt.Errorf("nav timeout must be positive")
	}
	if c.RateLimitDelay < 0 {
		return fmt.Errorf("rate limit delay cannot be negative")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.OutputFile == "" && c.OutputNameBase == "" && !c.PickOutputName {
		return fmt.Errorf("output name base cannot be empty when no output file is set")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupCacheSize <= 0 {
		return fmt.Errorf("dedup cache size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}
