// Package config loads runtime settings for the usagevault CLI.
package config

import "time"

// Config holds runtime settings for the usagevault client.
//
// Fields:
//   - DataDir: directory holding the embedded database, the flat-storage
//     fallback file, and the HTTP response cache.
//   - APIBaseURL: base URL the sync queue replays against and the root for
//     network-first API requests.
//   - PollInterval: how often the usage refresher ticks.
//   - SyncInterval: how often queued offline writes are replayed.
//   - SessionCheckInterval: how often the session manager re-validates expiry.
//   - SummaryCacheTTL: lifetime of cached usage summaries.
type Config struct {
	DataDir              string
	APIBaseURL           string
	PollInterval         time.Duration
	SyncInterval         time.Duration
	SessionCheckInterval time.Duration
	SummaryCacheTTL      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "."
	c.APIBaseURL = "https://api.anthropic.com"
	c.PollInterval = 30 * time.Second
	c.SyncInterval = time.Minute
	c.SessionCheckInterval = time.Minute
	c.SummaryCacheTTL = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
