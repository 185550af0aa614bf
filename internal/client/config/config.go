// Package config holds runtime settings for the notekeeper CLI.
package config

import "time"

// Config holds runtime settings for the notekeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP API.
//   - DatabaseFile: path of the local SQLite database.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - PushDebounce: how long local edits are coalesced before a sync cycle.
type Config struct {
	ServerEndpointAddr  string
	DatabaseFile        string
	OnlineCheckInterval time.Duration
	PushDebounce        time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabaseFile = "notekeeper.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.PushDebounce = 2 * time.Second
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
