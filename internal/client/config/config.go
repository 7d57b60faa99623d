// Package config handles configuration for the clinisync CLI, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the clinisync CLI.
//
// Fields:
//   - DatabasePath: path of the device-local SQLite database.
//   - RemoteDSN: PostgreSQL DSN of the sync server store. Empty means the
//     device works offline and push/pull are disabled.
//   - SyncRetryAttempts / SyncRetryBase: backoff policy applied around push
//     attempts when the remote is unavailable.
type Config struct {
	DatabasePath      string
	RemoteDSN         string
	SyncRetryAttempts uint64
	SyncRetryBase     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "clinisync.db"
	c.RemoteDSN = ""
	c.SyncRetryAttempts = 3
	c.SyncRetryBase = time.Second
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
