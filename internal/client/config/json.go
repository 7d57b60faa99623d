package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mlevitan/clinisync/internal/flagx"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// Duration fields are strings in time.ParseDuration notation ("1s").
type JsonConfig struct {
	DatabasePath      string `json:"database_path"`
	RemoteDSN         string `json:"remote_dsn"`
	SyncRetryAttempts uint64 `json:"sync_retry_attempts"`
	SyncRetryBase     string `json:"sync_retry_base"`
}

// parseJson overlays values from the JSON file named by the -c/-config flag,
// if any. Fields absent from the file keep their current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabasePath != "" {
		cfg.DatabasePath = c.DatabasePath
	}
	if c.RemoteDSN != "" {
		cfg.RemoteDSN = c.RemoteDSN
	}
	if c.SyncRetryAttempts != 0 {
		cfg.SyncRetryAttempts = c.SyncRetryAttempts
	}
	if c.SyncRetryBase != "" {
		d, err := time.ParseDuration(c.SyncRetryBase)
		if err != nil {
			panic(err)
		}
		cfg.SyncRetryBase = d
	}
}
