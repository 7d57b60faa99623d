package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mlevitan/clinisync/internal/flagx"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// Duration fields are strings in time.ParseDuration notation ("30m").
type JsonConfig struct {
	DatabaseDSN    string `json:"database_dsn"`
	SecretKey      string `json:"secret_key"`
	TokenValidity  string `json:"token_validity"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
}

// parseJson overlays values from the JSON file named by the -c/-config flag,
// if any. Fields absent from the file keep their current values. Unreadable
// or invalid files panic: a half-applied config is worse than a crash at
// startup.
func parseJson(config *Config) {
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

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.TokenValidity != "" {
		d, err := time.ParseDuration(c.TokenValidity)
		if err != nil {
			panic(err)
		}
		config.TokenValidity = d
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
