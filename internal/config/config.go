// Package config handles loading and validating the application
// configuration from a plcmirror.json file.
//
// The configuration file is expected to be a JSON object with database
// connection details, HTTP listen address, and the upstream directory
// this instance mirrors.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds all application configuration loaded from plcmirror.json.
// The file is read once at startup; changes require a restart.
type Config struct {
	// DBConn is the PostgreSQL host:port (e.g., "infra-postgres:5432").
	DBConn string `json:"dbConn"`

	// DBName is the PostgreSQL database name.
	DBName string `json:"dbName"`

	// DBUser is the PostgreSQL username.
	DBUser string `json:"dbUser"`

	// DBPass is the PostgreSQL password.
	DBPass string `json:"dbPass"`

	// ListenAddr is the HTTP listen address (default ":2582", the port
	// the upstream PLC directory has historically run on).
	ListenAddr string `json:"listenAddr"`

	// UpstreamURL is the authoritative PLC directory this instance
	// mirrors, e.g. "https://plc.directory".
	UpstreamURL string `json:"upstreamUrl"`

	// PollIntervalMS controls how often the importer long-polls the
	// upstream export endpoint for new operations, in milliseconds.
	// Default 5000.
	PollIntervalMS int64 `json:"pollIntervalMs"`

	// ExportPageSize is the count requested per upstream export page.
	// Default 1000, matching the upstream directory's own default.
	ExportPageSize int `json:"exportPageSize"`
}

// PollInterval returns the configured poll interval as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Load reads and parses configuration from the given file path.
// It returns an error if the file cannot be read, parsed, or is missing
// required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":2582"
	}
	if cfg.PollIntervalMS == 0 {
		cfg.PollIntervalMS = 5000
	}
	if cfg.ExportPageSize == 0 {
		cfg.ExportPageSize = 1000
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks that all required fields are present.
func (c *Config) validate() error {
	switch {
	case c.DBConn == "":
		return fmt.Errorf("config: dbConn is required")
	case c.DBName == "":
		return fmt.Errorf("config: dbName is required")
	case c.DBUser == "":
		return fmt.Errorf("config: dbUser is required")
	case c.DBPass == "":
		return fmt.Errorf("config: dbPass is required")
	case c.UpstreamURL == "":
		return fmt.Errorf("config: upstreamUrl is required")
	}
	return nil
}

// ConnString builds a PostgreSQL connection URI from the config fields.
// The password is URL-encoded to handle special characters safely.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		url.QueryEscape(c.DBUser),
		url.QueryEscape(c.DBPass),
		c.DBConn,
		url.QueryEscape(c.DBName),
	)
}
