// Package config provides unified configuration for the rowforge pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for one pipeline run.
type Config struct {
	// Trial is the trial identifier stamped on every entity and run artifact
	Trial string `json:"trial" yaml:"trial"`

	// Input is the path to the merged eCRF export to harmonize
	Input string `json:"input" yaml:"input"`

	// OutDir is the base directory run directories are created under
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Format is the table encoding: csv, tsv, sqlite
	Format string `json:"format" yaml:"format"`

	// WriteWide controls whether the wide denormalized table is exported
	WriteWide bool `json:"write_wide" yaml:"write_wide"`

	// WriteNormalized controls whether the normalized table family is exported
	WriteNormalized bool `json:"write_normalized" yaml:"write_normalized"`

	// Workers is the flattener parallelism (0 or 1 runs serially)
	Workers int `json:"workers" yaml:"workers"`

	// DropOrphans drops sub-record groups without a parent subject instead of
	// failing the run
	DropOrphans bool `json:"drop_orphans" yaml:"drop_orphans"`

	// Publish configuration
	Publish PublishConfig `json:"publish" yaml:"publish"`

	// Postgres configuration
	Postgres PostgresConfig `json:"postgres" yaml:"postgres"`
}

// PublishConfig controls publication of finished runs to an artifact store.
type PublishConfig struct {
	// Enabled turns publication on
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Type is the store type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local store root (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 store configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// PostgresConfig controls loading flattened tables into Postgres.
type PostgresConfig struct {
	// Enabled turns the Postgres load on
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DSN is the connection string
	DSN string `json:"dsn" yaml:"dsn"`

	// Schema is the target schema (default public)
	Schema string `json:"schema" yaml:"schema"`

	// Truncate truncates target tables before loading
	Truncate bool `json:"truncate" yaml:"truncate"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		OutDir:          "./data/harmonized",
		Format:          "csv",
		WriteWide:       true,
		WriteNormalized: true,
		Workers:         1,
		Publish: PublishConfig{
			Type: "local",
		},
		Postgres: PostgresConfig{
			Schema: "public",
		},
	}
}

// Resolve fills in paths derivable from OutDir.
func (c *Config) Resolve() {
	if c.OutDir == "" {
		c.OutDir = "./data/harmonized"
	}
	if c.Publish.Path == "" {
		c.Publish.Path = filepath.Join(c.OutDir, "store")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trial == "" {
		return fmt.Errorf("trial is required")
	}
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	switch c.Format {
	case "csv", "tsv", "sqlite":
	default:
		return fmt.Errorf("invalid format: %s (must be csv, tsv or sqlite)", c.Format)
	}
	if !c.WriteWide && !c.WriteNormalized {
		return fmt.Errorf("at least one of write_wide and write_normalized must be set")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.Publish.Enabled {
		if c.Publish.Type != "local" && c.Publish.Type != "s3" {
			return fmt.Errorf("invalid publish type: %s (must be local or s3)", c.Publish.Type)
		}
		if c.Publish.Type == "s3" && c.Publish.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when publish type is s3")
		}
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the ROWFORGE_ prefix.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("ROWFORGE_TRIAL"); v != "" {
		cfg.Trial = v
	}
	if v := os.Getenv("ROWFORGE_INPUT"); v != "" {
		cfg.Input = v
	}
	if v := os.Getenv("ROWFORGE_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("ROWFORGE_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("ROWFORGE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROWFORGE_WORKERS value %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("ROWFORGE_DROP_ORPHANS"); v != "" {
		cfg.DropOrphans = v == "true" || v == "1"
	}

	// Publish configuration
	if v := os.Getenv("ROWFORGE_PUBLISH_ENABLED"); v != "" {
		cfg.Publish.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("ROWFORGE_PUBLISH_TYPE"); v != "" {
		cfg.Publish.Type = v
	}
	if v := os.Getenv("ROWFORGE_PUBLISH_PATH"); v != "" {
		cfg.Publish.Path = v
	}
	if v := os.Getenv("ROWFORGE_S3_BUCKET"); v != "" {
		cfg.Publish.S3.Bucket = v
	}
	if v := os.Getenv("ROWFORGE_S3_REGION"); v != "" {
		cfg.Publish.S3.Region = v
	}
	if v := os.Getenv("ROWFORGE_S3_ENDPOINT"); v != "" {
		cfg.Publish.S3.Endpoint = v
	}

	// Postgres configuration
	if v := os.Getenv("ROWFORGE_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("ROWFORGE_POSTGRES_SCHEMA"); v != "" {
		cfg.Postgres.Schema = v
	}
	if v := os.Getenv("ROWFORGE_POSTGRES_TRUNCATE"); v != "" {
		cfg.Postgres.Truncate = v == "true" || v == "1"
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.OutDir}
	if c.Publish.Enabled && c.Publish.Type == "local" {
		dirs = append(dirs, c.Publish.Path)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
