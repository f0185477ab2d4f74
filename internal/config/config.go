package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the file-backed settings of the adapter CLI and any embedding
// service.
type Config struct {
	// StorePath is the SQLite database location.
	StorePath string `yaml:"store_path"`

	// SchemaFile optionally points at a CUE file declaring plugin tables to
	// merge into the builtin schema.
	SchemaFile string `yaml:"schema_file"`

	// BulkPageSize is the logical page size bulk deletions request per
	// transaction. Zero keeps the built-in default.
	BulkPageSize int `yaml:"bulk_page_size"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		StorePath: "auth.db",
	}
}

// Load reads a YAML config file. Unknown keys are rejected so typos surface
// as errors instead of silently keeping defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if c.BulkPageSize < 0 {
		return fmt.Errorf("bulk_page_size must not be negative")
	}
	return nil
}
