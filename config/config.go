// Package config defines the fuda application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level fuda configuration.
type Config struct {
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	DBFile   string `json:"db_file,omitempty" yaml:"db_file"` // overrides <data_dir>/fuda.db
	Actor    string `json:"actor,omitempty" yaml:"actor"`     // default audit actor
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// DBPath returns the resolved database file path.
func (c *Config) DBPath() string {
	if c.DBFile != "" {
		return c.DBFile
	}
	return filepath.Join(c.DataDir, "fuda.db")
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
