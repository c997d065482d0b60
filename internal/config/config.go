package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr = "localhost:7420"
	defaultLogLevel   = "info"
)

// #region config

// Config holds the daemon's settings. Retention is explicit: max_history 0
// retains every version for the lifetime of the process.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	ArchivePath string `yaml:"archive_path"`
	MaxHistory  int    `yaml:"max_history"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ListenAddr: defaultListenAddr,
		LogLevel:   defaultLogLevel,
	}
}

// #endregion config

// #region merge

// Merge applies non-zero values from source.
func (c *Config) Merge(source Config) {
	if source.ListenAddr != "" {
		c.ListenAddr = source.ListenAddr
	}
	if source.ArchivePath != "" {
		c.ArchivePath = source.ArchivePath
	}
	if source.MaxHistory > 0 {
		c.MaxHistory = source.MaxHistory
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
}

// #endregion merge

// #region load

// Load reads a YAML config file and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Merge(loaded)
	return cfg, nil
}

// #endregion load
