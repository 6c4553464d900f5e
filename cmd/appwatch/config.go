package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/appwatch/appwatch-go/pkg/connection"
	"gopkg.in/yaml.v3"
)

// Config holds the appwatch configuration. Values come from the optional
// YAML file first; flags given on the command line override them.
// It implements interactive.ConsoleConfig.
type Config struct {
	ConfigFile string `yaml:"-"`

	NameValue    string        `yaml:"name"`
	DBPath       string        `yaml:"db"`
	PollInterval time.Duration `yaml:"pollInterval"`
	LogLevel     string        `yaml:"logLevel"`
	SyncLog      string        `yaml:"syncLog"`
	Interactive  bool          `yaml:"interactive"`
	Resync       bool          `yaml:"resync"`

	Backoff connection.BackoffConfig `yaml:"backoff"`
}

// Name implements interactive.ConsoleConfig.
func (c *Config) Name() string {
	return c.NameValue
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		NameValue:    "apps",
		DBPath:       "appwatch.db",
		PollInterval: 250 * time.Millisecond,
		LogLevel:     "info",
		Backoff:      connection.DefaultBackoffConfig(),
	}
}

// registerFlags binds cfg's fields to fs. Defaults are the current values.
func registerFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&cfg.NameValue, "name", cfg.NameValue, "Mirror name used in logs and traces")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database holding the collection")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Change log poll interval")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.SyncLog, "sync-log", cfg.SyncLog, "File path for sync event logging (CBOR format)")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Enable interactive command mode")
	fs.BoolVar(&cfg.Resync, "resync", cfg.Resync, "Start a fresh session with backoff when the stream ends")
}

// loadConfig parses args into a Config. When -config names a file, the
// file is applied over the defaults and explicitly set flags are applied
// over the file.
func loadConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := DefaultConfig()
	registerFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.ConfigFile == "" {
		return cfg, cfg.Validate()
	}

	fromFile := DefaultConfig()
	if err := readConfigFile(cfg.ConfigFile, &fromFile); err != nil {
		return Config{}, err
	}
	fromFile.ConfigFile = cfg.ConfigFile

	// Re-apply only the flags that were given explicitly.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			fromFile.NameValue = cfg.NameValue
		case "db":
			fromFile.DBPath = cfg.DBPath
		case "poll":
			fromFile.PollInterval = cfg.PollInterval
		case "log-level":
			fromFile.LogLevel = cfg.LogLevel
		case "sync-log":
			fromFile.SyncLog = cfg.SyncLog
		case "interactive":
			fromFile.Interactive = cfg.Interactive
		case "resync":
			fromFile.Resync = cfg.Resync
		}
	})

	return fromFile, fromFile.Validate()
}

func readConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.NameValue == "" {
		return errors.New("name is required")
	}
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
