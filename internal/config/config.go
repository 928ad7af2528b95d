package config

import (
	"encoding/json"
	"os"
	"runtime"

	"github.com/spf13/viper"

	"aster/internal/paths"
)

// CurrentVersion is the config schema version this build reads.
const CurrentVersion = 1

// Config is the complete aster configuration, stored at .aster/config.json.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Scan    ScanConfig    `json:"scan" mapstructure:"scan"`
	Index   IndexConfig   `json:"index" mapstructure:"index"`
	Watch   WatchConfig   `json:"watch" mapstructure:"watch"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ScanConfig controls file discovery and extraction.
type ScanConfig struct {
	// Parallelism is the worker count; 0 means runtime.NumCPU().
	Parallelism int `json:"parallelism" mapstructure:"parallelism"`

	// MaxFileSizeBytes skips files larger than this. 0 disables the cap.
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`

	// Exclude holds additional glob patterns for files the scan skips,
	// merged with the manifest's excludes.
	Exclude []string `json:"exclude" mapstructure:"exclude"`
}

// IndexConfig controls persisted-index behavior.
type IndexConfig struct {
	// RebuildOnVersionMismatch rebuilds silently when the stored schema
	// version is incompatible; when false the mismatch is a fatal error.
	RebuildOnVersionMismatch bool `json:"rebuildOnVersionMismatch" mapstructure:"rebuildOnVersionMismatch"`

	// StalePolicy decides what query commands do on a stale index:
	// "warn" answers from the stored data, "error" refuses.
	StalePolicy string `json:"stalePolicy" mapstructure:"stalePolicy"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// DebounceMs is how long the watcher waits for events to settle
	// before re-indexing.
	DebounceMs int `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig controls the log sink.
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `json:"level" mapstructure:"level"`
}

// StalePolicy values.
const (
	StaleWarn  = "warn"
	StaleError = "error"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			Parallelism:      0,
			MaxFileSizeBytes: 10 * 1024 * 1024,
			Exclude:          []string{},
		},
		Index: IndexConfig{
			RebuildOnVersionMismatch: true,
			StalePolicy:              StaleWarn,
		},
		Watch: WatchConfig{
			DebounceMs: 250,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from .aster/config.json under the scan
// root. A missing file yields the defaults.
func LoadConfig(scanRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("scan.parallelism", defaults.Scan.Parallelism)
	v.SetDefault("scan.maxFileSizeBytes", defaults.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.exclude", defaults.Scan.Exclude)
	v.SetDefault("index.rebuildOnVersionMismatch", defaults.Index.RebuildOnVersionMismatch)
	v.SetDefault("index.stalePolicy", defaults.Index.StalePolicy)
	v.SetDefault("watch.debounceMs", defaults.Watch.DebounceMs)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.AsterDir(scanRoot))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to .aster/config.json under the scan root.
func (c *Config) Save(scanRoot string) error {
	if _, err := paths.EnsureAsterDir(scanRoot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(paths.ConfigPath(scanRoot), data, 0o644)
}

// Workers resolves the effective scan parallelism.
func (c *Config) Workers() int {
	if c.Scan.Parallelism > 0 {
		return c.Scan.Parallelism
	}
	return runtime.NumCPU()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Index.StalePolicy != StaleWarn && c.Index.StalePolicy != StaleError {
		return &ConfigError{Field: "index.stalePolicy", Message: "must be \"warn\" or \"error\""}
	}
	if c.Scan.Parallelism < 0 {
		return &ConfigError{Field: "scan.parallelism", Message: "must not be negative"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
