package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Scan.Parallelism != 0 {
		t.Errorf("Scan.Parallelism = %d, want 0 (auto)", cfg.Scan.Parallelism)
	}
	if cfg.Scan.MaxFileSizeBytes <= 0 {
		t.Error("Scan.MaxFileSizeBytes should be positive by default")
	}
	if !cfg.Index.RebuildOnVersionMismatch {
		t.Error("incompatible stores should rebuild by default")
	}
	if cfg.Index.StalePolicy != StaleWarn {
		t.Errorf("Index.StalePolicy = %q, want %q", cfg.Index.StalePolicy, StaleWarn)
	}
	if cfg.Watch.DebounceMs != 250 {
		t.Errorf("Watch.DebounceMs = %d, want 250", cfg.Watch.DebounceMs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want \"info\"", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"error stale policy", func(c *Config) { c.Index.StalePolicy = StaleError }, false},
		{"unsupported version", func(c *Config) { c.Version = 99 }, true},
		{"unknown stale policy", func(c *Config) { c.Index.StalePolicy = "panic" }, true},
		{"negative parallelism", func(c *Config) { c.Scan.Parallelism = -1 }, true},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr && err == nil {
				t.Error("Validate() should return an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() returned unexpected error: %v", err)
			}
			if err != nil {
				if _, ok := err.(*ConfigError); !ok {
					t.Errorf("Validate() error type = %T, want *ConfigError", err)
				}
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "version",
		Message: "unsupported config version",
	}

	got := err.Error()
	want := "config error in field 'version': unsupported config version"

	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestLoadConfig_Default(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d (default)", cfg.Version, CurrentVersion)
	}
	if cfg.Index.StalePolicy != StaleWarn {
		t.Errorf("StalePolicy = %q, want default", cfg.Index.StalePolicy)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	asterDir := filepath.Join(tmpDir, ".aster")
	if err := os.MkdirAll(asterDir, 0o755); err != nil {
		t.Fatalf("Failed to create .aster dir: %v", err)
	}

	configContent := `{
		"version": 1,
		"scan": {
			"parallelism": 2,
			"exclude": ["**/generated/**"]
		},
		"index": {
			"stalePolicy": "error"
		}
	}`

	configPath := filepath.Join(asterDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Scan.Parallelism != 2 {
		t.Errorf("Scan.Parallelism = %d, want 2", cfg.Scan.Parallelism)
	}
	if len(cfg.Scan.Exclude) != 1 || cfg.Scan.Exclude[0] != "**/generated/**" {
		t.Errorf("Scan.Exclude = %v", cfg.Scan.Exclude)
	}
	if cfg.Index.StalePolicy != StaleError {
		t.Errorf("StalePolicy = %q, want %q", cfg.Index.StalePolicy, StaleError)
	}

	// Unset fields keep their defaults.
	if cfg.Watch.DebounceMs != 250 {
		t.Errorf("Watch.DebounceMs = %d, want default 250", cfg.Watch.DebounceMs)
	}
	if !cfg.Index.RebuildOnVersionMismatch {
		t.Error("RebuildOnVersionMismatch should keep its default")
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	asterDir := filepath.Join(tmpDir, ".aster")
	if err := os.MkdirAll(asterDir, 0o755); err != nil {
		t.Fatalf("Failed to create .aster dir: %v", err)
	}

	configContent := `{"version": 1, "index": {"stalePolicy": "panic"}}`
	configPath := filepath.Join(asterDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadConfig(tmpDir); err == nil {
		t.Error("LoadConfig() should reject an unknown stalePolicy")
	}
}

func TestConfig_Save(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Scan.Parallelism = 4

	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig() after Save error = %v", err)
	}
	if loaded.Scan.Parallelism != 4 {
		t.Errorf("Scan.Parallelism after round trip = %d, want 4", loaded.Scan.Parallelism)
	}
}

func TestWorkers(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Scan.Parallelism = 3
	if got := cfg.Workers(); got != 3 {
		t.Errorf("Workers() = %d, want 3", got)
	}

	cfg.Scan.Parallelism = 0
	if got := cfg.Workers(); got < 1 {
		t.Errorf("Workers() = %d, want at least 1", got)
	}
}
