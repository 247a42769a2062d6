package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := *Default()
	cfg.SQLiteDBPath = "./test.db"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "memory backend with quota",
			mutate:  func(c *Config) { c.DataBackend = "memory"; c.StorageQuotaBytes = 5 * 1024 * 1024 },
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "sheets" },
			wantErr:     true,
			errorString: "invalid data backend 'sheets': must be one of [memory sqlite file]",
		},
		{
			name:        "sqlite backend missing database path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "file backend missing path",
			mutate:      func(c *Config) { c.DataBackend = "file"; c.DataFilePath = "" },
			wantErr:     true,
			errorString: "data file path cannot be empty",
		},
		{
			name:        "empty storage key",
			mutate:      func(c *Config) { c.StorageKey = "  " },
			wantErr:     true,
			errorString: "storage key cannot be empty",
		},
		{
			name:        "negative quota",
			mutate:      func(c *Config) { c.StorageQuotaBytes = -1 },
			wantErr:     true,
			errorString: "invalid storage quota -1",
		},
		{
			name:        "debounce wait too long",
			mutate:      func(c *Config) { c.DebounceWait = 2 * time.Minute },
			wantErr:     true,
			errorString: "invalid debounce wait 2m0s: must be at most 1 minute",
		},
		{
			name:    "zero debounce wait",
			mutate:  func(c *Config) { c.DebounceWait = 0 },
			wantErr: false,
		},
		{
			name:        "invalid seed mode",
			mutate:      func(c *Config) { c.SeedMode = "demo" },
			wantErr:     true,
			errorString: "invalid seed mode 'demo'",
		},
		{
			name:        "chart too small",
			mutate:      func(c *Config) { c.ChartWidth = 50 },
			wantErr:     true,
			errorString: "invalid chart width 50",
		},
		{
			name:        "zero rate limit",
			mutate:      func(c *Config) { c.RateLimitRPM = 0 },
			wantErr:     true,
			errorString: "invalid rate limit 0",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.LogLevel = "trace" },
			wantErr:     true,
			errorString: "invalid log level 'trace'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else if err != nil {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.SeedMode = "demo"
	cfg.ChartHeight = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration validation failed:") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if got := strings.Count(msg, "\n- "); got != 3 {
		t.Errorf("expected 3 problems, got %d in %q", got, msg)
	}
}

func TestConfig_ValidateCreatesDataDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := validConfig()
	cfg.DataBackend = "file"
	cfg.DataFilePath = filepath.Join(dir, "bucks2bar.json")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "RATE_LIMIT_RPM", "DATA_BACKEND", "SQLITE_DB_PATH", "DATA_FILE_PATH",
		"STORAGE_KEY", "STORAGE_QUOTA_BYTES", "CACHE_TTL", "CACHE_SIZE",
		"DEBOUNCE_WAIT", "SEED_MODE", "CHART_WIDTH", "CHART_HEIGHT", "LOG_LEVEL", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
		}
		if cfg.SeedMode != "random" {
			t.Errorf("Load() SeedMode = %v, want random", cfg.SeedMode)
		}
		if cfg.SQLiteDBPath != "./data/bucks2bar.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want ./data/bucks2bar.db", cfg.SQLiteDBPath)
		}
		if cfg.DebounceWait != 300*time.Millisecond {
			t.Errorf("Load() DebounceWait = %v, want 300ms", cfg.DebounceWait)
		}
		if cfg.StorageKey != "bucks2bar.data" {
			t.Errorf("Load() StorageKey = %v, want bucks2bar.data", cfg.StorageKey)
		}
	})

	t.Run("yaml file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bucks2bar.yaml")
		yaml := "port: \"9000\"\ndata_backend: memory\ndebounce_wait: 150ms\nchart_width: 640\n"
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "9000" || cfg.DataBackend != "memory" {
			t.Errorf("Load() = %+v, want yaml values", cfg)
		}
		if cfg.DebounceWait != 150*time.Millisecond {
			t.Errorf("Load() DebounceWait = %v, want 150ms", cfg.DebounceWait)
		}
		if cfg.ChartWidth != 640 || cfg.ChartHeight != 480 {
			t.Errorf("Load() chart = %dx%d, want 640x480", cfg.ChartWidth, cfg.ChartHeight)
		}
	})

	t.Run("environment overrides yaml", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bucks2bar.yaml")
		if err := os.WriteFile(path, []byte("port: \"9000\"\nseed_mode: blank\n"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("PORT", "9090")
		t.Setenv("DEBOUNCE_WAIT", "1s")
		t.Setenv("LOG_LEVEL", "DEBUG")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.SeedMode != "blank" {
			t.Errorf("Load() SeedMode = %v, want blank", cfg.SeedMode)
		}
		if cfg.DebounceWait != time.Second {
			t.Errorf("Load() DebounceWait = %v, want 1s", cfg.DebounceWait)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("Load() LogLevel = %v, want debug", cfg.LogLevel)
		}
	})

	t.Run("invalid environment variables keep previous values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CACHE_SIZE", "invalid")
		t.Setenv("DEBOUNCE_WAIT", "invalid")

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.CacheSize != 16 {
			t.Errorf("Load() CacheSize = %v, want 16", cfg.CacheSize)
		}
		if cfg.DebounceWait != 300*time.Millisecond {
			t.Errorf("Load() DebounceWait = %v, want 300ms", cfg.DebounceWait)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("port: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() expected parse error")
		}
	})
}
