package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/packrat-cache/packrat/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.EvictionPolicy != types.EvictionRecency {
		t.Errorf("Expected recency default, got %s", cfg.EvictionPolicy)
	}
	if cfg.CapacityThreshold != 0.8 {
		t.Errorf("Expected 0.8 threshold, got %f", cfg.CapacityThreshold)
	}
	if cfg.Structured.Enabled {
		t.Error("Structured backend should be opt-in")
	}
	if !cfg.Flat.Enabled {
		t.Error("Flat backend should be enabled by default")
	}
}

func TestForTesting(t *testing.T) {
	cfg := ForTesting()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Test config should be valid: %v", err)
	}
	if cfg.Structured.Enabled || cfg.Flat.Enabled {
		t.Error("Test config should run volatile-only")
	}
	if cfg.Metrics.Enabled {
		t.Error("Test config should disable metrics")
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.MaxSize != DefaultConfig().MaxSize {
			t.Errorf("Expected default maxSize, got %d", cfg.MaxSize)
		}
	})

	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.EvictionPolicy != types.EvictionRecency {
			t.Errorf("Expected default policy, got %s", cfg.EvictionPolicy)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		body := `{"maxSize": 1048576, "evictionPolicy": "priority"}`
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.MaxSize != 1048576 {
			t.Errorf("Expected overridden maxSize, got %d", cfg.MaxSize)
		}
		if cfg.EvictionPolicy != types.EvictionPriority {
			t.Errorf("Expected priority policy, got %s", cfg.EvictionPolicy)
		}
		// Unmentioned fields keep their defaults.
		if cfg.CapacityThreshold != 0.8 {
			t.Errorf("Expected default threshold, got %f", cfg.CapacityThreshold)
		}
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatal("Expected parse error")
		}
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		if err := os.WriteFile(path, []byte(`{"evictionPolicy": "lifo"}`), 0o600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatal("Expected validation error for unknown eviction policy")
		}
	})
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("PACKRAT_MAX_SIZE", "2097152")
	t.Setenv("PACKRAT_EVICTION_POLICY", "frequency")
	t.Setenv("PACKRAT_STRUCTURED_ENABLED", "true")
	t.Setenv("PACKRAT_STRUCTURED_ADDRESS", "redis.internal:6380")
	t.Setenv("PACKRAT_STRUCTURED_PASSWORD", "hunter2")
	t.Setenv("PACKRAT_FLAT_QUOTA", "131072")

	cfg, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("LoadWithEnv failed: %v", err)
	}

	if cfg.MaxSize != 2097152 {
		t.Errorf("Expected env maxSize, got %d", cfg.MaxSize)
	}
	if cfg.EvictionPolicy != types.EvictionFrequency {
		t.Errorf("Expected frequency policy, got %s", cfg.EvictionPolicy)
	}
	if !cfg.Structured.Enabled || cfg.Structured.Address != "redis.internal:6380" {
		t.Errorf("Expected structured env overrides, got %+v", cfg.Structured)
	}
	if cfg.Structured.Password.Value() != "hunter2" {
		t.Error("Expected password from env")
	}
	if cfg.Flat.Quota != 131072 {
		t.Errorf("Expected env quota, got %d", cfg.Flat.Quota)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero max size", func(c *Config) { c.MaxSize = 0 }, true},
		{"negative max size", func(c *Config) { c.MaxSize = -1 }, true},
		{"unknown eviction policy", func(c *Config) { c.EvictionPolicy = "mru" }, true},
		{"threshold zero", func(c *Config) { c.CapacityThreshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.CapacityThreshold = 1.5 }, true},
		{"threshold exactly one", func(c *Config) { c.CapacityThreshold = 1 }, false},
		{"negative rule cache", func(c *Config) { c.RuleCacheCapacity = -1 }, true},
		{"structured enabled without address", func(c *Config) {
			c.Structured.Enabled = true
			c.Structured.Address = ""
		}, true},
		{"flat enabled without quota", func(c *Config) {
			c.Flat.Enabled = true
			c.Flat.Quota = 0
		}, true},
		{"shards not power of two", func(c *Config) { c.Volatile.Shards = 100 }, true},
		{"breaker without threshold", func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.FailureThreshold = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	if d := parseDuration("45s", time.Minute); d != 45*time.Second {
		t.Errorf("Expected 45s, got %v", d)
	}
	if d := parseDuration("30", time.Minute); d != 30*time.Second {
		t.Errorf("Expected bare integers to mean seconds, got %v", d)
	}
	if d := parseDuration("bogus", time.Minute); d != time.Minute {
		t.Errorf("Expected fallback, got %v", d)
	}
}
