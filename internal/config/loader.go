package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/packrat-cache/packrat/internal/types"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PACKRAT_MAX_SIZE"); v != "" {
		cfg.MaxSize = parseInt64(v, cfg.MaxSize)
	}
	if v := os.Getenv("PACKRAT_EVICTION_POLICY"); v != "" {
		cfg.EvictionPolicy = strings.TrimSpace(v)
	}
	if v := os.Getenv("PACKRAT_CAPACITY_THRESHOLD"); v != "" {
		cfg.CapacityThreshold = parseFloat(v, cfg.CapacityThreshold)
	}
	if v := os.Getenv("PACKRAT_RULE_CACHE_CAPACITY"); v != "" {
		cfg.RuleCacheCapacity = parseInt(v, cfg.RuleCacheCapacity)
	}

	if v := os.Getenv("PACKRAT_STRUCTURED_ENABLED"); v != "" {
		cfg.Structured.Enabled = parseBool(v)
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_ADDRESS"); v != "" {
		cfg.Structured.Address = v
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_PASSWORD"); v != "" {
		cfg.Structured.Password = NewSecretString(v)
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_DB"); v != "" {
		cfg.Structured.DB = parseInt(v, cfg.Structured.DB)
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_KEY_PREFIX"); v != "" {
		cfg.Structured.KeyPrefix = v
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_POOL_SIZE"); v != "" {
		cfg.Structured.PoolSize = parseInt(v, cfg.Structured.PoolSize)
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_ENABLE_TLS"); v != "" {
		cfg.Structured.EnableTLS = parseBool(v)
	}
	if v := os.Getenv("PACKRAT_STRUCTURED_TLS_SKIP_VERIFY"); v != "" {
		cfg.Structured.TLSSkipVerify = parseBool(v)
	}

	if v := os.Getenv("PACKRAT_FLAT_ENABLED"); v != "" {
		cfg.Flat.Enabled = parseBool(v)
	}
	if v := os.Getenv("PACKRAT_FLAT_DIRECTORY"); v != "" {
		cfg.Flat.Directory = v
	}
	if v := os.Getenv("PACKRAT_FLAT_QUOTA"); v != "" {
		cfg.Flat.Quota = parseInt64(v, cfg.Flat.Quota)
	}

	if v := os.Getenv("PACKRAT_CIRCUIT_BREAKER_ENABLED"); v != "" {
		cfg.CircuitBreaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("PACKRAT_CIRCUIT_BREAKER_FAILURE_THRESHOLD"); v != "" {
		cfg.CircuitBreaker.FailureThreshold = parseInt(v, cfg.CircuitBreaker.FailureThreshold)
	}
	if v := os.Getenv("PACKRAT_CIRCUIT_BREAKER_OPEN_DURATION"); v != "" {
		cfg.CircuitBreaker.OpenDuration = parseDuration(v, cfg.CircuitBreaker.OpenDuration)
	}

	if v := os.Getenv("PACKRAT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxSize <= 0 {
		return fmt.Errorf("maxSize must be positive")
	}

	switch c.EvictionPolicy {
	case types.EvictionRecency, types.EvictionFrequency, types.EvictionPriority:
	default:
		return fmt.Errorf("evictionPolicy must be one of recency, frequency, priority; got %q", c.EvictionPolicy)
	}

	if c.CapacityThreshold <= 0 || c.CapacityThreshold > 1 {
		return fmt.Errorf("capacityThreshold must be in (0,1]")
	}

	if c.RuleCacheCapacity < 0 {
		return fmt.Errorf("ruleCacheCapacity cannot be negative")
	}

	if c.Structured.Enabled {
		if c.Structured.Address == "" {
			return fmt.Errorf("structured.address is required when the structured backend is enabled")
		}
		if c.Structured.PoolSize <= 0 {
			return fmt.Errorf("structured.poolSize must be positive")
		}
	}

	if c.Flat.Enabled && c.Flat.Quota <= 0 {
		return fmt.Errorf("flat.quota must be positive when the flat backend is enabled")
	}

	if c.Volatile.Shards <= 0 || (c.Volatile.Shards&(c.Volatile.Shards-1)) != 0 {
		return fmt.Errorf("volatile.shards must be a positive power of 2")
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold <= 0 {
			return fmt.Errorf("circuitBreaker.failureThreshold must be positive")
		}
		if c.CircuitBreaker.OpenDuration <= 0 {
			return fmt.Errorf("circuitBreaker.openDuration must be positive")
		}
	}

	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseInt64(s string, defaultVal int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseFloat(s string, defaultVal float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
