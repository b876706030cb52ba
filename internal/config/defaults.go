package config

import (
	"time"

	"github.com/packrat-cache/packrat/internal/types"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxSize:           64 * 1024 * 1024, // 64MB aggregate
		EvictionPolicy:    types.EvictionRecency,
		CapacityThreshold: 0.8,
		RuleCacheCapacity: 1024,
		Structured: StructuredConfig{
			Enabled:      false,
			Address:      "localhost:6379",
			Password:     SecretString{},
			DB:           0,
			KeyPrefix:    "packrat:",
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolTimeout:  4 * time.Second,
			ScanCount:    100,
		},
		Flat: FlatConfig{
			Enabled: true,
			Quota:   5 * 1024 * 1024, // localStorage-class capacity
		},
		Volatile: VolatileConfig{
			Shards:       1024,
			MaxEntrySize: 10 * 1024 * 1024, // 10MB
			LifeWindow:   0,                // never expire on its own
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             true,
			FailureThreshold:    5,
			SuccessThreshold:    2,
			OpenDuration:        30 * time.Second,
			HalfOpenMaxRequests: 3,
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "packrat",
				Tags:      []string{},
			},
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// volatile-only chain, small sizes, no metrics.
func ForTesting() *Config {
	return &Config{
		MaxSize:           1 * 1024 * 1024,
		EvictionPolicy:    types.EvictionRecency,
		CapacityThreshold: 0.8,
		RuleCacheCapacity: 64,
		Structured: StructuredConfig{
			Enabled:      false,
			Address:      "localhost:6379",
			KeyPrefix:    "packrat-test:",
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  1 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			PoolTimeout:  1 * time.Second,
			ScanCount:    50,
		},
		Flat: FlatConfig{
			Enabled: false,
			Quota:   64 * 1024,
		},
		Volatile: VolatileConfig{
			Shards:       64,
			MaxEntrySize: 1024 * 1024,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             false,
			FailureThreshold:    3,
			SuccessThreshold:    1,
			OpenDuration:        1 * time.Second,
			HalfOpenMaxRequests: 1,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: 1 * time.Second,
		},
	}
}

// ForTestingWithRedis returns a test config with the structured backend
// pointed at the given address.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Structured.Enabled = true
	cfg.Structured.Address = addr
	return cfg
}
