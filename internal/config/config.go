// Package config provides configuration management for the packrat engine.
package config

import (
	"time"

	"github.com/packrat-cache/packrat/internal/types"
)

// SecretString is a string type that redacts its value when marshaled to JSON.
type SecretString = types.SecretString

// NewSecretString creates a new SecretString with the provided value.
func NewSecretString(value string) SecretString {
	return types.NewSecretString(value)
}

// Config contains all configuration for the packrat cache policy engine.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	// MaxSize is the aggregate capacity in bytes across all backends.
	MaxSize int64 `json:"maxSize"`

	// EvictionPolicy is one of "recency", "frequency" or "priority".
	EvictionPolicy string `json:"evictionPolicy"`

	// CapacityThreshold is the fraction of MaxSize at which a prospective
	// write triggers eviction. Defaults to 0.8.
	CapacityThreshold float64 `json:"capacityThreshold"`

	// RuleCacheCapacity bounds the rule matcher's memoization cache.
	RuleCacheCapacity int `json:"ruleCacheCapacity"`

	Structured     StructuredConfig     `json:"structured"`
	Flat           FlatConfig           `json:"flat"`
	Volatile       VolatileConfig       `json:"volatile"`
	CircuitBreaker CircuitBreakerConfig `json:"circuitBreaker"`
	Metrics        MetricsConfig        `json:"metrics"`
}

// StructuredConfig configures the durable structured backend (Redis).
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type StructuredConfig struct {
	Enabled       bool          `json:"enabled"`
	Address       string        `json:"address"`
	Password      SecretString  `json:"password"`
	DB            int           `json:"db"`
	KeyPrefix     string        `json:"keyPrefix"`
	PoolSize      int           `json:"poolSize"`
	MinIdleConns  int           `json:"minIdleConns"`
	DialTimeout   time.Duration `json:"dialTimeout"`
	ReadTimeout   time.Duration `json:"readTimeout"`
	WriteTimeout  time.Duration `json:"writeTimeout"`
	PoolTimeout   time.Duration `json:"poolTimeout"`
	ScanCount     int64         `json:"scanCount"`
	EnableTLS     bool          `json:"enableTLS"`
	TLSSkipVerify bool          `json:"tlsSkipVerify"`
}

// FlatConfig configures the durable flat backend (file-per-key store).
type FlatConfig struct {
	Enabled bool `json:"enabled"`

	// Directory holds the store's files. Empty means a "packrat" directory
	// under the OS cache dir.
	Directory string `json:"directory"`

	// Quota is the store's capacity in bytes; puts beyond it fail with a
	// quota-exceeded error. Flat stores are deliberately small.
	Quota int64 `json:"quota"`
}

// VolatileConfig configures the in-memory terminal fallback backend.
type VolatileConfig struct {
	Shards       int           `json:"shards"`
	MaxEntrySize int           `json:"maxEntrySize"`
	LifeWindow   time.Duration `json:"lifeWindow"`
}

// CircuitBreakerConfig configures circuit breaking on the structured backend.
type CircuitBreakerConfig struct {
	Enabled             bool          `json:"enabled"`
	FailureThreshold    int           `json:"failureThreshold"`
	SuccessThreshold    int           `json:"successThreshold"`
	OpenDuration        time.Duration `json:"openDuration"`
	HalfOpenMaxRequests int           `json:"halfOpenMaxRequests"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}
