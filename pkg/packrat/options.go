package packrat

import (
	"log/slog"

	"github.com/packrat-cache/packrat/internal/types"
)

// ManagerOption customizes engine construction.
type ManagerOption func(*ManagerOptions)

// WithLogger sets the structured logger used by the engine and its backends.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(o *ManagerOptions) {
		o.Logger = logger
	}
}

// WithMetrics sets a custom metrics recorder, replacing the built-in tracker.
func WithMetrics(metrics MetricsRecorder) ManagerOption {
	return func(o *ManagerOptions) {
		o.Metrics = metrics
	}
}

// WithEvictionPolicy overrides the configured eviction policy.
func WithEvictionPolicy(policy string) ManagerOption {
	return func(o *ManagerOptions) {
		o.EvictionPolicy = policy
	}
}

// WithRedisAddress overrides the structured store address from config.
func WithRedisAddress(addr string) ManagerOption {
	return func(o *ManagerOptions) {
		o.RedisAddress = addr
	}
}

// WithRedisPassword overrides the structured store password from config.
func WithRedisPassword(password string) ManagerOption {
	return func(o *ManagerOptions) {
		o.RedisPassword = types.NewSecretString(password)
	}
}

// WithRedisDB overrides the structured store database from config.
func WithRedisDB(db int) ManagerOption {
	return func(o *ManagerOptions) {
		o.RedisDB = db
	}
}

// WithoutStructured drops the structured durable backend from the chain.
func WithoutStructured() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisableStructured = true
	}
}

// WithoutFlat drops the flat durable backend from the chain.
func WithoutFlat() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisableFlat = true
	}
}

// WithoutCircuitBreaker turns off circuit breaking on the structured store.
func WithoutCircuitBreaker() ManagerOption {
	return func(o *ManagerOptions) {
		o.DisableCircuitBreaker = true
	}
}
