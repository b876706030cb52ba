package types

import "log/slog"

// ManagerOptions holds construction-time overrides for the storage manager
// and the engine facade.
type ManagerOptions struct {
	// Logger is the structured logger to use.
	Logger *slog.Logger

	// Metrics is the metrics recorder.
	Metrics MetricsRecorder

	// Backends replaces the configured backend chain entirely, in fallback
	// order. Used by tests and embedders that bring their own stores.
	Backends []Backend

	// EvictionPolicy overrides the configured eviction policy name.
	EvictionPolicy string

	// RedisAddress overrides the structured store address from config.
	RedisAddress string

	// RedisPassword overrides the structured store password from config.
	// Uses SecretString to prevent accidental logging of sensitive values.
	RedisPassword SecretString

	// RedisDB overrides the structured store database from config.
	RedisDB int

	// DisableStructured drops the structured durable backend from the chain.
	DisableStructured bool

	// DisableFlat drops the flat durable backend from the chain.
	DisableFlat bool

	// DisableCircuitBreaker turns off circuit breaking on the structured store.
	DisableCircuitBreaker bool
}
