package types

import "time"

// HealthStatus represents the overall health of the engine.
type HealthStatus string

const (
	// HealthStatusHealthy means every configured backend is available.
	HealthStatusHealthy HealthStatus = "healthy"

	// HealthStatusDegraded means at least one backend is down but the
	// volatile terminal fallback still accepts writes.
	HealthStatusDegraded HealthStatus = "degraded"

	// HealthStatusUnavailable means no backend is available.
	HealthStatusUnavailable HealthStatus = "unavailable"
)

// BackendHealth describes one backend in the fallback chain.
type BackendHealth struct {
	Name       string `json:"name"`
	Available  bool   `json:"available"`
	UsedBytes  int64  `json:"usedBytes"`
	EntryCount int    `json:"entryCount"`
}

// HealthReport is a point-in-time snapshot of engine health.
type HealthReport struct {
	Status    HealthStatus    `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Usage     Usage           `json:"usage"`
	Backends  []BackendHealth `json:"backends"`
}
