package packrat

import (
	"github.com/packrat-cache/packrat/internal/types"
)

// Re-export health types from internal/types.
type (
	// HealthStatus represents the overall health state.
	HealthStatus = types.HealthStatus

	// HealthReport is a point-in-time snapshot of engine health.
	HealthReport = types.HealthReport

	// BackendHealth describes one backend in the fallback chain.
	BackendHealth = types.BackendHealth
)

// Re-export health status constants.
const (
	HealthStatusHealthy     = types.HealthStatusHealthy
	HealthStatusDegraded    = types.HealthStatusDegraded
	HealthStatusUnavailable = types.HealthStatusUnavailable
)
