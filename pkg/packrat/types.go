package packrat

import (
	"github.com/packrat-cache/packrat/internal/types"
)

type (
	// Rule maps a key pattern to a caching strategy and a priority.
	Rule = types.Rule
	// Strategy identifies how the orchestration layer should serve a
	// resource governed by a rule.
	Strategy = types.Strategy
	// Metadata describes a stored entry.
	Metadata = types.Metadata
	// Entry is a stored value plus its metadata.
	Entry = types.Entry
	// Fetched is the result of a successful read.
	Fetched = types.Fetched
	// Usage is a point-in-time aggregate of storage consumption.
	Usage = types.Usage
	// MetricsRecorder provides operations for recording engine metrics.
	MetricsRecorder = types.MetricsRecorder
	// MetricsSnapshot contains a point-in-time view of engine metrics.
	MetricsSnapshot = types.MetricsSnapshot
	// Publisher sends metrics to an external system such as DataDog.
	Publisher = types.Publisher
	// PublisherHealthMetrics is the batch of health gauges pushed to a
	// publisher on each interval.
	PublisherHealthMetrics = types.PublisherHealthMetrics
	// ManagerOptions holds construction-time overrides for the engine.
	ManagerOptions = types.ManagerOptions
)

const (
	// StrategyCacheFirst serves from cache, falling back to the network.
	StrategyCacheFirst = types.StrategyCacheFirst
	// StrategyNetworkFirst tries the network, falling back to cache.
	StrategyNetworkFirst = types.StrategyNetworkFirst
	// StrategyStaleWhileRevalidate serves from cache while refreshing.
	StrategyStaleWhileRevalidate = types.StrategyStaleWhileRevalidate
	// StrategyNetworkOnly never touches the cache.
	StrategyNetworkOnly = types.StrategyNetworkOnly
	// StrategyCacheOnly never touches the network.
	StrategyCacheOnly = types.StrategyCacheOnly
)

const (
	// EvictionRecency evicts the least recently accessed entries first.
	EvictionRecency = types.EvictionRecency
	// EvictionFrequency evicts the least frequently accessed entries first.
	EvictionFrequency = types.EvictionFrequency
	// EvictionPriority evicts the lowest priority entries first.
	EvictionPriority = types.EvictionPriority
)

const (
	// MinPriority is the lowest valid rule and entry priority.
	MinPriority = types.MinPriority
	// MaxPriority is the highest valid rule and entry priority.
	MaxPriority = types.MaxPriority
)

// ValidateRules checks a rule set for structural problems: empty IDs or
// patterns, duplicate IDs and out-of-range priorities.
func ValidateRules(rules []Rule) error {
	return types.ValidateRules(rules)
}
