package types

import "time"

// MetricsSnapshot is a point-in-time view of engine activity, suitable for
// publishing or inspection.
type MetricsSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Hits per backend, keyed by backend name.
	HitsByBackend map[string]int64 `json:"hitsByBackend"`

	Misses      int64 `json:"misses"`
	GetCount    int64 `json:"getCount"`
	PutCount    int64 `json:"putCount"`
	RemoveCount int64 `json:"removeCount"`

	BytesWritten int64 `json:"bytesWritten"`

	EvictionRuns int64 `json:"evictionRuns"`
	EvictedBytes int64 `json:"evictedBytes"`
	EvictedCount int64 `json:"evictedCount"`
	ErrorCount   int64 `json:"errorCount"`
	CircuitTrips int64 `json:"circuitTrips"`

	AvgLatencyMs float64 `json:"avgLatencyMs"`
	P50LatencyMs float64 `json:"p50LatencyMs"`
	P95LatencyMs float64 `json:"p95LatencyMs"`
	P99LatencyMs float64 `json:"p99LatencyMs"`
}

// HitRatio returns the fraction of reads served from a backend.
func (s MetricsSnapshot) HitRatio() float64 {
	var hits int64
	for _, n := range s.HitsByBackend {
		hits += n
	}
	total := hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// PublisherHealthMetrics is the batch of health gauges pushed to a publisher
// on each interval.
type PublisherHealthMetrics struct {
	UsedBytes        int64
	LimitBytes       int64
	UsagePercentage  float64
	TotalEntries     int
	HitRatio         float64
	AverageLatencyMs float64
	BackendsHealthy  int
	BackendsTotal    int
}

// Publisher sends metrics to an external system such as DataDog.
type Publisher interface {
	Gauge(name string, value float64, tags ...string)
	Incr(name string, tags ...string)
	Count(name string, value int64, tags ...string)
	Histogram(name string, value float64, tags ...string)
	Timing(name string, duration time.Duration, tags ...string)
	Event(title, text, alertType string, tags ...string)
	PublishHealthMetrics(m *PublisherHealthMetrics)
	Close() error
}
