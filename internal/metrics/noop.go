package metrics

import (
	"time"

	"github.com/packrat-cache/packrat/internal/types"
)

// NoopRecorder is a no-operation metrics recorder for testing or when
// metrics are disabled.
type NoopRecorder struct{}

// NewNoopRecorder creates a new no-op recorder.
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

// RecordHit does nothing.
func (r *NoopRecorder) RecordHit(backend, key string, latency time.Duration) {}

// RecordMiss does nothing.
func (r *NoopRecorder) RecordMiss(key string, latency time.Duration) {}

// RecordPut does nothing.
func (r *NoopRecorder) RecordPut(backend, key string, size int64, latency time.Duration) {}

// RecordRemove does nothing.
func (r *NoopRecorder) RecordRemove(key string, latency time.Duration) {}

// RecordEviction does nothing.
func (r *NoopRecorder) RecordEviction(policy string, freedBytes int64, entries int) {}

// RecordBackendError does nothing.
func (r *NoopRecorder) RecordBackendError(backend, op string, err error) {}

// RecordCircuitStateChange does nothing.
func (r *NoopRecorder) RecordCircuitStateChange(from, to string) {}

// NoOpPublisher is a no-operation metrics publisher for testing or when disabled.
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op publisher.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

// Gauge does nothing.
func (p *NoOpPublisher) Gauge(name string, value float64, tags ...string) {}

// Incr does nothing.
func (p *NoOpPublisher) Incr(name string, tags ...string) {}

// Count does nothing.
func (p *NoOpPublisher) Count(name string, value int64, tags ...string) {}

// Histogram does nothing.
func (p *NoOpPublisher) Histogram(name string, value float64, tags ...string) {}

// Timing does nothing.
func (p *NoOpPublisher) Timing(name string, duration time.Duration, tags ...string) {}

// Event does nothing.
func (p *NoOpPublisher) Event(title, text, alertType string, tags ...string) {}

// PublishHealthMetrics does nothing.
func (p *NoOpPublisher) PublishHealthMetrics(m *types.PublisherHealthMetrics) {}

// Close does nothing.
func (p *NoOpPublisher) Close() error { return nil }

// Ensure interfaces are implemented
var (
	_ types.MetricsRecorder = (*NoopRecorder)(nil)
	_ types.Publisher       = (*NoOpPublisher)(nil)
)
