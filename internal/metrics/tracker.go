// Package metrics provides cache operation metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/packrat-cache/packrat/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

// Tracker collects engine activity counters and latency samples. It is safe
// for concurrent use and implements types.MetricsRecorder.
type Tracker struct {
	hitsMu sync.Mutex
	hits   map[string]int64

	misses      atomic.Int64
	getCount    atomic.Int64
	putCount    atomic.Int64
	removeCount atomic.Int64

	bytesWritten atomic.Int64

	evictionRuns atomic.Int64
	evictedBytes atomic.Int64
	evictedCount atomic.Int64

	errorCount   atomic.Int64
	circuitTrips atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int
}

func NewTracker() *Tracker {
	return &Tracker{
		hits:          make(map[string]int64),
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

func (t *Tracker) RecordHit(backend, key string, latency time.Duration) {
	t.hitsMu.Lock()
	t.hits[backend]++
	t.hitsMu.Unlock()

	t.getCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordMiss(key string, latency time.Duration) {
	t.misses.Add(1)
	t.getCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordPut(backend, key string, size int64, latency time.Duration) {
	t.putCount.Add(1)
	t.bytesWritten.Add(size)
	t.recordLatency(latency)
}

func (t *Tracker) RecordRemove(key string, latency time.Duration) {
	t.removeCount.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordEviction(policy string, freedBytes int64, entries int) {
	t.evictionRuns.Add(1)
	t.evictedBytes.Add(freedBytes)
	t.evictedCount.Add(int64(entries))
}

func (t *Tracker) RecordBackendError(backend, op string, err error) {
	t.errorCount.Add(1)
}

func (t *Tracker) RecordCircuitStateChange(from, to string) {
	t.circuitTrips.Add(1)
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns the current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	if count > 0 {
		if count < len(t.latencyBuffer) {
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	t.hitsMu.Lock()
	hits := make(map[string]int64, len(t.hits))
	for k, v := range t.hits {
		hits[k] = v
	}
	t.hitsMu.Unlock()

	snapshot := types.MetricsSnapshot{
		Timestamp:     time.Now(),
		HitsByBackend: hits,
		Misses:        t.misses.Load(),
		GetCount:      t.getCount.Load(),
		PutCount:      t.putCount.Load(),
		RemoveCount:   t.removeCount.Load(),
		BytesWritten:  t.bytesWritten.Load(),
		EvictionRuns:  t.evictionRuns.Load(),
		EvictedBytes:  t.evictedBytes.Load(),
		EvictedCount:  t.evictedCount.Load(),
		ErrorCount:    t.errorCount.Load(),
		CircuitTrips:  t.circuitTrips.Load(),
	}

	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = float64(avgDuration(latencyCopy).Milliseconds())
		snapshot.P50LatencyMs = float64(percentile(latencyCopy, 50).Milliseconds())
		snapshot.P95LatencyMs = float64(percentile(latencyCopy, 95).Milliseconds())
		snapshot.P99LatencyMs = float64(percentile(latencyCopy, 99).Milliseconds())
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.hitsMu.Lock()
	t.hits = make(map[string]int64)
	t.hitsMu.Unlock()

	t.misses.Store(0)
	t.getCount.Store(0)
	t.putCount.Store(0)
	t.removeCount.Store(0)
	t.bytesWritten.Store(0)
	t.evictionRuns.Store(0)
	t.evictedBytes.Store(0)
	t.evictedCount.Store(0)
	t.errorCount.Store(0)
	t.circuitTrips.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

var _ types.MetricsRecorder = (*Tracker)(nil)
