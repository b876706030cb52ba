package packrat

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/metrics"
	"github.com/packrat-cache/packrat/internal/metrics/datadog"
	"github.com/packrat-cache/packrat/internal/rules"
	"github.com/packrat-cache/packrat/internal/storage"
	"github.com/packrat-cache/packrat/internal/types"
)

// defaultPriority tags entries whose key no rule governs.
const defaultPriority = 5

// Engine is the public interface of the cache policy engine. It combines
// rule matching with tiered storage: writes carry the matched rule's
// priority so the priority eviction policy can rank them later.
type Engine interface {
	// UpdateRules atomically replaces the rule set. The set is validated
	// as a whole; a single bad rule rejects the entire update.
	UpdateRules(rules []Rule) error

	// Rules returns a copy of the current rule set.
	Rules() []Rule

	// Match returns the rule governing key, or nil when none matches.
	Match(key string) *Rule

	// Put stores a value under key across the backend fallback chain and
	// reports the name of the backend that accepted the write.
	Put(ctx context.Context, key string, value []byte) (string, error)

	// Get retrieves a value, reporting which backend served it.
	Get(ctx context.Context, key string) (*Fetched, error)

	// Remove deletes key from every backend, best effort.
	Remove(ctx context.Context, key string) error

	// Clear empties every backend, best effort.
	Clear(ctx context.Context) error

	// Usage reports aggregate and per-backend storage consumption.
	Usage(ctx context.Context) Usage

	// Evict frees at least needed bytes if possible, returning the bytes
	// actually freed.
	Evict(ctx context.Context, needed int64) (int64, error)

	// Health reports per-backend availability and overall status.
	Health(ctx context.Context) HealthReport

	// Metrics returns a snapshot of engine activity counters.
	Metrics() MetricsSnapshot

	// Close releases all resources. Safe to call more than once.
	Close() error
}

type engine struct {
	matcher    *rules.Matcher
	manager    *storage.Manager
	tracker    *metrics.Tracker
	publisher  types.Publisher
	background *metrics.BackgroundPublisher
	logger     *slog.Logger
	closed     atomic.Bool
}

func newEngine(cfg *config.Config, opts *ManagerOptions) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &engine{
		matcher: rules.NewMatcher(cfg.RuleCacheCapacity, logger),
		logger:  logger.With("component", "engine"),
	}

	if cfg.Metrics.Enabled && opts.Metrics == nil {
		e.tracker = metrics.NewTracker()
		opts.Metrics = e.tracker
	}

	manager, err := storage.NewManager(cfg, *opts)
	if err != nil {
		return nil, err
	}
	e.manager = manager

	if cfg.Metrics.Enabled {
		publisher, err := datadog.NewPublisher(&cfg.Metrics.DataDog, logger)
		if err != nil {
			e.logger.Warn("Metrics publisher unavailable, using no-op", "error", err)
			publisher = metrics.NewNoOpPublisher()
		}
		e.publisher = publisher

		interval := cfg.Metrics.PublishInterval
		if interval > 0 {
			e.background = metrics.NewBackgroundPublisher(
				publisher, interval, e.healthMetrics, logger)
			e.background.Start(context.Background())
		}
	}

	return e, nil
}

func (e *engine) UpdateRules(ruleSet []Rule) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.matcher.UpdateRules(ruleSet)
}

func (e *engine) Rules() []Rule {
	return e.matcher.Rules()
}

func (e *engine) Match(key string) *Rule {
	return e.matcher.Match(key)
}

func (e *engine) Put(ctx context.Context, key string, value []byte) (string, error) {
	if e.closed.Load() {
		return "", ErrClosed
	}

	priority := defaultPriority
	if rule := e.matcher.Match(key); rule != nil {
		priority = rule.Priority
	}
	return e.manager.Put(ctx, key, value, priority)
}

func (e *engine) Get(ctx context.Context, key string) (*Fetched, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	return e.manager.Get(ctx, key)
}

func (e *engine) Remove(ctx context.Context, key string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.manager.Remove(ctx, key)
}

func (e *engine) Clear(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.manager.Clear(ctx)
}

func (e *engine) Usage(ctx context.Context) Usage {
	return e.manager.Usage(ctx)
}

func (e *engine) Evict(ctx context.Context, needed int64) (int64, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	return e.manager.Evict(ctx, needed)
}

func (e *engine) Health(ctx context.Context) HealthReport {
	return e.manager.Health(ctx)
}

func (e *engine) Metrics() MetricsSnapshot {
	if e.tracker == nil {
		return MetricsSnapshot{}
	}
	return e.tracker.Snapshot()
}

// healthMetrics assembles the gauge batch for the background publisher.
func (e *engine) healthMetrics() *types.PublisherHealthMetrics {
	if e.closed.Load() {
		return nil
	}

	ctx := context.Background()
	health := e.manager.Health(ctx)

	healthy := 0
	entries := 0
	for _, b := range health.Backends {
		if b.Available {
			healthy++
		}
		entries += b.EntryCount
	}

	m := &types.PublisherHealthMetrics{
		UsedBytes:       health.Usage.Used,
		LimitBytes:      health.Usage.Total,
		TotalEntries:    entries,
		BackendsHealthy: healthy,
		BackendsTotal:   len(health.Backends),
	}
	if health.Usage.Total > 0 {
		m.UsagePercentage = float64(health.Usage.Used) / float64(health.Usage.Total) * 100
	}
	if e.tracker != nil {
		snap := e.tracker.Snapshot()
		m.HitRatio = snap.HitRatio()
		m.AverageLatencyMs = snap.AvgLatencyMs
	}
	return m
}

func (e *engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	if e.background != nil {
		e.background.Stop()
	}
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			e.logger.Warn("Publisher close failed", "error", err)
		}
	}
	return e.manager.Close()
}
