package storage

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/packrat-cache/packrat/internal/config"
	"github.com/packrat-cache/packrat/internal/metrics"
	"github.com/packrat-cache/packrat/internal/resilience"
	"github.com/packrat-cache/packrat/internal/types"
)

// Manager coordinates the backend fallback chain. Writes try each backend in
// order until one accepts; reads consult a location hint before scanning the
// chain. Aggregate capacity and eviction are the manager's responsibility,
// not any single backend's.
type Manager struct {
	backends  []types.Backend
	policy    EvictionPolicy
	maxSize   int64
	threshold float64
	metrics   types.MetricsRecorder
	logger    *slog.Logger

	// hints remembers which backend last held a key. It is advisory only:
	// a stale or missing hint degrades to a full chain scan, never to a
	// wrong answer.
	hintMu sync.RWMutex
	hints  map[string]string

	closed atomic.Bool
}

// NewManager builds the manager and its backend chain from configuration.
// A structured or flat store that fails to initialize is replaced by an
// unavailable placeholder so its slot stays visible in diagnostics. Only a
// volatile store failure is fatal, since it is the terminal fallback.
func NewManager(cfg *config.Config, opts types.ManagerOptions) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rec := opts.Metrics
	if rec == nil {
		rec = metrics.NewNoopRecorder()
	}

	policyName := cfg.EvictionPolicy
	if opts.EvictionPolicy != "" {
		policyName = opts.EvictionPolicy
	}
	policy, err := NewEvictionPolicy(policyName)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		policy:    policy,
		maxSize:   cfg.MaxSize,
		threshold: cfg.CapacityThreshold,
		metrics:   rec,
		logger:    logger.With("component", "storage-manager"),
		hints:     make(map[string]string),
	}
	if m.threshold <= 0 || m.threshold > 1 {
		m.threshold = 0.8
	}

	if len(opts.Backends) > 0 {
		m.backends = opts.Backends
		return m, nil
	}

	if cfg.Structured.Enabled && !opts.DisableStructured {
		scfg := cfg.Structured
		if opts.RedisAddress != "" {
			scfg.Address = opts.RedisAddress
		}
		if !opts.RedisPassword.IsEmpty() {
			scfg.Password = opts.RedisPassword
		}
		if opts.RedisDB != 0 {
			scfg.DB = opts.RedisDB
		}

		var breaker resilience.Breaker
		if cfg.CircuitBreaker.Enabled && !opts.DisableCircuitBreaker {
			cb := resilience.NewCircuitBreaker("structured", cfg.CircuitBreaker)
			cb.SetOnStateChange(func(from, to resilience.State) {
				m.logger.Warn("Structured store circuit state changed",
					"from", from.String(), "to", to.String())
				rec.RecordCircuitStateChange(from.String(), to.String())
			})
			breaker = cb
		} else {
			breaker = resilience.NewDisabledCircuitBreaker()
		}

		structured, err := NewStructuredStore(scfg, breaker, logger)
		if err != nil {
			m.logger.Warn("Structured store unavailable, continuing without it", "error", err)
			m.backends = append(m.backends, NewUnavailableBackend("structured", err))
		} else {
			m.backends = append(m.backends, structured)
		}
	}

	if cfg.Flat.Enabled && !opts.DisableFlat {
		flat, err := NewFlatStore(cfg.Flat, logger)
		if err != nil {
			m.logger.Warn("Flat store unavailable, continuing without it", "error", err)
			m.backends = append(m.backends, NewUnavailableBackend("flat", err))
		} else {
			m.backends = append(m.backends, flat)
		}
	}

	volatile, err := NewVolatileStore(cfg.Volatile, logger)
	if err != nil {
		return nil, err
	}
	m.backends = append(m.backends, volatile)

	return m, nil
}

// Backends returns the fallback chain in order.
func (m *Manager) Backends() []types.Backend {
	return m.backends
}

// Policy returns the active eviction policy name.
func (m *Manager) Policy() string {
	return m.policy.Name()
}

// Put stores a value under the first backend in the chain that accepts it
// and reports that backend's name. When the projected usage crosses the
// capacity threshold, eviction runs first; the write is attempted regardless
// of how much eviction freed.
func (m *Manager) Put(ctx context.Context, key string, value []byte, priority int) (string, error) {
	if m.closed.Load() {
		return "", types.ErrClosed
	}

	start := time.Now()

	if priority < types.MinPriority {
		priority = types.MinPriority
	}
	if priority > types.MaxPriority {
		priority = types.MaxPriority
	}

	meta := types.Metadata{
		Size:      int64(len(value)),
		CreatedAt: time.Now(),
		Priority:  priority,
	}

	thresholdBytes := int64(float64(m.maxSize) * m.threshold)
	used := m.usedBytes(ctx)
	if projected := used + meta.Size; projected > thresholdBytes {
		freed, err := m.Evict(ctx, projected-thresholdBytes)
		if err != nil {
			m.logger.Warn("Eviction before write failed", "key", key, "error", err)
		} else {
			m.logger.Debug("Evicted before write",
				"key", key, "freed", freed, "needed", projected-thresholdBytes)
		}
	}

	var failures []types.BackendFailure
	for _, b := range m.backends {
		if err := b.Put(ctx, key, value, meta); err != nil {
			failures = append(failures, types.BackendFailure{Backend: b.Name(), Err: err})
			m.metrics.RecordBackendError(b.Name(), "Put", err)
			m.logger.Debug("Backend write failed, falling back",
				"backend", b.Name(), "key", key, "error", err)
			continue
		}

		m.setHint(key, b.Name())
		m.metrics.RecordPut(b.Name(), key, meta.Size, time.Since(start))
		return b.Name(), nil
	}

	return "", &types.UnavailableError{Op: "Put", Key: key, Failures: failures}
}

// Get retrieves a value, trying the hinted backend first and falling back to
// a scan of the whole chain. A hit refreshes the entry's access metadata.
func (m *Manager) Get(ctx context.Context, key string) (*types.Fetched, error) {
	if m.closed.Load() {
		return nil, types.ErrClosed
	}

	start := time.Now()

	hinted := ""
	if name, ok := m.hint(key); ok {
		if b := m.backendByName(name); b != nil {
			hinted = name
			if entry, err := b.Get(ctx, key); err == nil {
				return m.hit(ctx, b, entry, start), nil
			}
			// Hint was stale; fall through to the full scan.
			m.dropHint(key)
		} else {
			m.dropHint(key)
		}
	}

	for _, b := range m.backends {
		if b.Name() == hinted {
			continue
		}
		entry, err := b.Get(ctx, key)
		if err != nil {
			if !types.IsNotFound(err) {
				m.metrics.RecordBackendError(b.Name(), "Get", err)
				m.logger.Debug("Backend read failed",
					"backend", b.Name(), "key", key, "error", err)
			}
			continue
		}
		return m.hit(ctx, b, entry, start), nil
	}

	m.metrics.RecordMiss(key, time.Since(start))
	return nil, types.ErrEntryNotFound
}

func (m *Manager) hit(ctx context.Context, b types.Backend, entry *types.Entry, start time.Time) *types.Fetched {
	m.touch(ctx, b, entry)
	m.setHint(entry.Key, b.Name())
	m.metrics.RecordHit(b.Name(), entry.Key, time.Since(start))
	return &types.Fetched{Value: entry.Value, Backend: b.Name()}
}

// touch advances the entry's access metadata. Backends that support a
// transactional touch get one; everything else gets a best-effort
// read-then-rewrite, whose races only skew eviction ordering slightly.
func (m *Manager) touch(ctx context.Context, b types.Backend, entry *types.Entry) {
	now := time.Now()

	if t, ok := b.(types.BackendToucher); ok {
		if err := t.Touch(ctx, entry.Key, now); err != nil {
			m.logger.Debug("Touch failed", "backend", b.Name(), "key", entry.Key, "error", err)
		}
		return
	}

	meta := entry.Metadata.Touched(now)
	if err := b.Put(ctx, entry.Key, entry.Value, meta); err != nil {
		m.logger.Debug("Metadata rewrite failed", "backend", b.Name(), "key", entry.Key, "error", err)
	}
}

// Remove deletes a key from every backend. Removal is best effort: backend
// failures are logged and swallowed, since the entry may never have been
// written there.
func (m *Manager) Remove(ctx context.Context, key string) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	start := time.Now()
	for _, b := range m.backends {
		if err := b.Remove(ctx, key); err != nil {
			m.metrics.RecordBackendError(b.Name(), "Remove", err)
			m.logger.Debug("Backend remove failed",
				"backend", b.Name(), "key", key, "error", err)
		}
	}

	m.dropHint(key)
	m.metrics.RecordRemove(key, time.Since(start))
	return nil
}

// Clear empties every backend, best effort, and resets the hint map.
func (m *Manager) Clear(ctx context.Context) error {
	if m.closed.Load() {
		return types.ErrClosed
	}

	for _, b := range m.backends {
		if err := b.Clear(ctx); err != nil {
			m.metrics.RecordBackendError(b.Name(), "Clear", err)
			m.logger.Warn("Backend clear failed", "backend", b.Name(), "error", err)
		}
	}

	m.hintMu.Lock()
	m.hints = make(map[string]string)
	m.hintMu.Unlock()
	return nil
}

// Usage aggregates per-backend usage. A backend that cannot report counts
// as zero rather than failing the whole summary.
func (m *Manager) Usage(ctx context.Context) types.Usage {
	byBackend := make(map[string]int64, len(m.backends))
	var used int64

	for _, b := range m.backends {
		n, err := b.Usage(ctx)
		if err != nil {
			m.metrics.RecordBackendError(b.Name(), "Usage", err)
			m.logger.Debug("Backend usage unavailable", "backend", b.Name(), "error", err)
			n = 0
		}
		byBackend[b.Name()] = n
		used += n
	}

	available := m.maxSize - used
	if available < 0 {
		available = 0
	}

	return types.Usage{
		Total:     m.maxSize,
		Used:      used,
		Available: available,
		ByBackend: byBackend,
	}
}

func (m *Manager) usedBytes(ctx context.Context) int64 {
	var used int64
	for _, b := range m.backends {
		if n, err := b.Usage(ctx); err == nil {
			used += n
		}
	}
	return used
}

// Evict removes entries across all backends, in the order chosen by the
// eviction policy, until at least needed bytes are freed or no candidates
// remain. It returns the bytes actually freed.
func (m *Manager) Evict(ctx context.Context, needed int64) (int64, error) {
	if m.closed.Load() {
		return 0, types.ErrClosed
	}
	if needed <= 0 {
		return 0, nil
	}

	candidates := m.collectCandidates(ctx)
	// Stable sort so equal candidates keep discovery order, which is the
	// documented tie-break for the priority policy.
	sort.SliceStable(candidates, func(i, j int) bool {
		return m.policy.Less(candidates[i], candidates[j])
	})

	var freed int64
	var evicted int
	for _, c := range candidates {
		if freed >= needed {
			break
		}
		if err := c.Backend.Remove(ctx, c.Key); err != nil {
			m.logger.Debug("Eviction remove failed",
				"backend", c.Backend.Name(), "key", c.Key, "error", err)
			continue
		}
		m.dropHint(c.Key)
		freed += c.Metadata.Size
		evicted++
	}

	if evicted > 0 {
		m.metrics.RecordEviction(m.policy.Name(), freed, evicted)
		m.logger.Info("Evicted entries",
			"policy", m.policy.Name(), "entries", evicted, "freed", freed, "needed", needed)
	}
	return freed, nil
}

// collectCandidates enumerates every entry in every backend. Enumeration
// reads metadata without touching it, so listing candidates never skews the
// recency or frequency ordering.
func (m *Manager) collectCandidates(ctx context.Context) []Candidate {
	var candidates []Candidate
	for _, b := range m.backends {
		keys, err := b.Keys(ctx)
		if err != nil {
			m.logger.Debug("Backend enumeration failed", "backend", b.Name(), "error", err)
			continue
		}
		for _, key := range keys {
			entry, err := b.Get(ctx, key)
			if err != nil {
				continue
			}
			candidates = append(candidates, Candidate{
				Key:      key,
				Backend:  b,
				Metadata: entry.Metadata,
			})
		}
	}
	return candidates
}

// Health reports per-backend availability and usage.
func (m *Manager) Health(ctx context.Context) types.HealthReport {
	report := types.HealthReport{
		Timestamp: time.Now(),
		Usage:     m.Usage(ctx),
		Backends:  make([]types.BackendHealth, 0, len(m.backends)),
	}

	available := 0
	for _, b := range m.backends {
		bh := types.BackendHealth{
			Name:      b.Name(),
			Available: b.IsAvailable(),
		}
		if bh.Available {
			available++
			if n, err := b.Usage(ctx); err == nil {
				bh.UsedBytes = n
			}
			if keys, err := b.Keys(ctx); err == nil {
				bh.EntryCount = len(keys)
			}
		}
		report.Backends = append(report.Backends, bh)
	}

	switch {
	case available == len(m.backends):
		report.Status = types.HealthStatusHealthy
	case available > 0:
		report.Status = types.HealthStatusDegraded
	default:
		report.Status = types.HealthStatusUnavailable
	}
	return report
}

// Close closes every backend. Safe to call more than once.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	var errs []error
	for _, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) backendByName(name string) types.Backend {
	for _, b := range m.backends {
		if b.Name() == name {
			return b
		}
	}
	return nil
}

func (m *Manager) hint(key string) (string, bool) {
	m.hintMu.RLock()
	defer m.hintMu.RUnlock()
	name, ok := m.hints[key]
	return name, ok
}

func (m *Manager) setHint(key, backend string) {
	m.hintMu.Lock()
	m.hints[key] = backend
	m.hintMu.Unlock()
}

func (m *Manager) dropHint(key string) {
	m.hintMu.Lock()
	delete(m.hints, key)
	m.hintMu.Unlock()
}
