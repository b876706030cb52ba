package rules

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/packrat-cache/packrat/internal/types"
)

// DefaultCacheCapacity bounds the memoization cache when no capacity is
// configured.
const DefaultCacheCapacity = 1024

// Matcher memoizes rule resolution per exact key string. The cache evicts
// in insertion order (FIFO) once full; this is intentionally simpler than an
// LRU and is part of the documented behavior. Replacing the rule set clears
// the cache wholesale, never partially.
type Matcher struct {
	logger *slog.Logger

	mu       sync.RWMutex
	rules    []types.Rule
	gen      uint64
	capacity int
	cache    map[string]*types.Rule // nil value means "resolved to no rule"
	order    []string

	sf singleflight.Group
}

type resolution struct {
	rule *types.Rule
	gen  uint64
}

// NewMatcher creates a Matcher with the given memoization capacity.
func NewMatcher(capacity int, logger *slog.Logger) *Matcher {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		logger:   logger.With("component", "rule-matcher"),
		capacity: capacity,
		cache:    make(map[string]*types.Rule),
	}
}

// UpdateRules validates the new rule set, atomically swaps it in, and
// unconditionally clears the memoization cache. A set containing a malformed
// pattern is rejected as a whole.
func (m *Matcher) UpdateRules(rules []types.Rule) error {
	if err := types.ValidateRules(rules); err != nil {
		return err
	}
	for _, r := range rules {
		if err := CheckPattern(r); err != nil {
			return fmt.Errorf("rule %q: %w", r.ID, err)
		}
	}

	snapshot := make([]types.Rule, len(rules))
	copy(snapshot, rules)

	m.mu.Lock()
	m.rules = snapshot
	m.gen++
	m.cache = make(map[string]*types.Rule)
	m.order = m.order[:0]
	m.mu.Unlock()

	m.logger.Debug("Rule set replaced", "rules", len(snapshot))
	return nil
}

// Rules returns a copy of the current rule set.
func (m *Matcher) Rules() []types.Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Match returns the rule governing key, or nil when no rule matches.
// Absence of a match is a normal result, not an error. Concurrent misses on
// the same key share a single resolution. The returned rule is the caller's
// copy; mutating it never reaches the cache or the rule set.
func (m *Matcher) Match(key string) *types.Rule {
	m.mu.RLock()
	if rule, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return cloneRule(rule)
	}
	m.mu.RUnlock()

	v, _, _ := m.sf.Do(key, func() (any, error) {
		m.mu.RLock()
		rules := m.rules
		gen := m.gen
		m.mu.RUnlock()

		return resolution{rule: Resolve(key, rules), gen: gen}, nil
	})

	res := v.(resolution)
	m.store(key, res)
	return cloneRule(res.rule)
}

func cloneRule(r *types.Rule) *types.Rule {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// store inserts a resolution unless the rule set changed underneath it.
func (m *Matcher) store(key string, res resolution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if res.gen != m.gen {
		return
	}
	if _, exists := m.cache[key]; exists {
		return
	}

	if len(m.order) >= m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.cache, oldest)
	}

	m.cache[key] = res.rule
	m.order = append(m.order, key)
}

// CacheLen reports the number of memoized resolutions.
func (m *Matcher) CacheLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}
