// Package types provides shared types for the packrat cache policy engine.
// This package breaks import cycles between pkg/packrat and the internal
// rules and storage packages.
package types

import "time"

// Strategy identifies how the orchestration layer should serve a resource
// governed by a rule. The engine stores and returns it but never interprets it.
type Strategy int

const (
	StrategyCacheFirst Strategy = iota + 1
	StrategyNetworkFirst
	StrategyStaleWhileRevalidate
	StrategyNetworkOnly
	StrategyCacheOnly
)

func (s Strategy) String() string {
	switch s {
	case StrategyCacheFirst:
		return "cache-first"
	case StrategyNetworkFirst:
		return "network-first"
	case StrategyStaleWhileRevalidate:
		return "stale-while-revalidate"
	case StrategyNetworkOnly:
		return "network-only"
	case StrategyCacheOnly:
		return "cache-only"
	default:
		return "unknown"
	}
}

// Rule maps a key pattern to a caching strategy and a priority. Rules are
// immutable once validated; replacing the rule set invalidates every cached
// resolution at once.
type Rule struct {
	// ID uniquely identifies the rule within a rule set.
	ID string `json:"id"`

	// Pattern is either a glob (default) or a raw regular expression,
	// depending on Regex.
	Pattern string `json:"pattern"`

	// Regex marks Pattern as a regular expression instead of a glob.
	Regex bool `json:"regex,omitempty"`

	Strategy Strategy `json:"strategy"`

	// Priority ranks the rule for resolution and, indirectly, for
	// priority-based eviction. Valid range is [1,10].
	Priority int `json:"priority"`

	// MaxAge, MaxEntries and NetworkTimeout are carried for the
	// orchestration layer; the engine does not act on them.
	MaxAge         time.Duration `json:"maxAge,omitempty"`
	MaxEntries     int           `json:"maxEntries,omitempty"`
	NetworkTimeout time.Duration `json:"networkTimeout,omitempty"`
}

// Metadata describes a stored entry. Size drives usage accounting and
// eviction; the remaining fields feed the eviction policy comparators.
type Metadata struct {
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
	AccessCount  int64     `json:"accessCount"`
	Priority     int       `json:"priority"`
}

// EffectiveAccessTime returns LastAccessed, falling back to CreatedAt when
// the entry has never been read. Recency eviction orders by this value.
func (m Metadata) EffectiveAccessTime() time.Time {
	if m.LastAccessed.IsZero() {
		return m.CreatedAt
	}
	return m.LastAccessed
}

// Touched returns a copy of the metadata with access bookkeeping advanced
// to the given time.
func (m Metadata) Touched(at time.Time) Metadata {
	m.LastAccessed = at
	m.AccessCount++
	return m
}

// Entry is a stored value plus its metadata. It is owned by whichever
// backend currently holds it.
type Entry struct {
	Key      string   `json:"key"`
	Value    []byte   `json:"value"`
	Metadata Metadata `json:"metadata"`
}

// Fetched is the result of a successful read: the stored bytes and the name
// of the backend that held them.
type Fetched struct {
	Value   []byte
	Backend string
}

// Usage is a point-in-time aggregate computed by summing each backend's
// reported usage. It is never persisted.
type Usage struct {
	Total     int64            `json:"total"`
	Used      int64            `json:"used"`
	Available int64            `json:"available"`
	ByBackend map[string]int64 `json:"byBackend"`
}

// Eviction policy names accepted by the configuration surface.
const (
	EvictionRecency   = "recency"
	EvictionFrequency = "frequency"
	EvictionPriority  = "priority"
)

// Priority bounds for rules and entry metadata.
const (
	MinPriority = 1
	MaxPriority = 10
)
