package storage

import (
	"fmt"

	"github.com/packrat-cache/packrat/internal/types"
)

// Candidate is an entry under consideration for eviction, paired with the
// backend currently holding it.
type Candidate struct {
	Key      string
	Backend  types.Backend
	Metadata types.Metadata
}

// EvictionPolicy orders eviction candidates. Less reports whether a should
// be evicted before b; ties fall back to discovery order via a stable sort.
type EvictionPolicy interface {
	Name() string
	Less(a, b Candidate) bool
}

// NewEvictionPolicy returns the policy registered under the given name.
func NewEvictionPolicy(name string) (EvictionPolicy, error) {
	switch name {
	case types.EvictionRecency:
		return recencyPolicy{}, nil
	case types.EvictionFrequency:
		return frequencyPolicy{}, nil
	case types.EvictionPriority:
		return priorityPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown eviction policy %q", name)
	}
}

// recencyPolicy evicts the least recently accessed entry first. Entries that
// have never been read fall back to their creation time.
type recencyPolicy struct{}

func (recencyPolicy) Name() string { return types.EvictionRecency }

func (recencyPolicy) Less(a, b Candidate) bool {
	return a.Metadata.EffectiveAccessTime().Before(b.Metadata.EffectiveAccessTime())
}

// frequencyPolicy evicts the least frequently accessed entry first.
type frequencyPolicy struct{}

func (frequencyPolicy) Name() string { return types.EvictionFrequency }

func (frequencyPolicy) Less(a, b Candidate) bool {
	return a.Metadata.AccessCount < b.Metadata.AccessCount
}

// priorityPolicy evicts the lowest priority entry first.
type priorityPolicy struct{}

func (priorityPolicy) Name() string { return types.EvictionPriority }

func (priorityPolicy) Less(a, b Candidate) bool {
	return a.Metadata.Priority < b.Metadata.Priority
}
