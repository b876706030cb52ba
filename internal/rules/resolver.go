package rules

import "github.com/packrat-cache/packrat/internal/types"

// FindMatching returns every rule whose pattern matches key, preserving the
// input order. Rules with malformed patterns are skipped; they are rejected
// at installation time, so hitting one here means the set bypassed
// validation.
func FindMatching(key string, rules []types.Rule) []types.Rule {
	var matched []types.Rule
	for _, r := range rules {
		ok, err := Match(key, r.Pattern, r.Regex)
		if err != nil {
			continue
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched
}

// Resolve returns the matching rule with the highest priority, or nil when
// no rule matches. Among rules sharing the maximal priority the one
// appearing earliest in the input wins: the fold only replaces the current
// best on a strict priority increase. This tie-break is a compatibility
// guarantee, not fairness.
func Resolve(key string, rules []types.Rule) *types.Rule {
	matched := FindMatching(key, rules)
	if len(matched) == 0 {
		return nil
	}

	best := matched[0]
	for _, r := range matched[1:] {
		if r.Priority > best.Priority {
			best = r
		}
	}
	return &best
}
