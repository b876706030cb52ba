package types

import "fmt"

// ValidateRule checks the structural invariants of a single rule. Pattern
// compilability is checked separately by the rules package, which owns the
// glob and regex grammars.
func ValidateRule(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule ID cannot be empty", ErrInvalidRule)
	}
	if r.Pattern == "" {
		return fmt.Errorf("%w: rule %q has an empty pattern", ErrInvalidRule, r.ID)
	}
	if r.Priority < MinPriority || r.Priority > MaxPriority {
		return fmt.Errorf("%w: rule %q priority %d outside [%d,%d]",
			ErrInvalidRule, r.ID, r.Priority, MinPriority, MaxPriority)
	}
	if r.MaxAge < 0 {
		return fmt.Errorf("%w: rule %q has negative maxAge", ErrInvalidRule, r.ID)
	}
	if r.MaxEntries < 0 {
		return fmt.Errorf("%w: rule %q has negative maxEntries", ErrInvalidRule, r.ID)
	}
	if r.NetworkTimeout < 0 {
		return fmt.Errorf("%w: rule %q has negative networkTimeout", ErrInvalidRule, r.ID)
	}
	return nil
}

// ValidateRules checks every rule in a set and that rule IDs are unique.
func ValidateRules(rules []Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate rule ID %q", ErrInvalidRule, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
