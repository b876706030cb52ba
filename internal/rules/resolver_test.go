package rules

import (
	"testing"

	"github.com/packrat-cache/packrat/internal/types"
)

func ruleSet() []types.Rule {
	return []types.Rule{
		{ID: "api", Pattern: "/api/**", Strategy: types.StrategyNetworkFirst, Priority: 5},
		{ID: "images", Pattern: "/img/*", Strategy: types.StrategyCacheFirst, Priority: 7},
		{ID: "catch-all", Pattern: "/**", Strategy: types.StrategyStaleWhileRevalidate, Priority: 1},
	}
}

func TestFindMatching(t *testing.T) {
	t.Run("preserves input order", func(t *testing.T) {
		matched := FindMatching("/api/users", ruleSet())
		if len(matched) != 2 {
			t.Fatalf("Expected 2 matches, got %d", len(matched))
		}
		if matched[0].ID != "api" || matched[1].ID != "catch-all" {
			t.Errorf("Expected [api catch-all], got [%s %s]", matched[0].ID, matched[1].ID)
		}
	})

	t.Run("returns empty for no match", func(t *testing.T) {
		rules := []types.Rule{{ID: "api", Pattern: "/api/**", Priority: 5}}
		if matched := FindMatching("/other", rules); len(matched) != 0 {
			t.Errorf("Expected no matches, got %d", len(matched))
		}
	})

	t.Run("skips malformed patterns without matching everything", func(t *testing.T) {
		rules := []types.Rule{
			{ID: "bad", Pattern: "[unclosed", Regex: true, Priority: 9},
			{ID: "good", Pattern: "/a/*", Priority: 1},
		}
		matched := FindMatching("/a/b", rules)
		if len(matched) != 1 || matched[0].ID != "good" {
			t.Errorf("Expected only the well-formed rule to match, got %v", matched)
		}
	})
}

func TestResolve(t *testing.T) {
	t.Run("returns nil when nothing matches", func(t *testing.T) {
		if r := Resolve("/nope", []types.Rule{{ID: "api", Pattern: "/api/**", Priority: 5}}); r != nil {
			t.Errorf("Expected nil, got %+v", r)
		}
	})

	t.Run("selects the highest priority", func(t *testing.T) {
		r := Resolve("/img/logo.png", ruleSet())
		if r == nil || r.ID != "images" {
			t.Fatalf("Expected images rule, got %+v", r)
		}
	})

	t.Run("breaks ties by earliest occurrence", func(t *testing.T) {
		rules := []types.Rule{
			{ID: "first", Pattern: "/a/**", Priority: 5},
			{ID: "second", Pattern: "/a/*", Priority: 5},
			{ID: "third", Pattern: "/**", Priority: 5},
		}
		r := Resolve("/a/b", rules)
		if r == nil || r.ID != "first" {
			t.Fatalf("Expected first rule to win the tie, got %+v", r)
		}
	})

	t.Run("later strictly higher priority wins", func(t *testing.T) {
		rules := []types.Rule{
			{ID: "low", Pattern: "/**", Priority: 3},
			{ID: "high", Pattern: "/**", Priority: 8},
		}
		r := Resolve("/x", rules)
		if r == nil || r.ID != "high" {
			t.Fatalf("Expected high rule, got %+v", r)
		}
	})
}
