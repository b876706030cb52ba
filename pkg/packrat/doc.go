// Package packrat provides a rule-driven cache policy engine with tiered
// storage backends.
//
// packrat matches cache keys against a configurable rule set to decide how a
// resource should be cached, and stores entries across a fallback chain of
// backends (Redis, a flat file store and an in-memory store) with aggregate
// capacity enforcement and pluggable eviction policies.
//
// # Features
//
//   - Pattern Rules: Glob and regex patterns resolved by priority, with
//     memoized lookups
//   - Tiered Storage: Structured (Redis), flat (file) and volatile (memory)
//     backends with automatic write fallback
//   - Eviction Policies: Recency, frequency and priority based eviction
//     across all backends
//   - Graceful Degradation: A failed durable backend degrades the chain
//     instead of failing the engine
//   - Observability: Metrics tracking with pluggable publishers
//
// # Quick Start
//
// Create an engine with default configuration:
//
//	engine, err := packrat.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
// # Rules
//
// Install a rule set and match keys against it:
//
//	err := engine.UpdateRules([]packrat.Rule{
//	    {ID: "api", Pattern: "/api/**", Strategy: packrat.StrategyNetworkFirst, Priority: 8},
//	    {ID: "assets", Pattern: "/static/*", Strategy: packrat.StrategyCacheFirst, Priority: 5},
//	})
//
//	rule := engine.Match("/api/users/42")
//	if rule != nil {
//	    fmt.Println(rule.Strategy) // network-first
//	}
//
// Glob patterns are anchored: ? matches exactly one character, * matches any
// run excluding /, ** matches any run including /.
//
// # Storage
//
// Store and retrieve entries; the matched rule's priority tags the entry for
// priority-based eviction:
//
//	ctx := context.Background()
//	backend, err := engine.Put(ctx, "/api/users/42", payload)
//
//	fetched, err := engine.Get(ctx, "/api/users/42")
//	if err == nil {
//	    fmt.Println(fetched.Backend) // which backend served the read
//	}
//
// # Configuration
//
// Load configuration from a JSON file with environment overrides:
//
//	engine, err := packrat.NewFromFile("config.json")
//
// Or customize the default configuration:
//
//	cfg := packrat.Config()
//	cfg.Structured.Enabled = true
//	cfg.Structured.Address = "localhost:6379"
//	cfg.EvictionPolicy = packrat.EvictionPriority
//	engine, err := packrat.NewFromConfig(cfg)
//
// For testing, use the volatile-only test configuration:
//
//	cfg := packrat.TestConfig()
//
// # Thread Safety
//
// All engine operations are thread-safe and can be used concurrently from
// multiple goroutines.
package packrat
