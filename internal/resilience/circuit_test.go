package resilience

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/packrat-cache/packrat/internal/config"
)

func TestCircuitBreakerStateString(t *testing.T) {
	//nolint:govet // Test table - alignment not critical
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("State.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewCircuitBreaker(t *testing.T) {
	t.Run("creates with config values", func(t *testing.T) {
		cfg := config.CircuitBreakerConfig{
			FailureThreshold:    10,
			SuccessThreshold:    5,
			OpenDuration:        1 * time.Minute,
			HalfOpenMaxRequests: 7,
		}

		cb := NewCircuitBreaker("structured", cfg)

		if cb.failureThreshold != 10 {
			t.Errorf("failureThreshold = %v, want 10", cb.failureThreshold)
		}
		if cb.successThreshold != 5 {
			t.Errorf("successThreshold = %v, want 5", cb.successThreshold)
		}
		if cb.State() != StateClosed {
			t.Errorf("initial state = %v, want closed", cb.State())
		}
	})

	t.Run("applies defaults for zero values", func(t *testing.T) {
		cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{})

		if cb.failureThreshold != 5 {
			t.Errorf("failureThreshold = %v, want 5", cb.failureThreshold)
		}
		if cb.successThreshold != 2 {
			t.Errorf("successThreshold = %v, want 2", cb.successThreshold)
		}
		if cb.openDuration != 30*time.Second {
			t.Errorf("openDuration = %v, want 30s", cb.openDuration)
		}
	})
}

func TestCircuitBreakerStateTransitions(t *testing.T) {
	t.Run("closed to open after failure threshold", func(t *testing.T) {
		cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{
			FailureThreshold: 3,
			OpenDuration:     1 * time.Second,
		})

		cb.RecordFailure()
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Errorf("state after 2 failures = %v, want closed", cb.State())
		}

		cb.RecordFailure()
		if cb.State() != StateOpen {
			t.Errorf("state after 3 failures = %v, want open", cb.State())
		}
	})

	t.Run("open to half-open after duration", func(t *testing.T) {
		cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{
			FailureThreshold: 1,
			OpenDuration:     50 * time.Millisecond,
		})

		cb.RecordFailure()
		if cb.State() != StateOpen {
			t.Fatalf("state = %v, want open", cb.State())
		}
		if cb.Allow() {
			t.Error("Allow() = true, want false while open")
		}

		time.Sleep(60 * time.Millisecond)
		if !cb.Allow() {
			t.Error("Allow() = false, want true after open duration")
		}
		if cb.State() != StateHalfOpen {
			t.Errorf("state = %v, want half-open", cb.State())
		}
	})

	t.Run("half-open to closed after success threshold", func(t *testing.T) {
		cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{
			FailureThreshold: 1,
			SuccessThreshold: 2,
			OpenDuration:     10 * time.Millisecond,
		})

		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		cb.Allow()

		cb.RecordSuccess()
		if cb.State() != StateHalfOpen {
			t.Errorf("state after 1 success = %v, want half-open", cb.State())
		}
		cb.RecordSuccess()
		if cb.State() != StateClosed {
			t.Errorf("state after 2 successes = %v, want closed", cb.State())
		}
	})

	t.Run("half-open back to open on failure", func(t *testing.T) {
		cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{
			FailureThreshold: 1,
			OpenDuration:     10 * time.Millisecond,
		})

		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		cb.Allow()
		if cb.State() != StateHalfOpen {
			t.Fatalf("state = %v, want half-open", cb.State())
		}

		cb.RecordFailure()
		if cb.State() != StateOpen {
			t.Errorf("state = %v, want open after half-open failure", cb.State())
		}
	})

	t.Run("half-open limits concurrent requests", func(t *testing.T) {
		cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{
			FailureThreshold:    1,
			HalfOpenMaxRequests: 2,
			OpenDuration:        10 * time.Millisecond,
		})

		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)

		// The transition itself consumes one slot.
		if !cb.Allow() {
			t.Fatal("first half-open request should be allowed")
		}
		if !cb.Allow() {
			t.Error("second half-open request should be allowed")
		}
		if cb.Allow() {
			t.Error("third half-open request should be rejected")
		}
	})
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{FailureThreshold: 1})

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state after reset = %v, want closed", cb.State())
	}
	if !cb.Allow() {
		t.Error("Allow() = false after reset")
	}
}

func TestCircuitBreakerOnStateChange(t *testing.T) {
	cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{FailureThreshold: 1})

	var mu sync.Mutex
	var transitions [][2]State
	cb.SetOnStateChange(func(from, to State) {
		mu.Lock()
		transitions = append(transitions, [2]State{from, to})
		mu.Unlock()
		// Reading state from inside the callback must not deadlock.
		_ = cb.State()
	})

	cb.RecordFailure()

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 {
		t.Fatalf("Expected 1 transition, got %d", len(transitions))
	}
	if transitions[0][0] != StateClosed || transitions[0][1] != StateOpen {
		t.Errorf("Expected closed->open, got %v->%v", transitions[0][0], transitions[0][1])
	}
}

func TestCircuitBreakerConcurrency(t *testing.T) {
	cb := NewCircuitBreaker("structured", config.CircuitBreakerConfig{
		FailureThreshold: 50,
		OpenDuration:     10 * time.Millisecond,
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if cb.Allow() {
					if (n+j)%3 == 0 {
						cb.RecordFailure()
					} else {
						cb.RecordSuccess()
					}
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestDisabledCircuitBreaker(t *testing.T) {
	cb := NewDisabledCircuitBreaker()

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordFailure()

	if !cb.Allow() {
		t.Error("disabled breaker must always allow")
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestIsCircuitOpen(t *testing.T) {
	if !IsCircuitOpen(ErrCircuitOpen) {
		t.Error("IsCircuitOpen(ErrCircuitOpen) = false")
	}
	if !IsCircuitOpen(fmt.Errorf("put rejected: %w", ErrCircuitOpen)) {
		t.Error("IsCircuitOpen must see through wrapping")
	}
	if IsCircuitOpen(errors.New("unrelated")) {
		t.Error("IsCircuitOpen(unrelated) = true")
	}
}
