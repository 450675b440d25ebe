package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRegistry_SharesBreakersByName(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 2})

	a := r.Get("github-api")
	b := r.Get("github-api")
	if a != b {
		t.Fatal("same name must return the same breaker")
	}
	if r.Get("spotify-api") == a {
		t.Fatal("different names must return different breakers")
	}
}

func TestRegistry_FailuresVisibleAcrossCallSites(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 2, ResetTimeout: time.Minute})

	_ = r.Get("shared").Execute(context.Background(), fail)
	_ = r.Get("shared").Execute(context.Background(), fail)

	if got := r.Get("shared").State(); got != StateOpen {
		t.Fatalf("expected shared breaker open, got %s", got)
	}
}

func TestRegistry_ResetAll(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, ResetTimeout: time.Minute})

	_ = r.Get("a").Execute(context.Background(), fail)
	_ = r.Get("b").Execute(context.Background(), fail)
	r.ResetAll()

	if r.Get("a").State() != StateClosed || r.Get("b").State() != StateClosed {
		t.Error("expected all breakers closed after ResetAll")
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 5})

	_ = r.Get("a").Execute(context.Background(), succeed)
	_ = r.Get("a").Execute(context.Background(), fail)

	stats := r.Snapshot()
	if len(stats) != 1 {
		t.Fatalf("expected 1 breaker, got %d", len(stats))
	}
	if stats["a"].TotalRequests != 2 {
		t.Errorf("expected 2 requests, got %d", stats["a"].TotalRequests)
	}
	if stats["a"].Failures != 1 {
		t.Errorf("expected 1 failure, got %d", stats["a"].Failures)
	}
}
