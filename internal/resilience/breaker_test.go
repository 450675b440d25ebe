package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

var errBoom = errors.New("boom")

// fakeClock lets tests drive the reset timeout without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testBreaker(clock *fakeClock) *Breaker {
	return NewBreaker("test", Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		ResetTimeout:     time.Minute,
		Now:              clock.Now,
	})
}

func fail(ctx context.Context) error { return errBoom }

func succeed(ctx context.Context) error { return nil }

func TestBreaker_OpensAtFailureThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		if b.State() != StateClosed {
			t.Fatalf("breaker opened early after %d failures", i)
		}
		_ = b.Execute(context.Background(), fail)
	}

	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}
}

func TestBreaker_OpenRejectsWithoutInvoking(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}

	invoked := false
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		invoked = true
		return nil
	})

	if invoked {
		t.Error("wrapped function must not run while the circuit is open")
	}
	var openErr *domain.CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
	if openErr.Remaining <= 0 || openErr.Remaining > time.Minute {
		t.Errorf("expected remaining cooldown in (0, 1m], got %v", openErr.Remaining)
	}
}

func TestBreaker_HalfOpenProbeAfterResetTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	clock.Advance(time.Minute)

	// Exactly one probe goes through after the cooldown.
	if err := b.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("expected probe to run, got %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open after one probe success, got %s", b.State())
	}

	// Second consecutive success closes (SuccessThreshold=2).
	if err := b.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("expected closed after success threshold, got %s", b.State())
	}
}

func TestBreaker_HalfOpenRejectionCarriesRetryHint(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	clock.Advance(time.Minute)

	probeStarted := make(chan struct{})
	release := make(chan struct{})
	probeDone := make(chan error, 1)
	go func() {
		probeDone <- b.Execute(context.Background(), func(ctx context.Context) error {
			close(probeStarted)
			<-release
			return nil
		})
	}()
	<-probeStarted

	// While the probe is in flight, other callers are turned away
	// with a usable back-off, not "retry after 0s".
	err := b.Execute(context.Background(), succeed)
	var openErr *domain.CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected CircuitOpenError while probe in flight, got %v", err)
	}
	if openErr.Remaining <= 0 {
		t.Errorf("expected positive remaining cooldown, got %v", openErr.Remaining)
	}

	close(release)
	if err := <-probeDone; err != nil {
		t.Fatalf("probe error: %v", err)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	clock.Advance(time.Minute)

	if err := b.Execute(context.Background(), fail); !errors.Is(err, errBoom) {
		t.Fatalf("expected probe to run and fail, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected re-open on probe failure, got %s", b.State())
	}

	// Still rejecting before a fresh cooldown elapses.
	err := b.Execute(context.Background(), succeed)
	var openErr *domain.CircuitOpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected CircuitOpenError, got %v", err)
	}
}

func TestBreaker_SuccessDecaysFailuresWhileClosed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), fail)
	_ = b.Execute(context.Background(), succeed)
	_ = b.Execute(context.Background(), fail)

	// 2 failures, -1 for the success, +1: still below threshold 3.
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
	if got := b.Snapshot().Failures; got != 2 {
		t.Errorf("expected failure count 2, got %d", got)
	}
}

func TestBreaker_TimeoutCountsAsFailure(t *testing.T) {
	b := NewBreaker("slow", Config{
		FailureThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if b.State() != StateOpen {
		t.Fatalf("timeout must count as failure, state %s", b.State())
	}
}

func TestBreaker_Reset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := testBreaker(clock)

	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), fail)
	}
	b.Reset()

	if b.State() != StateClosed {
		t.Fatalf("expected closed after reset, got %s", b.State())
	}
	if err := b.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestDo_ReturnsValue(t *testing.T) {
	b := NewBreaker("typed", Config{})

	got, err := Do(context.Background(), b, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}
