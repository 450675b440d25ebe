package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// State is the breaker's current mode.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 2
	defaultTimeout          = 30 * time.Second
	defaultResetTimeout     = 60 * time.Second
)

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the failure count that opens the breaker
	// (default 5). Successes while closed decay the count.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open probe
	// successes required to close again (default 2).
	SuccessThreshold int

	// Timeout bounds each guarded call (default 30s); a timeout
	// counts as a failure.
	Timeout time.Duration

	// ResetTimeout is the cooldown before a half-open probe is
	// allowed (default 60s).
	ResetTimeout time.Duration

	Logger *slog.Logger

	// Now is injectable for tests.
	Now func() time.Time
}

// Stats is a point-in-time snapshot of a breaker.
type Stats struct {
	State                State
	Failures             int
	Successes            int
	ConsecutiveSuccesses int
	TotalRequests        int
	LastFailureTime      time.Time
}

// Breaker short-circuits calls to a failing upstream. State is shared
// by name across every call site guarding the same dependency - the
// point is cross-call-site backpressure, not per-call isolation.
type Breaker struct {
	name string
	cfg  Config

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	consecSuccess int
	totalRequests int
	lastFailure   time.Time
	probeInFlight bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = defaultSuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{name: name, cfg: cfg, state: StateClosed}
}

// Name returns the breaker's registry name.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn under the breaker. While open, calls are rejected
// immediately with domain.CircuitOpenError carrying the remaining
// cooldown. After the cooldown, a single probe is let through; probe
// successes accumulate toward closing, any probe failure re-opens.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	isProbe, err := b.admit()
	if err != nil {
		return err
	}

	callErr := b.callWithTimeout(ctx, fn)
	b.settle(isProbe, callErr)
	return callErr
}

// Do is Execute for functions that return a value.
func Do[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

func (b *Breaker) admit() (isProbe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++

	switch b.state {
	case StateOpen:
		elapsed := b.cfg.Now().Sub(b.lastFailure)
		if elapsed < b.cfg.ResetTimeout {
			return false, &domain.CircuitOpenError{
				Name:      b.name,
				Remaining: b.cfg.ResetTimeout - elapsed,
			}
		}
		b.transitionTo(StateHalfOpen)
		b.probeInFlight = true
		return true, nil

	case StateHalfOpen:
		if b.probeInFlight {
			// One probe at a time while half-open. The probe
			// resolves within the call timeout, so that is the
			// retry horizon to report.
			return false, &domain.CircuitOpenError{
				Name:      b.name,
				Remaining: b.cfg.Timeout,
			}
		}
		b.probeInFlight = true
		return true, nil

	default:
		return false, nil
	}
}

func (b *Breaker) callWithTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(callCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return fmt.Errorf("circuit %q call timed out after %s: %w", b.name, b.cfg.Timeout, callCtx.Err())
	}
}

func (b *Breaker) settle(isProbe bool, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if isProbe {
		b.probeInFlight = false
	}

	if callErr != nil {
		b.failures++
		b.lastFailure = b.cfg.Now()
		b.consecSuccess = 0

		switch b.state {
		case StateHalfOpen:
			b.transitionTo(StateOpen)
		case StateClosed:
			if b.failures >= b.cfg.FailureThreshold {
				b.transitionTo(StateOpen)
			}
		}
		return
	}

	b.successes++
	b.consecSuccess++
	switch b.state {
	case StateHalfOpen:
		if b.consecSuccess >= b.cfg.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	case StateClosed:
		// Successes decay the failure count so sporadic failures
		// under normal traffic never accumulate to the threshold.
		if b.failures > 0 {
			b.failures--
		}
	}
}

// transitionTo must be called with the mutex held.
func (b *Breaker) transitionTo(next State) {
	prev := b.state
	b.state = next
	if next == StateClosed {
		b.failures = 0
		b.consecSuccess = 0
	}
	b.cfg.Logger.Info("circuit state changed",
		"circuit", b.name,
		"from", prev,
		"to", next,
		"failures", b.failures,
		"total_requests", b.totalRequests,
	)
}

// State returns the current mode.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns current counters.
func (b *Breaker) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		State:                b.state,
		Failures:             b.failures,
		Successes:            b.successes,
		ConsecutiveSuccesses: b.consecSuccess,
		TotalRequests:        b.totalRequests,
		LastFailureTime:      b.lastFailure,
	}
}

// Reset forces the breaker back to closed with zeroed counters. Useful
// in tests and for operational recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.consecSuccess = 0
	b.totalRequests = 0
	b.lastFailure = time.Time{}
	b.probeInFlight = false
}
