package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrReauthorizeRequired indicates stored credentials can no longer be
	// refreshed and the user must go through the OAuth flow again
	ErrReauthorizeRequired = errors.New("reauthorization required")

	// ErrSyncInProgress indicates a sync is already running for this key
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrConnectorNotFound indicates the connector name is not registered
	ErrConnectorNotFound = errors.New("connector not found")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")
)

// AuthError indicates an OAuth exchange or refresh failed.
// It is never retried automatically - callers should prompt the user
// to reauthorize instead of retrying silently.
type AuthError struct {
	Provider   ProviderType
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s authentication failed [%d]: %s", e.Provider, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s authentication failed", e.Provider)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is reports ErrUnauthorized so callers can match without the concrete type.
func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// RateLimitError indicates the upstream throttled us and retries were
// exhausted. ResumeAt tells the caller when a later attempt may succeed.
type RateLimitError struct {
	Provider ProviderType
	ResumeAt time.Time
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded after %d attempts, resume at %s",
		e.Provider, e.Attempts, e.ResumeAt.Format(time.RFC3339))
}

// NetworkError indicates a transport-level failure (DNS, connection
// reset, timeout). Retryability is the caller's policy decision.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError indicates an entity failed a required-field invariant
// before persistence. Never retried.
type ValidationError struct {
	Kind   Kind
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s entity %q: %s", e.Kind, e.ID, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// UnsupportedKindError indicates a store received a discriminant it does
// not handle. Failing loudly here prevents invisible data loss.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported entity kind %q", e.Kind)
}

// CircuitOpenError indicates calls are being rejected while a breaker is
// open. Remaining reports how long until the next probe is allowed.
type CircuitOpenError struct {
	Name      string
	Remaining time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit %q is open, retry after %s", e.Name, e.Remaining.Round(time.Second))
}
