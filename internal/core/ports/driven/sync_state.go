package driven

import (
	"context"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// SyncStateStore tracks incremental-sync progress per (connector,
// kind). All operations are best-effort: implementations log and
// swallow storage failures, because losing sync state must only cost
// redundant work, never block the sync pipeline. GetState reports
// "no state" as (nil, nil).
type SyncStateStore interface {
	// GetState returns the current state, or nil when none exists or
	// the underlying store is unavailable.
	GetState(ctx context.Context, connectorName string, kind domain.Kind) (*domain.SyncState, error)

	// SaveState writes the full state with the store's TTL.
	SaveState(ctx context.Context, state *domain.SyncState) error

	// UpdateChecksums merges the given checksums into the state's map.
	// Existing entries for other ids are preserved, so concurrent
	// partial updates for different ids interleave safely.
	UpdateChecksums(ctx context.Context, connectorName string, kind domain.Kind, checksums map[string]string) error

	// UpdateETLTimestamp records an ETL run and its watermark,
	// creating the state lazily when none exists.
	UpdateETLTimestamp(ctx context.Context, connectorName string, kind domain.Kind, processedAt time.Time) error

	// ClearState removes the state entirely (full reset).
	ClearState(ctx context.Context, connectorName string, kind domain.Kind) error

	// ClearCursor resets only the pagination position, preserving
	// checksums, forcing a full re-page without re-processing
	// already-seen content.
	ClearCursor(ctx context.Context, connectorName string, kind domain.Kind) error
}
