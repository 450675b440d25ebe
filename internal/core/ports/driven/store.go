package driven

import (
	"context"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// EntityStore persists domain entities with idempotent upsert
// semantics: re-saving the same id updates in place.
type EntityStore interface {
	// Save upserts the given entities. An empty input is a no-op
	// success. An entity whose kind the store does not handle is a
	// hard error. Batch saves are per-item isolated: one item's
	// failure does not roll back siblings.
	Save(ctx context.Context, entities ...domain.Entity) error
}

// CredentialsStore persists OAuth credentials, one active row per
// (user, provider, config name) triple.
type CredentialsStore interface {
	// Save creates or updates credentials for the triple.
	Save(ctx context.Context, creds *domain.Credentials) error

	// Get retrieves credentials, or domain.ErrNotFound.
	Get(ctx context.Context, userID string, provider domain.ProviderType) (*domain.Credentials, error)

	// Delete removes credentials on explicit disconnect.
	Delete(ctx context.Context, userID string, provider domain.ProviderType) error
}
