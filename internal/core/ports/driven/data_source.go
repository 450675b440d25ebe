package driven

import (
	"context"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// Page is one page of entities from a provider, tagged and translated
// into domain shape. NextCursor is empty when pagination is exhausted.
type Page struct {
	Entities   []domain.Entity
	NextCursor string
}

// DataSource fetches entities from one provider API. Implementations
// own pagination, discriminant tagging, and translation of provider
// error bodies into the shared error taxonomy.
//
// Fan-out failures degrade: when a per-item detail fetch fails, the
// item stays in the page with its summary fields only.
type DataSource interface {
	// Provider returns the provider this source talks to.
	Provider() domain.ProviderType

	// Kinds returns the entity kinds this source can fetch.
	Kinds() []domain.Kind

	// FetchPage fetches one page of the given kind. Pass an empty
	// cursor to start from the beginning; pass the previous page's
	// NextCursor to continue.
	FetchPage(ctx context.Context, kind domain.Kind, cursor string) (*Page, error)
}
