package driving

import (
	"context"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// ConnectorService is the composed unit binding authentication,
// fetching, and persistence for one provider. Route handlers and the
// job scheduler drive syncs through this interface; scheduling cadence
// is their concern, not the connector's.
type ConnectorService interface {
	// Name returns the registered connector name (e.g. "github").
	Name() string

	// Provider returns the provider this connector syncs.
	Provider() domain.ProviderType

	// Connect establishes authentication. With a code it runs the full
	// OAuth exchange and persists credentials; with an empty code it
	// loads persisted credentials and refreshes them when expired.
	// Returns domain.AuthError when neither path yields a usable token.
	Connect(ctx context.Context, code string) error

	// Sync runs one fetch+persist cycle for a single entity kind.
	Sync(ctx context.Context, kind domain.Kind) (*domain.SyncResult, error)

	// SyncAll runs Sync for every kind the data source supports.
	SyncAll(ctx context.Context) ([]*domain.SyncResult, error)

	// Disconnect revokes and deletes stored credentials.
	Disconnect(ctx context.Context) error
}
