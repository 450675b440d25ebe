// Package connectors wires provider-specific data sources behind a
// common factory so the composition root can build a connector from a
// provider name and a set of credentials.
package connectors

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/resilience"
)

// BuildContext carries the shared infrastructure every data source
// builds on.
type BuildContext struct {
	Breakers *resilience.Registry
	Logger   *slog.Logger
}

// Builder constructs a data source for one provider from an access
// token. Implementations live in the per-provider subpackages.
type Builder interface {
	Provider() domain.ProviderType
	Build(ctx BuildContext, accessToken string) (driven.DataSource, error)
}

// Factory is a registry of provider builders.
type Factory struct {
	builders map[domain.ProviderType]Builder
}

// NewFactory creates a factory from the given builders. Duplicate
// providers panic: that is a wiring bug, not a runtime condition.
func NewFactory(builders ...Builder) *Factory {
	f := &Factory{builders: make(map[domain.ProviderType]Builder, len(builders))}
	for _, b := range builders {
		if _, dup := f.builders[b.Provider()]; dup {
			panic(fmt.Sprintf("connectors: duplicate builder for provider %q", b.Provider()))
		}
		f.builders[b.Provider()] = b
	}
	return f
}

// Build creates a data source for the provider, or
// ErrConnectorNotFound when no builder is registered for it.
func (f *Factory) Build(buildCtx BuildContext, provider domain.ProviderType, accessToken string) (driven.DataSource, error) {
	b, ok := f.builders[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConnectorNotFound, provider)
	}
	return b.Build(buildCtx, accessToken)
}

// Providers returns the registered provider names, sorted.
func (f *Factory) Providers() []domain.ProviderType {
	out := make([]domain.ProviderType, 0, len(f.builders))
	for p := range f.builders {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
