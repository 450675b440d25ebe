package github

import (
	"github.com/ait-labs/ait-connectors/internal/adapters/driven/connectors"
	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
)

// Builder registers GitHub with the connector factory.
type Builder struct {
	Options Options
}

var _ connectors.Builder = Builder{}

func (Builder) Provider() domain.ProviderType { return domain.ProviderGitHub }

func (b Builder) Build(ctx connectors.BuildContext, accessToken string) (driven.DataSource, error) {
	return NewDataSource(accessToken, ctx.Breakers, ctx.Logger, b.Options), nil
}
