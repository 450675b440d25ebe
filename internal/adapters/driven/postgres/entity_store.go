package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
)

var _ driven.EntityStore = (*EntityStore)(nil)

// EntityStore upserts domain entities into their per-kind tables.
// Batch saves are per-item isolated: each entity commits on its own,
// and the joined error reports every failure.
type EntityStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntityStore creates the store on an open database handle.
func NewEntityStore(db *sql.DB, logger *slog.Logger) *EntityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityStore{db: db, logger: logger}
}

func (s *EntityStore) Save(ctx context.Context, entities ...domain.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	// Reject unknown discriminants before touching the database: a
	// batch with an unmapped kind is a programming error, not a
	// partial failure.
	for _, e := range entities {
		if !supportedKind(e.EntityKind()) {
			return &domain.UnsupportedKindError{Kind: e.EntityKind()}
		}
	}

	var errs []error
	for _, e := range entities {
		if err := s.saveOne(ctx, e); err != nil {
			s.logger.Error("entity save failed",
				"kind", e.EntityKind(), "id", e.EntityID(), "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("save batch: %w", errors.Join(errs...))
	}
	return nil
}

func (s *EntityStore) saveOne(ctx context.Context, e domain.Entity) error {
	switch entity := e.(type) {
	case domain.GitHubRepository:
		return saveGitHubRepository(ctx, s.db, entity)
	case domain.GitHubPullRequest:
		return saveGitHubPullRequest(ctx, s.db, entity)
	case domain.SpotifyTrack:
		return saveSpotifyTrack(ctx, s.db, entity)
	case domain.SpotifyPlaylist:
		return saveSpotifyPlaylist(ctx, s.db, entity)
	case domain.SpotifyArtist:
		return saveSpotifyArtist(ctx, s.db, entity)
	default:
		return &domain.UnsupportedKindError{Kind: e.EntityKind()}
	}
}

func supportedKind(kind domain.Kind) bool {
	switch kind {
	case domain.KindGitHubRepository, domain.KindGitHubPullRequest,
		domain.KindSpotifyTrack, domain.KindSpotifyPlaylist, domain.KindSpotifyArtist:
		return true
	default:
		return false
	}
}
