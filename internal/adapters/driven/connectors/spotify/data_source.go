package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/httpclient"
	"github.com/ait-labs/ait-connectors/internal/resilience"
)

const (
	defaultBaseURL = "https://api.spotify.com/v1"
	defaultLimit   = 50

	// playlistTrackLimit caps the fan-out fetch per playlist.
	playlistTrackLimit = 100

	breakerName = "spotify"
)

var _ driven.DataSource = (*DataSource)(nil)

// DataSource fetches the user's saved tracks, playlists and top
// artists.
//
// Cursors are decimal offsets into the collection. Top artists are a
// single page; playlists fan out a per-playlist track fetch that
// degrades to the bare playlist row on failure.
type DataSource struct {
	client  *httpclient.Client
	breaker *resilience.Breaker
	logger  *slog.Logger
	limit   int
}

// Options tunes a data source beyond the builder defaults.
type Options struct {
	BaseURL           string
	Limit             int
	RequestsPerSecond float64
}

// NewDataSource creates a Spotify data source using the shared breaker
// registry.
func NewDataSource(accessToken string, breakers *resilience.Registry, logger *slog.Logger, opts Options) *DataSource {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Limit <= 0 || opts.Limit > 50 {
		opts.Limit = defaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := httpclient.New(accessToken, httpclient.Config{
		Provider:          domain.ProviderSpotify,
		BaseURL:           opts.BaseURL,
		RequestsPerSecond: opts.RequestsPerSecond,
		Logger:            logger,
	})
	return &DataSource{
		client:  client,
		breaker: breakers.Get(breakerName),
		logger:  logger,
		limit:   opts.Limit,
	}
}

func (s *DataSource) Provider() domain.ProviderType { return domain.ProviderSpotify }

func (s *DataSource) Kinds() []domain.Kind {
	return []domain.Kind{domain.KindSpotifyTrack, domain.KindSpotifyPlaylist, domain.KindSpotifyArtist}
}

// SetAccessToken swaps the bearer token after a refresh.
func (s *DataSource) SetAccessToken(token string) { s.client.SetAccessToken(token) }

func (s *DataSource) FetchPage(ctx context.Context, kind domain.Kind, cursor string) (*driven.Page, error) {
	offset, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.KindSpotifyTrack:
		return s.fetchSavedTracks(ctx, offset)
	case domain.KindSpotifyPlaylist:
		return s.fetchPlaylists(ctx, offset)
	case domain.KindSpotifyArtist:
		return s.fetchTopArtists(ctx)
	default:
		return nil, &domain.UnsupportedKindError{Kind: kind}
	}
}

func (s *DataSource) fetchSavedTracks(ctx context.Context, offset int) (*driven.Page, error) {
	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", s.limit, offset)
	paging, err := resilience.Do(ctx, s.breaker, func(ctx context.Context) (*apiPaging[apiSavedTrack], error) {
		var out apiPaging[apiSavedTrack]
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	out := &driven.Page{Entities: make([]domain.Entity, 0, len(paging.Items))}
	for _, item := range paging.Items {
		if item.Track.ID == "" {
			continue
		}
		out.Entities = append(out.Entities, mapTrack(item.Track, item.AddedAt))
	}
	out.NextCursor = nextOffset(paging.Next, offset, len(paging.Items))
	return out, nil
}

func (s *DataSource) fetchPlaylists(ctx context.Context, offset int) (*driven.Page, error) {
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", s.limit, offset)
	paging, err := resilience.Do(ctx, s.breaker, func(ctx context.Context) (*apiPaging[apiPlaylist], error) {
		var out apiPaging[apiPlaylist]
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	// Track fan-out per playlist; a failed fetch keeps the bare
	// playlist so one private or deleted list doesn't sink the page.
	type playlistWithTracks struct {
		raw    apiPlaylist
		tracks []apiPlaylistTrack
	}
	fetched, err := httpclient.ProcessInChunks(ctx, s.client, paging.Items,
		func(ctx context.Context, pl apiPlaylist) (playlistWithTracks, error) {
			tracks, err := s.playlistTracks(ctx, pl.ID)
			if err != nil {
				s.logger.Warn("playlist track fetch failed, keeping bare playlist",
					"playlist", pl.ID, "error", err)
				return playlistWithTracks{raw: pl}, nil
			}
			return playlistWithTracks{raw: pl, tracks: tracks}, nil
		}, httpclient.ChunkOptions{})
	if err != nil {
		return nil, err
	}

	out := &driven.Page{Entities: make([]domain.Entity, 0, len(fetched))}
	for _, pl := range fetched {
		out.Entities = append(out.Entities, mapPlaylist(pl.raw, pl.tracks))
	}
	out.NextCursor = nextOffset(paging.Next, offset, len(paging.Items))
	return out, nil
}

func (s *DataSource) fetchTopArtists(ctx context.Context) (*driven.Page, error) {
	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=medium_term", s.limit)
	paging, err := resilience.Do(ctx, s.breaker, func(ctx context.Context) (*apiPaging[apiArtist], error) {
		var out apiPaging[apiArtist]
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	out := &driven.Page{Entities: make([]domain.Entity, 0, len(paging.Items))}
	for _, a := range paging.Items {
		out.Entities = append(out.Entities, mapArtist(a))
	}
	// Top artists are a ranked snapshot, never paginated.
	return out, nil
}

func (s *DataSource) playlistTracks(ctx context.Context, playlistID string) ([]apiPlaylistTrack, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", playlistID, playlistTrackLimit)
	return resilience.Do(ctx, s.breaker, func(ctx context.Context) ([]apiPlaylistTrack, error) {
		var out apiPaging[apiPlaylistTrack]
		if err := s.client.Do(ctx, "GET", endpoint, nil, &out); err != nil {
			return nil, err
		}
		return out.Items, nil
	})
}

// nextOffset derives the follow-up cursor: the upstream's next link is
// authoritative, the offset math is just how it is expressed.
func nextOffset(next string, offset, got int) string {
	if next == "" || got == 0 {
		return ""
	}
	return strconv.Itoa(offset + got)
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("%w: malformed cursor %q", domain.ErrInvalidInput, cursor)
	}
	return offset, nil
}
