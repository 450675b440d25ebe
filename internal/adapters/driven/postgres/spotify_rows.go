package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

type spotifyTrackRow struct {
	ID          string
	Name        string
	Artist      string
	Album       string
	DurationMs  int
	Explicit    bool
	Popularity  int
	PreviewURL  string
	URI         string
	Href        string
	IsPlayable  bool
	IsLocal     bool
	TrackNumber int
	DiscNumber  int
	AddedAt     *time.Time
	AlbumData   []byte
	ArtistsData []byte
}

func trackToRow(track domain.SpotifyTrack) (spotifyTrackRow, error) {
	albumData, err := marshalBlob(track.AlbumData)
	if err != nil {
		return spotifyTrackRow{}, fmt.Errorf("marshal album data for %s: %w", track.ID, err)
	}
	artistsData, err := marshalBlob(track.ArtistsData)
	if err != nil {
		return spotifyTrackRow{}, fmt.Errorf("marshal artists data for %s: %w", track.ID, err)
	}
	return spotifyTrackRow{
		ID:          track.ID,
		Name:        track.Name,
		Artist:      track.Artist,
		Album:       track.Album,
		DurationMs:  track.DurationMs,
		Explicit:    track.Explicit,
		Popularity:  track.Popularity,
		PreviewURL:  track.PreviewURL,
		URI:         track.URI,
		Href:        track.Href,
		IsPlayable:  track.IsPlayable,
		IsLocal:     track.IsLocal,
		TrackNumber: track.TrackNumber,
		DiscNumber:  track.DiscNumber,
		AddedAt:     nullTime(track.AddedAt),
		AlbumData:   albumData,
		ArtistsData: artistsData,
	}, nil
}

func (r spotifyTrackRow) toDomain() (domain.SpotifyTrack, error) {
	track := domain.SpotifyTrack{
		ID:          r.ID,
		Name:        r.Name,
		Artist:      r.Artist,
		Album:       r.Album,
		DurationMs:  r.DurationMs,
		Explicit:    r.Explicit,
		Popularity:  r.Popularity,
		PreviewURL:  r.PreviewURL,
		URI:         r.URI,
		Href:        r.Href,
		IsPlayable:  r.IsPlayable,
		IsLocal:     r.IsLocal,
		TrackNumber: r.TrackNumber,
		DiscNumber:  r.DiscNumber,
		AddedAt:     timeValue(r.AddedAt),
	}
	if len(r.AlbumData) > 0 {
		if err := json.Unmarshal(r.AlbumData, &track.AlbumData); err != nil {
			return domain.SpotifyTrack{}, fmt.Errorf("unmarshal album data for %s: %w", r.ID, err)
		}
	}
	if len(r.ArtistsData) > 0 {
		if err := json.Unmarshal(r.ArtistsData, &track.ArtistsData); err != nil {
			return domain.SpotifyTrack{}, fmt.Errorf("unmarshal artists data for %s: %w", r.ID, err)
		}
	}
	return track, nil
}

// spotifyPlaylistRow carries the playlist's own columns; the track
// fan-out lives in spotifyPlaylistTrackRow, keyed by playlist and
// position.
type spotifyPlaylistRow struct {
	ID            string
	Name          string
	Description   string
	Owner         string
	Public        bool
	Collaborative bool
	TrackCount    int
	URI           string
	Href          string
}

func playlistToRow(playlist domain.SpotifyPlaylist) spotifyPlaylistRow {
	return spotifyPlaylistRow{
		ID:            playlist.ID,
		Name:          playlist.Name,
		Description:   playlist.Description,
		Owner:         playlist.Owner,
		Public:        playlist.Public,
		Collaborative: playlist.Collaborative,
		TrackCount:    playlist.TrackCount,
		URI:           playlist.URI,
		Href:          playlist.Href,
	}
}

func (r spotifyPlaylistRow) toDomain() domain.SpotifyPlaylist {
	return domain.SpotifyPlaylist{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		Owner:         r.Owner,
		Public:        r.Public,
		Collaborative: r.Collaborative,
		TrackCount:    r.TrackCount,
		URI:           r.URI,
		Href:          r.Href,
	}
}

type spotifyPlaylistTrackRow struct {
	PlaylistID string
	Position   int
	TrackID    string
	Name       string
	Artist     string
	AddedAt    *time.Time
}

func playlistTrackToRow(playlistID string, pt domain.SpotifyPlaylistTrack) spotifyPlaylistTrackRow {
	return spotifyPlaylistTrackRow{
		PlaylistID: playlistID,
		Position:   pt.Position,
		TrackID:    pt.TrackID,
		Name:       pt.Name,
		Artist:     pt.Artist,
		AddedAt:    nullTime(pt.AddedAt),
	}
}

func (r spotifyPlaylistTrackRow) toDomain() domain.SpotifyPlaylistTrack {
	return domain.SpotifyPlaylistTrack{
		TrackID:  r.TrackID,
		Name:     r.Name,
		Artist:   r.Artist,
		Position: r.Position,
		AddedAt:  timeValue(r.AddedAt),
	}
}

type spotifyArtistRow struct {
	ID         string
	Name       string
	Genres     pq.StringArray
	Popularity int
	Followers  int
	URI        string
	Href       string
}

func artistToRow(artist domain.SpotifyArtist) spotifyArtistRow {
	return spotifyArtistRow{
		ID:         artist.ID,
		Name:       artist.Name,
		Genres:     pq.StringArray(artist.Genres),
		Popularity: artist.Popularity,
		Followers:  artist.Followers,
		URI:        artist.URI,
		Href:       artist.Href,
	}
}

func (r spotifyArtistRow) toDomain() domain.SpotifyArtist {
	return domain.SpotifyArtist{
		ID:         r.ID,
		Name:       r.Name,
		Genres:     []string(r.Genres),
		Popularity: r.Popularity,
		Followers:  r.Followers,
		URI:        r.URI,
		Href:       r.Href,
	}
}

func saveSpotifyTrack(ctx context.Context, db *sql.DB, track domain.SpotifyTrack) error {
	row, err := trackToRow(track)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO spotify_tracks (
			id, name, artist, album, duration_ms, explicit, popularity,
			preview_url, uri, href, is_playable, is_local, track_number,
			disc_number, added_at, album_data, artists_data, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name         = EXCLUDED.name,
			artist       = EXCLUDED.artist,
			album        = EXCLUDED.album,
			duration_ms  = EXCLUDED.duration_ms,
			explicit     = EXCLUDED.explicit,
			popularity   = EXCLUDED.popularity,
			preview_url  = EXCLUDED.preview_url,
			uri          = EXCLUDED.uri,
			href         = EXCLUDED.href,
			is_playable  = EXCLUDED.is_playable,
			is_local     = EXCLUDED.is_local,
			track_number = EXCLUDED.track_number,
			disc_number  = EXCLUDED.disc_number,
			added_at     = EXCLUDED.added_at,
			album_data   = EXCLUDED.album_data,
			artists_data = EXCLUDED.artists_data,
			synced_at    = EXCLUDED.synced_at`,
		row.ID, row.Name, row.Artist, row.Album, row.DurationMs,
		row.Explicit, row.Popularity, row.PreviewURL, row.URI,
		row.Href, row.IsPlayable, row.IsLocal, row.TrackNumber,
		row.DiscNumber, row.AddedAt, row.AlbumData, row.ArtistsData,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", track.ID, err)
	}
	return nil
}

// saveSpotifyPlaylist writes the playlist row and replaces its track
// fan-out in one transaction, so readers never see a half-replaced
// track list.
func saveSpotifyPlaylist(ctx context.Context, db *sql.DB, playlist domain.SpotifyPlaylist) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin playlist tx: %w", err)
	}
	defer tx.Rollback()

	row := playlistToRow(playlist)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO spotify_playlists (
			id, name, description, owner, public, collaborative,
			track_count, uri, href, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name          = EXCLUDED.name,
			description   = EXCLUDED.description,
			owner         = EXCLUDED.owner,
			public        = EXCLUDED.public,
			collaborative = EXCLUDED.collaborative,
			track_count   = EXCLUDED.track_count,
			uri           = EXCLUDED.uri,
			href          = EXCLUDED.href,
			synced_at     = EXCLUDED.synced_at`,
		row.ID, row.Name, row.Description, row.Owner,
		row.Public, row.Collaborative, row.TrackCount,
		row.URI, row.Href, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert playlist %s: %w", playlist.ID, err)
	}

	// A fan-out that failed upstream arrives empty; keep the previous
	// track rows rather than wiping them.
	if len(playlist.Tracks) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM spotify_playlist_tracks WHERE playlist_id = $1`,
			playlist.ID,
		); err != nil {
			return fmt.Errorf("clear playlist tracks %s: %w", playlist.ID, err)
		}
		for _, pt := range playlist.Tracks {
			trackRow := playlistTrackToRow(playlist.ID, pt)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO spotify_playlist_tracks (
					playlist_id, position, track_id, name, artist, added_at
				) VALUES ($1, $2, $3, $4, $5, $6)`,
				trackRow.PlaylistID, trackRow.Position, trackRow.TrackID,
				trackRow.Name, trackRow.Artist, trackRow.AddedAt,
			); err != nil {
				return fmt.Errorf("insert playlist track %s/%d: %w", playlist.ID, pt.Position, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit playlist %s: %w", playlist.ID, err)
	}
	return nil
}

func saveSpotifyArtist(ctx context.Context, db *sql.DB, artist domain.SpotifyArtist) error {
	row := artistToRow(artist)
	_, err := db.ExecContext(ctx, `
		INSERT INTO spotify_artists (
			id, name, genres, popularity, followers, uri, href, synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name       = EXCLUDED.name,
			genres     = EXCLUDED.genres,
			popularity = EXCLUDED.popularity,
			followers  = EXCLUDED.followers,
			uri        = EXCLUDED.uri,
			href       = EXCLUDED.href,
			synced_at  = EXCLUDED.synced_at`,
		row.ID, row.Name, row.Genres, row.Popularity,
		row.Followers, row.URI, row.Href, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert artist %s: %w", artist.ID, err)
	}
	return nil
}

func marshalBlob(v any) ([]byte, error) {
	switch blob := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(blob) == 0 {
			return nil, nil
		}
	case []map[string]any:
		if len(blob) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
