package domain

import "time"

// SpotifyTrack is the provider-agnostic form of one saved track.
// AlbumData and ArtistsData keep the nested upstream objects as
// free-form blobs; the flattened Artist/Album strings are what queries
// normally use.
type SpotifyTrack struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Artist      string           `json:"artist"` // Comma-joined artist names
	Album       string           `json:"album"`
	DurationMs  int              `json:"duration_ms"`
	Explicit    bool             `json:"explicit"`
	Popularity  int              `json:"popularity"`
	PreviewURL  string           `json:"preview_url"`
	URI         string           `json:"uri"`
	Href        string           `json:"href"`
	IsPlayable  bool             `json:"is_playable"`
	IsLocal     bool             `json:"is_local"`
	TrackNumber int              `json:"track_number"`
	DiscNumber  int              `json:"disc_number"`
	AddedAt     time.Time        `json:"added_at,omitzero"`
	AlbumData   map[string]any   `json:"album_data,omitempty"`
	ArtistsData []map[string]any `json:"artists_data,omitempty"`
}

func (t SpotifyTrack) EntityID() string { return t.ID }

func (t SpotifyTrack) EntityKind() Kind { return KindSpotifyTrack }

// SpotifyPlaylist is one playlist plus its track fan-out. The playlist
// itself maps to a single row; Tracks fan out into a secondary relation.
type SpotifyPlaylist struct {
	ID            string                 `json:"id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Owner         string                 `json:"owner"`
	Public        bool                   `json:"public"`
	Collaborative bool                   `json:"collaborative"`
	TrackCount    int                    `json:"track_count"`
	URI           string                 `json:"uri"`
	Href          string                 `json:"href"`
	Tracks        []SpotifyPlaylistTrack `json:"tracks,omitempty"`
}

func (p SpotifyPlaylist) EntityID() string { return p.ID }

func (p SpotifyPlaylist) EntityKind() Kind { return KindSpotifyPlaylist }

// SpotifyPlaylistTrack is one entry of a playlist's track fan-out.
type SpotifyPlaylistTrack struct {
	TrackID  string    `json:"track_id"`
	Name     string    `json:"name"`
	Artist   string    `json:"artist"`
	Position int       `json:"position"`
	AddedAt  time.Time `json:"added_at,omitzero"`
}

// SpotifyArtist is the provider-agnostic form of one top artist.
type SpotifyArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  int      `json:"followers"`
	URI        string   `json:"uri"`
	Href       string   `json:"href"`
}

func (a SpotifyArtist) EntityID() string { return a.ID }

func (a SpotifyArtist) EntityKind() Kind { return KindSpotifyArtist }
