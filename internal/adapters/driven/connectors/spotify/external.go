// Package spotify fetches saved tracks, playlists and top artists from
// the Spotify Web API and translates them into domain entities.
package spotify

import "github.com/ait-labs/ait-connectors/internal/normalize"

// Raw Spotify API shapes. Album, artist and owner records decode
// free-form; the mapper's field tables decide what is kept.

type apiPaging[T any] struct {
	Items  []T    `json:"items"`
	Next   string `json:"next"`
	Total  int    `json:"total"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

type apiSavedTrack struct {
	AddedAt string   `json:"added_at"`
	Track   apiTrack `json:"track"`
}

type apiTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Album       normalize.Record   `json:"album"`
	Artists     []normalize.Record `json:"artists"`
	DurationMs  int                `json:"duration_ms"`
	Explicit    bool               `json:"explicit"`
	Popularity  int                `json:"popularity"`
	PreviewURL  string             `json:"preview_url"`
	URI         string             `json:"uri"`
	Href        string             `json:"href"`
	IsPlayable  bool               `json:"is_playable"`
	IsLocal     bool               `json:"is_local"`
	TrackNumber int                `json:"track_number"`
	DiscNumber  int                `json:"disc_number"`
}

type apiPlaylist struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Owner         normalize.Record `json:"owner"`
	Public        bool             `json:"public"`
	Collaborative bool             `json:"collaborative"`
	URI           string           `json:"uri"`
	Href          string           `json:"href"`
	Tracks        struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type apiPlaylistTrack struct {
	AddedAt string   `json:"added_at"`
	Track   apiTrack `json:"track"`
}

type apiArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
	Href       string   `json:"href"`
	Followers  struct {
		Total int `json:"total"`
	} `json:"followers"`
}
