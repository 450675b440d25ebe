package spotify

import (
	"strings"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/normalize"
)

// The loose album, artist and owner records are driven by mapping
// tables: known fields are selected (with fallbacks), everything else
// a vendor payload grows is dropped before storage.

var albumFields = normalize.Mapping{
	"id":           {},
	"name":         {Fallback: ""},
	"album_type":   {},
	"release_date": {},
	"total_tracks": {},
	"uri":          {},
	"images":       {},
}

var artistFields = normalize.Mapping{
	"id":   {},
	"name": {Fallback: ""},
	"uri":  {},
}

var ownerFields = normalize.Mapping{
	// Owners without a display name fall back to their id.
	"owner": {Transform: func(r normalize.Record) any {
		if name := normalize.String(r, "display_name", ""); name != "" {
			return name
		}
		return r["id"]
	}},
}

// mapTrack translates one raw track into domain shape. The album and
// artist blobs are curated through the mapping tables; the flat Artist
// and Album strings are derived for querying.
func mapTrack(raw apiTrack, addedAt string) domain.SpotifyTrack {
	track := domain.SpotifyTrack{
		ID:          raw.ID,
		Name:        raw.Name,
		Artist:      joinArtistNames(raw.Artists),
		Album:       normalize.String(raw.Album, "name", ""),
		DurationMs:  raw.DurationMs,
		Explicit:    raw.Explicit,
		Popularity:  raw.Popularity,
		PreviewURL:  raw.PreviewURL,
		URI:         raw.URI,
		Href:        raw.Href,
		IsPlayable:  raw.IsPlayable,
		IsLocal:     raw.IsLocal,
		TrackNumber: raw.TrackNumber,
		DiscNumber:  raw.DiscNumber,
		AddedAt:     parseTimestamp(addedAt),
	}
	if len(raw.Album) > 0 {
		track.AlbumData = albumFields.Apply(raw.Album)
	}
	if len(raw.Artists) > 0 {
		track.ArtistsData = make([]map[string]any, len(raw.Artists))
		for i, a := range raw.Artists {
			track.ArtistsData[i] = artistFields.Apply(a)
		}
	}
	return track
}

// mapPlaylist translates one raw playlist plus its fetched track
// fan-out. tracks may be nil when the fan-out fetch failed; the
// playlist row itself still maps.
func mapPlaylist(raw apiPlaylist, tracks []apiPlaylistTrack) domain.SpotifyPlaylist {
	playlist := domain.SpotifyPlaylist{
		ID:            raw.ID,
		Name:          raw.Name,
		Description:   raw.Description,
		Owner:         normalize.String(ownerFields.Apply(raw.Owner), "owner", ""),
		Public:        raw.Public,
		Collaborative: raw.Collaborative,
		TrackCount:    raw.Tracks.Total,
		URI:           raw.URI,
		Href:          raw.Href,
	}
	for i, pt := range tracks {
		if pt.Track.ID == "" { // Local files have no catalogue ID
			continue
		}
		playlist.Tracks = append(playlist.Tracks, domain.SpotifyPlaylistTrack{
			TrackID:  pt.Track.ID,
			Name:     pt.Track.Name,
			Artist:   joinArtistNames(pt.Track.Artists),
			Position: i,
			AddedAt:  parseTimestamp(pt.AddedAt),
		})
	}
	return playlist
}

func mapArtist(raw apiArtist) domain.SpotifyArtist {
	return domain.SpotifyArtist{
		ID:         raw.ID,
		Name:       raw.Name,
		Genres:     raw.Genres,
		Popularity: raw.Popularity,
		Followers:  raw.Followers.Total,
		URI:        raw.URI,
		Href:       raw.Href,
	}
}

func joinArtistNames(artists []normalize.Record) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if name := normalize.String(a, "name", ""); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func parseTimestamp(raw string) time.Time {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
