package domain

// Kind is the discriminant tag identifying which concrete entity kind a
// record represents. Every external record is tagged at fetch time and
// stores dispatch on it explicitly.
type Kind string

const (
	KindGitHubRepository  Kind = "github_repository"
	KindGitHubPullRequest Kind = "github_pull_request"
	KindSpotifyTrack      Kind = "spotify_track"
	KindSpotifyPlaylist   Kind = "spotify_playlist"
	KindSpotifyArtist     Kind = "spotify_artist"
)

// Entity is the provider-agnostic representation of one synced item.
type Entity interface {
	// EntityID returns the stable identity used for upserts.
	EntityID() string

	// EntityKind returns the discriminant tag.
	EntityKind() Kind
}

// ValidateEntity checks the invariant every entity must satisfy before
// it is handed to a store. A violation is a handled error, not a crash.
func ValidateEntity(e Entity) error {
	if e == nil {
		return &ValidationError{Reason: "nil entity"}
	}
	if e.EntityID() == "" {
		return &ValidationError{Kind: e.EntityKind(), Reason: "empty id"}
	}
	return nil
}
