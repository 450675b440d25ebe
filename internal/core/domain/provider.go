package domain

// ProviderType identifies a supported third-party provider
type ProviderType string

const (
	ProviderGitHub  ProviderType = "github"
	ProviderSpotify ProviderType = "spotify"
)

// Valid reports whether the provider type is one we support.
func (p ProviderType) Valid() bool {
	switch p {
	case ProviderGitHub, ProviderSpotify:
		return true
	}
	return false
}
