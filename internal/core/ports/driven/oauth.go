package driven

import "context"

// TokenResponse is the raw result of an OAuth token exchange.
type TokenResponse struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int // Seconds until expiry, 0 when the provider omits it
	RefreshToken string
	Scope        string

	// Extra holds provider-specific fields beyond the standard shape.
	Extra map[string]any
}

// OAuthExchanger performs OAuth code and refresh-token exchanges for
// one provider. Each call is exactly one network exchange; retry policy
// belongs to the HTTP layer, not here. Failures are always
// domain.AuthError so callers redirect the user to reauthorize instead
// of retrying silently.
type OAuthExchanger interface {
	// Exchange swaps an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*TokenResponse, error)

	// Refresh swaps a refresh token for fresh tokens.
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// Revoke invalidates an access token at the provider.
	Revoke(ctx context.Context, accessToken string) error
}
