package domain

import "time"

// Credentials stores OAuth token material for one (user, provider) pair.
// Created on first successful authentication, mutated on refresh, and
// deleted only on explicit disconnect. At most one active row exists per
// (user, provider, config name) triple.
type Credentials struct {
	UserID     string       `json:"user_id"`
	Provider   ProviderType `json:"provider"`
	ConfigName string       `json:"config_name"` // Distinguishes multiple app configs per provider

	AccessToken  string `json:"-"` // Never serialize
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"-"`          // Never serialize
	ExpiresIn    int    `json:"expires_in"` // Seconds from UpdatedAt until expiry; 0 means no expiry
	Scope        string `json:"scope"`

	// Metadata holds provider-specific extras from the token response.
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExpired reports whether the access token has outlived ExpiresIn.
// Tokens without an expiry never expire.
func (c *Credentials) IsExpired() bool {
	return c.isExpiredAt(time.Now())
}

// NeedsRefresh reports whether the token should be refreshed (within
// five minutes of expiry).
func (c *Credentials) NeedsRefresh() bool {
	return c.isExpiredAt(time.Now().Add(5 * time.Minute))
}

func (c *Credentials) isExpiredAt(t time.Time) bool {
	if c.ExpiresIn <= 0 {
		return false
	}
	expiry := c.UpdatedAt.Add(time.Duration(c.ExpiresIn) * time.Second)
	return t.After(expiry)
}

// CanRefresh reports whether a refresh-token exchange is possible.
func (c *Credentials) CanRefresh() bool {
	return c.RefreshToken != ""
}
