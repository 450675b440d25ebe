// Package oauth implements the provider-agnostic OAuth code and
// refresh exchanges. Each call is exactly one network exchange; retry
// policy belongs to the HTTP layer built on top of the tokens, not
// here.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/normalize"
)

// Verify interface compliance
var _ driven.OAuthExchanger = (*Client)(nil)

// Config holds one provider's OAuth application settings.
type Config struct {
	Provider     domain.ProviderType
	AuthURL      string
	TokenURL     string
	RevokeURL    string // Empty when the provider has no revoke endpoint
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	HTTPClient   *http.Client
}

// Client exchanges authorization codes and refresh tokens for one
// provider. Any failure - HTTP status, malformed JSON, provider error
// field - surfaces as domain.AuthError so callers send the user back
// through authorization instead of retrying.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates an exchanger for the given provider config.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// BuildAuthURL constructs the authorization redirect URL for the given
// CSRF state token.
func (c *Client) BuildAuthURL(state string) string {
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURI},
		"response_type": {"code"},
		"state":         {state},
		"scope":         {strings.Join(c.cfg.Scopes, " ")},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// Exchange swaps an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*driven.TokenResponse, error) {
	return c.postForm(ctx, url.Values{
		"client_id":    {c.cfg.ClientID},
		"code":         {code},
		"redirect_uri": {c.cfg.RedirectURI},
		"grant_type":   {"authorization_code"},
	})
}

// Refresh swaps a refresh token for fresh tokens.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*driven.TokenResponse, error) {
	return c.postForm(ctx, url.Values{
		"client_id":     {c.cfg.ClientID},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	})
}

// Revoke invalidates an access token. Providers without a revoke
// endpoint treat this as a no-op.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	if c.cfg.RevokeURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RevokeURL,
		strings.NewReader(url.Values{"token": {accessToken}}.Encode()))
	if err != nil {
		return fmt.Errorf("create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.AuthError{Provider: c.cfg.Provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &domain.AuthError{Provider: c.cfg.Provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, form url.Values) (*driven.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.AuthError{Provider: c.cfg.Provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.AuthError{Provider: c.cfg.Provider, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.AuthError{Provider: c.cfg.Provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var raw normalize.Record
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.AuthError{
			Provider: c.cfg.Provider,
			Err:      fmt.Errorf("invalid token response: %w", err),
		}
	}

	// Some providers (GitHub included) answer 200 with an error field.
	if errCode := normalize.String(raw, "error", ""); errCode != "" {
		return nil, &domain.AuthError{
			Provider: c.cfg.Provider,
			Body:     errCode + ": " + normalize.String(raw, "error_description", ""),
		}
	}

	token := &driven.TokenResponse{
		AccessToken:  normalize.String(raw, "access_token", ""),
		TokenType:    normalize.String(raw, "token_type", "Bearer"),
		ExpiresIn:    normalize.Int(raw, "expires_in", 0),
		RefreshToken: normalize.String(raw, "refresh_token", ""),
		Scope:        normalize.String(raw, "scope", ""),
	}
	if token.AccessToken == "" {
		return nil, &domain.AuthError{Provider: c.cfg.Provider, Body: "token response without access_token"}
	}

	// Keep provider-specific extras for the credential metadata.
	standard := map[string]bool{
		"access_token": true, "token_type": true, "expires_in": true,
		"refresh_token": true, "scope": true,
	}
	for k, v := range raw {
		if !standard[k] {
			if token.Extra == nil {
				token.Extra = make(map[string]any)
			}
			token.Extra[k] = v
		}
	}

	return token, nil
}
