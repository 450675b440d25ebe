package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		Provider:     domain.ProviderGitHub,
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		RevokeURL:    srv.URL + "/revoke",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/callback",
		Scopes:       []string{"repo", "read:user"},
		HTTPClient:   srv.Client(),
	})
	return client, srv
}

func TestExchangeSuccess(t *testing.T) {
	var gotForm url.Values
	var gotUser, gotPass string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "gho_abc",
			"token_type": "bearer",
			"expires_in": 28800,
			"refresh_token": "ghr_def",
			"scope": "repo,read:user",
			"refresh_token_expires_in": 15897600
		}`))
	})

	token, err := client.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	if gotUser != "client-id" || gotPass != "client-secret" {
		t.Errorf("basic auth = %q/%q, want client-id/client-secret", gotUser, gotPass)
	}
	if got := gotForm.Get("grant_type"); got != "authorization_code" {
		t.Errorf("grant_type = %q, want authorization_code", got)
	}
	if got := gotForm.Get("code"); got != "auth-code" {
		t.Errorf("code = %q, want auth-code", got)
	}

	if token.AccessToken != "gho_abc" {
		t.Errorf("AccessToken = %q, want gho_abc", token.AccessToken)
	}
	if token.RefreshToken != "ghr_def" {
		t.Errorf("RefreshToken = %q, want ghr_def", token.RefreshToken)
	}
	if token.ExpiresIn != 28800 {
		t.Errorf("ExpiresIn = %d, want 28800", token.ExpiresIn)
	}
	if _, ok := token.Extra["refresh_token_expires_in"]; !ok {
		t.Errorf("Extra missing refresh_token_expires_in, got %v", token.Extra)
	}
}

func TestRefreshSendsRefreshGrant(t *testing.T) {
	var gotForm url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		w.Write([]byte(`{"access_token": "new-token", "token_type": "bearer"}`))
	})

	token, err := client.Refresh(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := gotForm.Get("grant_type"); got != "refresh_token" {
		t.Errorf("grant_type = %q, want refresh_token", got)
	}
	if got := gotForm.Get("refresh_token"); got != "old-refresh" {
		t.Errorf("refresh_token = %q, want old-refresh", got)
	}
	if token.AccessToken != "new-token" {
		t.Errorf("AccessToken = %q, want new-token", token.AccessToken)
	}
}

func TestExchangeHTTPErrorIsAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusUnauthorized)
	})

	_, err := client.Exchange(context.Background(), "code")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Exchange() error = %T, want *domain.AuthError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", authErr.StatusCode)
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Error("error should match ErrUnauthorized")
	}
}

func TestExchangeErrorFieldIn200Body(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "bad_verification_code", "error_description": "The code is incorrect or expired."}`))
	})

	_, err := client.Exchange(context.Background(), "expired-code")
	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Exchange() error = %T, want *domain.AuthError", err)
	}
	if !strings.Contains(authErr.Body, "bad_verification_code") {
		t.Errorf("Body = %q, want error code included", authErr.Body)
	}
}

func TestExchangeMissingAccessToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token_type": "bearer"}`))
	})

	_, err := client.Exchange(context.Background(), "code")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Exchange() error = %v, want ErrUnauthorized", err)
	}
}

func TestRevoke(t *testing.T) {
	var revoked string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		revoked = r.PostForm.Get("token")
		w.WriteHeader(http.StatusOK)
	})

	if err := client.Revoke(context.Background(), "gho_abc"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked != "gho_abc" {
		t.Errorf("revoked token = %q, want gho_abc", revoked)
	}
}

func TestRevokeWithoutEndpointIsNoop(t *testing.T) {
	client := NewClient(Config{Provider: domain.ProviderGitHub})
	if err := client.Revoke(context.Background(), "token"); err != nil {
		t.Fatalf("Revoke() error = %v, want nil", err)
	}
}

func TestBuildAuthURL(t *testing.T) {
	client := NewClient(Config{
		Provider:    domain.ProviderSpotify,
		AuthURL:     "https://accounts.spotify.com/authorize",
		ClientID:    "cid",
		RedirectURI: "https://app.example.com/callback",
		Scopes:      []string{"user-library-read", "user-top-read"},
	})

	raw := client.BuildAuthURL("state-token")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth URL: %v", err)
	}
	q := u.Query()
	if got := q.Get("client_id"); got != "cid" {
		t.Errorf("client_id = %q", got)
	}
	if got := q.Get("state"); got != "state-token" {
		t.Errorf("state = %q", got)
	}
	if got := q.Get("scope"); got != "user-library-read user-top-read" {
		t.Errorf("scope = %q", got)
	}
	if got := q.Get("response_type"); got != "code" {
		t.Errorf("response_type = %q", got)
	}
}

func TestStateManagerRoundTrip(t *testing.T) {
	m := NewStateManager([]byte("test-secret"), time.Minute)

	state, err := m.Issue("user-1", domain.ProviderSpotify)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, provider, err := m.Verify(state)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want user-1", userID)
	}
	if provider != domain.ProviderSpotify {
		t.Errorf("provider = %q, want spotify", provider)
	}
}

func TestStateManagerRejectsTampered(t *testing.T) {
	m := NewStateManager([]byte("test-secret"), time.Minute)
	other := NewStateManager([]byte("other-secret"), time.Minute)

	state, err := other.Issue("user-1", domain.ProviderGitHub)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, _, err := m.Verify(state); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want ErrUnauthorized", err)
	}
}

func TestStateManagerRejectsExpired(t *testing.T) {
	m := NewStateManager([]byte("test-secret"), time.Minute)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	state, err := m.Issue("user-1", domain.ProviderGitHub)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, _, err := m.Verify(state); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Verify() error = %v, want ErrUnauthorized", err)
	}
}
