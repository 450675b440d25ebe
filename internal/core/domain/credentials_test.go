package domain

import (
	"testing"
	"time"
)

func TestCredentials_IsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresIn int
		updatedAt time.Time
		want      bool
	}{
		{
			name:      "no expiry never expires",
			expiresIn: 0,
			updatedAt: time.Now().Add(-100 * time.Hour),
			want:      false,
		},
		{
			name:      "fresh token not expired",
			expiresIn: 3600,
			updatedAt: time.Now(),
			want:      false,
		},
		{
			name:      "old token expired",
			expiresIn: 3600,
			updatedAt: time.Now().Add(-2 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credentials{ExpiresIn: tt.expiresIn, UpdatedAt: tt.updatedAt}
			if got := c.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCredentials_NeedsRefresh(t *testing.T) {
	// Expires in 2 minutes - inside the 5 minute leeway
	c := &Credentials{ExpiresIn: 120, UpdatedAt: time.Now()}
	if !c.NeedsRefresh() {
		t.Error("expected NeedsRefresh for token expiring within leeway")
	}
	if c.IsExpired() {
		t.Error("token should not yet be expired")
	}

	// Expires in an hour - outside the leeway
	c = &Credentials{ExpiresIn: 3600, UpdatedAt: time.Now()}
	if c.NeedsRefresh() {
		t.Error("did not expect NeedsRefresh for a fresh token")
	}
}

func TestCredentials_CanRefresh(t *testing.T) {
	c := &Credentials{RefreshToken: "rt"}
	if !c.CanRefresh() {
		t.Error("expected CanRefresh with refresh token present")
	}
	c.RefreshToken = ""
	if c.CanRefresh() {
		t.Error("did not expect CanRefresh without refresh token")
	}
}
