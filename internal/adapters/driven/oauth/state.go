package oauth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
)

// StateManager issues and verifies the signed state parameter carried
// through the authorization redirect. The token binds the callback to
// the user and provider that started the flow, so a code can't be
// replayed into someone else's connection.
type StateManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type stateClaims struct {
	UserID   string `json:"uid"`
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

// NewStateManager creates a manager signing states with the given
// secret. ttl <= 0 defaults to 10 minutes.
func NewStateManager(secret []byte, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateManager{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a state token for the given user and provider.
func (m *StateManager) Issue(userID string, provider domain.ProviderType) (string, error) {
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		UserID:   userID,
		Provider: string(provider),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signed state and returns the user and provider it
// was issued for. Expired or tampered states return ErrUnauthorized.
func (m *StateManager) Verify(state string) (string, domain.ProviderType, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid state: %v", domain.ErrUnauthorized, err)
	}

	provider := domain.ProviderType(claims.Provider)
	if !provider.Valid() {
		return "", "", fmt.Errorf("%w: state carries unknown provider %q", domain.ErrUnauthorized, claims.Provider)
	}
	return claims.UserID, provider, nil
}
