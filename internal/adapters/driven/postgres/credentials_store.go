package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
)

var _ driven.CredentialsStore = (*CredentialsStore)(nil)

// CredentialsStore persists OAuth credentials with tokens encrypted at
// rest.
type CredentialsStore struct {
	db  *sql.DB
	enc *SecretEncryptor
}

// NewCredentialsStore creates the store on an open database handle.
func NewCredentialsStore(db *sql.DB, enc *SecretEncryptor) *CredentialsStore {
	return &CredentialsStore{db: db, enc: enc}
}

func (s *CredentialsStore) Save(ctx context.Context, creds *domain.Credentials) error {
	if creds.UserID == "" || !creds.Provider.Valid() {
		return fmt.Errorf("%w: credentials need a user id and a known provider", domain.ErrInvalidInput)
	}
	configName := creds.ConfigName
	if configName == "" {
		configName = "default"
	}

	accessToken, err := s.enc.Seal(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	var refreshToken []byte
	if creds.RefreshToken != "" {
		refreshToken, err = s.enc.Seal(creds.RefreshToken)
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	var metadata []byte
	if len(creds.Metadata) > 0 {
		metadata, err = json.Marshal(creds.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (
			user_id, provider, config_name, access_token, token_type,
			refresh_token, expires_in, scope, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (user_id, provider, config_name) DO UPDATE SET
			access_token  = EXCLUDED.access_token,
			token_type    = EXCLUDED.token_type,
			refresh_token = COALESCE(EXCLUDED.refresh_token, credentials.refresh_token),
			expires_in    = EXCLUDED.expires_in,
			scope         = EXCLUDED.scope,
			metadata      = COALESCE(EXCLUDED.metadata, credentials.metadata),
			updated_at    = EXCLUDED.updated_at`,
		creds.UserID, creds.Provider, configName, accessToken, creds.TokenType,
		refreshToken, creds.ExpiresIn, creds.Scope, metadata, now,
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *CredentialsStore) Get(ctx context.Context, userID string, provider domain.ProviderType) (*domain.Credentials, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, provider, config_name, access_token, token_type,
		       refresh_token, expires_in, scope, metadata, created_at, updated_at
		FROM credentials
		WHERE user_id = $1 AND provider = $2
		ORDER BY updated_at DESC
		LIMIT 1`,
		userID, provider,
	)

	var (
		creds        domain.Credentials
		accessToken  []byte
		refreshToken []byte
		metadata     []byte
	)
	err := row.Scan(
		&creds.UserID, &creds.Provider, &creds.ConfigName, &accessToken, &creds.TokenType,
		&refreshToken, &creds.ExpiresIn, &creds.Scope, &metadata, &creds.CreatedAt, &creds.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: credentials for %s/%s", domain.ErrNotFound, userID, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}

	if creds.AccessToken, err = s.enc.Open(accessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if len(refreshToken) > 0 {
		if creds.RefreshToken, err = s.enc.Open(refreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &creds.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &creds, nil
}

func (s *CredentialsStore) Delete(ctx context.Context, userID string, provider domain.ProviderType) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: credentials for %s/%s", domain.ErrNotFound, userID, provider)
	}
	return nil
}
