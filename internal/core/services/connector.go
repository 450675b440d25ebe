// Package services contains the application core: the connector
// composition root that binds authentication, fetching, and
// persistence into sync cycles.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driving"
)

// maxEmptyPages caps how many consecutive empty pages a sync follows
// before declaring the upstream exhausted. Some APIs keep handing out
// cursors past the end of the collection.
const maxEmptyPages = 10

// SourceBuilder constructs a data source bound to an access token. The
// wiring layer closes this over the provider factory.
type SourceBuilder func(accessToken string) (driven.DataSource, error)

// tokenSwapper is implemented by data sources that can take a
// refreshed token mid-flight.
type tokenSwapper interface {
	SetAccessToken(token string)
}

// Config wires one connector instance.
type Config struct {
	// Name identifies this connector in sync state and logs, e.g.
	// "github-user-42".
	Name     string
	UserID   string
	Provider domain.ProviderType

	OAuth       driven.OAuthExchanger
	Credentials driven.CredentialsStore
	Entities    driven.EntityStore
	SyncState   driven.SyncStateStore
	BuildSource SourceBuilder

	Logger *slog.Logger
	Now    func() time.Time
}

var _ driving.ConnectorService = (*Connector)(nil)

// Connector composes one provider's OAuth exchanger, data source and
// stores into a syncable unit.
type Connector struct {
	cfg Config

	mu     sync.Mutex
	source driven.DataSource
	creds  *domain.Credentials
}

// NewConnector creates a connector. It starts disconnected: call
// Connect before Sync, or let Sync load persisted credentials itself.
func NewConnector(cfg Config) (*Connector, error) {
	switch {
	case cfg.Name == "":
		return nil, fmt.Errorf("%w: connector name required", domain.ErrInvalidInput)
	case !cfg.Provider.Valid():
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, cfg.Provider)
	case cfg.OAuth == nil || cfg.Credentials == nil || cfg.Entities == nil ||
		cfg.SyncState == nil || cfg.BuildSource == nil:
		return nil, fmt.Errorf("%w: connector dependencies incomplete", domain.ErrInvalidInput)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With("connector", cfg.Name, "provider", cfg.Provider)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Connector{cfg: cfg}, nil
}

func (c *Connector) Name() string                  { return c.cfg.Name }
func (c *Connector) Provider() domain.ProviderType { return c.cfg.Provider }

// Connect establishes authentication. With a code it runs the full
// exchange and persists the resulting credentials; with an empty code
// it loads persisted credentials, refreshing them when close to expiry.
func (c *Connector) Connect(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if code != "" {
		return c.connectWithCode(ctx, code)
	}
	return c.connectFromStore(ctx)
}

func (c *Connector) connectWithCode(ctx context.Context, code string) error {
	token, err := c.cfg.OAuth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	now := c.cfg.Now().UTC()
	creds := &domain.Credentials{
		UserID:       c.cfg.UserID,
		Provider:     c.cfg.Provider,
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		Scope:        token.Scope,
		Metadata:     token.Extra,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.cfg.Credentials.Save(ctx, creds); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	c.cfg.Logger.Info("connected via authorization code")
	return c.bindSource(creds)
}

func (c *Connector) connectFromStore(ctx context.Context) error {
	creds, err := c.cfg.Credentials.Get(ctx, c.cfg.UserID, c.cfg.Provider)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: no stored credentials for %s", domain.ErrReauthorizeRequired, c.cfg.Name)
	}
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	if creds.NeedsRefresh() {
		if !creds.CanRefresh() {
			if creds.IsExpired() {
				return fmt.Errorf("%w: token expired and no refresh token", domain.ErrReauthorizeRequired)
			}
			// Close to expiry but still live; use it while it lasts.
		} else if err := c.refreshLocked(ctx, creds); err != nil {
			return err
		}
	}
	return c.bindSource(creds)
}

// refreshLocked runs a refresh exchange and persists the new tokens.
// Callers hold c.mu.
func (c *Connector) refreshLocked(ctx context.Context, creds *domain.Credentials) error {
	token, err := c.cfg.OAuth.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: refresh failed: %v", domain.ErrReauthorizeRequired, err)
	}

	creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" { // Some providers rotate, some don't
		creds.RefreshToken = token.RefreshToken
	}
	creds.ExpiresIn = token.ExpiresIn
	if token.Scope != "" {
		creds.Scope = token.Scope
	}
	creds.UpdatedAt = c.cfg.Now().UTC()

	if err := c.cfg.Credentials.Save(ctx, creds); err != nil {
		return fmt.Errorf("persist refreshed credentials: %w", err)
	}
	c.cfg.Logger.Info("access token refreshed")

	if swapper, ok := c.source.(tokenSwapper); ok {
		swapper.SetAccessToken(creds.AccessToken)
	}
	return nil
}

func (c *Connector) bindSource(creds *domain.Credentials) error {
	source, err := c.cfg.BuildSource(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("build data source: %w", err)
	}
	c.source = source
	c.creds = creds
	return nil
}

// ensureConnected lazily loads persisted credentials so a worker can
// sync without an explicit Connect call after a restart.
func (c *Connector) ensureConnected(ctx context.Context) (driven.DataSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source != nil {
		return c.source, nil
	}
	if err := c.connectFromStore(ctx); err != nil {
		return nil, err
	}
	return c.source, nil
}

// Sync runs one full fetch+persist cycle for a single entity kind,
// resuming from the persisted cursor and skipping entities whose
// checksums are unchanged.
func (c *Connector) Sync(ctx context.Context, kind domain.Kind) (*domain.SyncResult, error) {
	source, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	if !kindSupported(source, kind) {
		return nil, &domain.UnsupportedKindError{Kind: kind}
	}

	start := c.cfg.Now()
	logger := c.cfg.Logger.With("kind", kind)
	result := &domain.SyncResult{ConnectorName: c.cfg.Name, EntityKind: kind}

	cursor := ""
	known := map[string]string{}
	if state, _ := c.cfg.SyncState.GetState(ctx, c.cfg.Name, kind); state != nil {
		cursor = state.Cursor
		if state.Checksums != nil {
			known = state.Checksums
		}
		logger.Debug("resuming from persisted state", "cursor", cursor, "checksums", len(known))
	}

	emptyPages := 0
	for {
		page, err := c.fetchPageAuthAware(ctx, source, kind, cursor)
		if err != nil {
			result.Duration = c.cfg.Now().Sub(start)
			return result, err
		}
		result.Fetched += len(page.Entities)

		fresh := make([]domain.Entity, 0, len(page.Entities))
		sums := make(map[string]string, len(page.Entities))
		for _, entity := range page.Entities {
			if err := domain.ValidateEntity(entity); err != nil {
				logger.Warn("dropping invalid entity", "error", err)
				result.Invalid++
				continue
			}
			sum := domain.Checksum(entity)
			if sum != "" && known[entity.EntityID()] == sum {
				result.Skipped++
				continue
			}
			fresh = append(fresh, entity)
			sums[entity.EntityID()] = sum
		}

		if len(fresh) > 0 {
			if err := c.cfg.Entities.Save(ctx, fresh...); err != nil {
				result.Duration = c.cfg.Now().Sub(start)
				return result, fmt.Errorf("persist page: %w", err)
			}
			result.Saved += len(fresh)
			c.cfg.SyncState.UpdateChecksums(ctx, c.cfg.Name, kind, sums)
			for id, sum := range sums {
				known[id] = sum
			}
		}

		// Persist the position after every page so an interrupted sync
		// resumes instead of restarting.
		cursor = page.NextCursor
		result.Cursor = cursor
		c.cfg.SyncState.SaveState(ctx, &domain.SyncState{
			ConnectorName: c.cfg.Name,
			EntityKind:    kind,
			Cursor:        cursor,
			Checksums:     known,
		})

		if cursor == "" {
			break
		}
		if len(page.Entities) == 0 {
			emptyPages++
			if emptyPages >= maxEmptyPages {
				logger.Warn("stopping after consecutive empty pages", "pages", emptyPages)
				break
			}
		} else {
			emptyPages = 0
		}
	}

	c.cfg.SyncState.UpdateETLTimestamp(ctx, c.cfg.Name, kind, c.cfg.Now().UTC())
	result.Duration = c.cfg.Now().Sub(start)
	logger.Info("sync complete",
		"fetched", result.Fetched, "saved", result.Saved,
		"skipped", result.Skipped, "invalid", result.Invalid,
		"duration", result.Duration)
	return result, nil
}

// fetchPageAuthAware fetches one page, refreshing the token once on an
// authentication failure. A second failure means the stored grant is
// dead and the user has to reauthorize.
func (c *Connector) fetchPageAuthAware(ctx context.Context, source driven.DataSource, kind domain.Kind, cursor string) (*driven.Page, error) {
	page, err := source.FetchPage(ctx, kind, cursor)
	if err == nil {
		return page, nil
	}

	var authErr *domain.AuthError
	if !errors.As(err, &authErr) {
		return nil, err
	}

	c.mu.Lock()
	creds := c.creds
	if creds == nil || !creds.CanRefresh() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", domain.ErrReauthorizeRequired, err)
	}
	refreshErr := c.refreshLocked(ctx, creds)
	c.mu.Unlock()
	if refreshErr != nil {
		return nil, refreshErr
	}

	page, err = source.FetchPage(ctx, kind, cursor)
	if err != nil {
		if errors.As(err, &authErr) {
			return nil, fmt.Errorf("%w: %v", domain.ErrReauthorizeRequired, err)
		}
		return nil, err
	}
	return page, nil
}

// SyncAll syncs every kind the data source supports. One kind's
// failure doesn't stop the others; the joined error reports them all.
func (c *Connector) SyncAll(ctx context.Context) ([]*domain.SyncResult, error) {
	source, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	var results []*domain.SyncResult
	var errs []error
	for _, kind := range source.Kinds() {
		result, err := c.Sync(ctx, kind)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			c.cfg.Logger.Error("kind sync failed", "kind", kind, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}
	return results, nil
}

// Disconnect revokes the access token (best-effort) and deletes the
// stored credentials and sync state.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.creds != nil && c.creds.AccessToken != "" {
		if err := c.cfg.OAuth.Revoke(ctx, c.creds.AccessToken); err != nil {
			c.cfg.Logger.Warn("token revoke failed", "error", err)
		}
	}
	if c.source != nil {
		for _, kind := range c.source.Kinds() {
			c.cfg.SyncState.ClearState(ctx, c.cfg.Name, kind)
		}
	}

	err := c.cfg.Credentials.Delete(ctx, c.cfg.UserID, c.cfg.Provider)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete credentials: %w", err)
	}

	c.source = nil
	c.creds = nil
	c.cfg.Logger.Info("disconnected")
	return nil
}

func kindSupported(source driven.DataSource, kind domain.Kind) bool {
	for _, k := range source.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
