// Package redis implements sync-state tracking and distributed locking
// on Redis. Sync state is advisory: every operation degrades to a
// logged warning when Redis is down, because a lost cursor only costs a
// re-fetch.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ait-labs/ait-connectors/internal/core/domain"
	"github.com/ait-labs/ait-connectors/internal/core/ports/driven"
)

// stateTTL bounds how long sync state outlives its last write. A
// connector idle for longer starts from scratch, which also garbage
// collects state for deleted connections.
const stateTTL = 7 * 24 * time.Hour

var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore keeps one JSON document per (connector, kind) pair.
type SyncStateStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewSyncStateStore creates the store on an open client.
func NewSyncStateStore(client *redis.Client, logger *slog.Logger) *SyncStateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncStateStore{client: client, logger: logger, ttl: stateTTL, now: time.Now}
}

func stateKey(connectorName string, kind domain.Kind) string {
	return fmt.Sprintf("sync-state:%s:%s", connectorName, kind)
}

func (s *SyncStateStore) GetState(ctx context.Context, connectorName string, kind domain.Kind) (*domain.SyncState, error) {
	raw, err := s.client.Get(ctx, stateKey(connectorName, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("sync state read failed, treating as absent",
			"connector", connectorName, "kind", kind, "error", err)
		return nil, nil
	}

	var state domain.SyncState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Warn("sync state corrupt, treating as absent",
			"connector", connectorName, "kind", kind, "error", err)
		return nil, nil
	}
	return &state, nil
}

func (s *SyncStateStore) SaveState(ctx context.Context, state *domain.SyncState) error {
	state.LastSyncTime = s.now().UTC()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal sync state: %w", err)
	}

	key := stateKey(state.ConnectorName, state.EntityKind)
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("sync state write failed",
			"connector", state.ConnectorName, "kind", state.EntityKind, "error", err)
	}
	return nil
}

// UpdateChecksums merges into the existing map; entries for ids not in
// the update survive, so partial pages from concurrent kinds interleave
// safely.
func (s *SyncStateStore) UpdateChecksums(ctx context.Context, connectorName string, kind domain.Kind, checksums map[string]string) error {
	if len(checksums) == 0 {
		return nil
	}

	state, _ := s.GetState(ctx, connectorName, kind)
	if state == nil {
		state = &domain.SyncState{ConnectorName: connectorName, EntityKind: kind}
	}
	if state.Checksums == nil {
		state.Checksums = make(map[string]string, len(checksums))
	}
	for id, sum := range checksums {
		state.Checksums[id] = sum
	}
	return s.SaveState(ctx, state)
}

func (s *SyncStateStore) UpdateETLTimestamp(ctx context.Context, connectorName string, kind domain.Kind, processedAt time.Time) error {
	state, _ := s.GetState(ctx, connectorName, kind)
	if state == nil {
		state = &domain.SyncState{ConnectorName: connectorName, EntityKind: kind}
	}
	state.LastETLRun = s.now().UTC()
	state.LastProcessedAt = processedAt
	return s.SaveState(ctx, state)
}

func (s *SyncStateStore) ClearState(ctx context.Context, connectorName string, kind domain.Kind) error {
	if err := s.client.Del(ctx, stateKey(connectorName, kind)).Err(); err != nil {
		s.logger.Warn("sync state delete failed",
			"connector", connectorName, "kind", kind, "error", err)
	}
	return nil
}

// ClearCursor drops only the pagination position. Checksums survive, so
// the forced full re-page still skips unchanged content.
func (s *SyncStateStore) ClearCursor(ctx context.Context, connectorName string, kind domain.Kind) error {
	state, _ := s.GetState(ctx, connectorName, kind)
	if state == nil {
		return nil
	}
	state.Cursor = ""
	return s.SaveState(ctx, state)
}
