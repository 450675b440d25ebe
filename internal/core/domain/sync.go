package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// SyncState tracks incremental-sync progress for one (connector, kind)
// pair. It lives in a TTL-bounded key-value store and is a resumability
// hint, not a source of truth: losing it only causes redundant work.
type SyncState struct {
	ConnectorName string    `json:"connector_name"`
	EntityKind    Kind      `json:"entity_kind"`
	LastSyncTime  time.Time `json:"last_sync_time"`

	// Cursor is the opaque pagination position, round-tripped verbatim.
	Cursor string `json:"cursor,omitempty"`

	// Checksums maps entity id to content fingerprint, used to detect
	// no-op re-syncs.
	Checksums map[string]string `json:"checksums"`

	LastETLRun      time.Time `json:"last_etl_run,omitzero"`
	LastProcessedAt time.Time `json:"last_processed_at,omitzero"`
}

// SyncResult summarises one fetch+persist cycle.
type SyncResult struct {
	ConnectorName string        `json:"connector_name"`
	EntityKind    Kind          `json:"entity_kind"`
	Fetched       int           `json:"fetched"`
	Skipped       int           `json:"skipped"` // Unchanged per checksum
	Saved         int           `json:"saved"`
	Invalid       int           `json:"invalid"` // Failed required-field invariants
	Cursor        string        `json:"cursor,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Checksum returns a content fingerprint for an entity. Identical
// content always produces the same fingerprint, so a re-sync of
// unchanged upstream data is detectable without touching storage.
func Checksum(e Entity) string {
	data, err := json.Marshal(e)
	if err != nil {
		// Entities are plain data structs; marshal only fails for
		// unsupported field types, which is a programming error.
		// An empty checksum never matches, forcing a re-save.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
