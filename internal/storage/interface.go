// Package storage defines the persistence boundary for a peer's world
// state. What gets persisted is the set of retained signed updates, not a
// bare snapshot: replaying them through the store re-validates every
// signature and preserves version numbers, so a restarted peer can never
// regress behind its own pre-restart updates.
package storage

import (
	"context"
	"time"

	"github.com/spacedunk/spacedunk/internal/model"
)

// SchemaVersion is bumped when the persisted layout changes
const SchemaVersion = 1

// PersistedState is the durable form of a peer's world replica
type PersistedState struct {
	SchemaVersion int                 `json:"schema_version"`
	PeerID        model.PeerID        `json:"peer_id"`
	OwnTeam       model.TeamID        `json:"own_team,omitempty"`
	SavedAt       time.Time           `json:"saved_at"`
	Updates       []model.StateUpdate `json:"updates"`
}

// Store persists and restores peer state. Load returns model.ErrNoState on
// first boot and model.ErrCorruptState when the stored bytes cannot be
// verified; a corrupt state is fatal, never silently reset.
type Store interface {
	Save(ctx context.Context, state *PersistedState) error
	Load(ctx context.Context) (*PersistedState, error)
	Close() error
}
