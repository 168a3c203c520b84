package model

import "encoding/json"

// StateUpdate is a signed, versioned delta to one entity's stored value.
// The signature covers SignedBytes() and must be produced by the peer
// authorized to mutate the entity.
type StateUpdate struct {
	Kind      EntityKind      `json:"kind"`
	EntityID  string          `json:"entity_id"`
	Version   uint64          `json:"version"`
	Signer    PeerID          `json:"signer"`
	PublicKey []byte          `json:"public_key"`
	Signature []byte          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
	SentAt    int64           `json:"sent_at"`
}

// Key returns the entity key the update targets
func (u StateUpdate) Key() EntityKey {
	return EntityKey{Kind: u.Kind, ID: u.EntityID}
}

// signedUpdate is the canonical portion of an update covered by its signature
type signedUpdate struct {
	Kind     EntityKind      `json:"kind"`
	EntityID string          `json:"entity_id"`
	Version  uint64          `json:"version"`
	Signer   PeerID          `json:"signer"`
	Payload  json.RawMessage `json:"payload"`
	SentAt   int64           `json:"sent_at"`
}

// SignedBytes returns the canonical byte representation the signature covers.
// Struct-based JSON marshaling is deterministic, so every peer derives the
// same bytes for the same update.
func (u StateUpdate) SignedBytes() ([]byte, error) {
	return json.Marshal(signedUpdate{
		Kind:     u.Kind,
		EntityID: u.EntityID,
		Version:  u.Version,
		Signer:   u.Signer,
		Payload:  u.Payload,
		SentAt:   u.SentAt,
	})
}

// VersionEntry records the winning version and signer for one entity
type VersionEntry struct {
	Version uint64 `json:"version"`
	Signer  PeerID `json:"signer"`
}

// VersionVector maps entity keys (as "kind/id" strings) to their stored
// version and winning signer. Peers exchange vectors to reconcile after
// partitions.
type VersionVector map[string]VersionEntry

// Supersedes reports whether an update with the given version and signer
// wins over the stored entry. Strictly higher versions always win; equal
// versions fall back to the lexicographically smaller signer id, which gives
// every peer the same winner regardless of arrival order.
func (e VersionEntry) Supersedes(version uint64, signer PeerID) bool {
	if version != e.Version {
		return version > e.Version
	}
	return signer < e.Signer
}
