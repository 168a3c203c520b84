package model

import "encoding/json"

// MessageKind identifies the type of gossip message. The set is closed:
// handlers switch exhaustively over it, and unknown kinds from newer peers
// are dropped without error.
type MessageKind string

const (
	MessageStateUpdate   MessageKind = "state_update"
	MessageMatchProposal MessageKind = "match_proposal"
	MessageHeartbeat     MessageKind = "heartbeat"
	MessageSyncRequest   MessageKind = "sync_request"
)

// EnvelopeVersion is the current wire protocol version
const EnvelopeVersion = 1

// Envelope is the versioned wire wrapper for all gossip messages. Exactly
// one of the payload fields matching Kind is set. Decoding ignores unknown
// fields so older peers interoperate with newer protocol revisions.
type Envelope struct {
	V      int         `json:"v"`
	Kind   MessageKind `json:"kind"`
	From   PeerID      `json:"from"`
	SentAt int64       `json:"sent_at"`

	Update    *StateUpdate   `json:"update,omitempty"`
	Proposal  *MatchProposal `json:"proposal,omitempty"`
	Heartbeat *Heartbeat     `json:"heartbeat,omitempty"`
	Sync      *SyncRequest   `json:"sync,omitempty"`
}

// MatchProposal announces an agreed match between two teams. Every peer
// that holds both rosters simulates the match independently from the seed
// and applies the identical completion update.
type MatchProposal struct {
	MatchID   MatchID `json:"match_id"`
	HomeTeam  TeamID  `json:"home_team"`
	AwayTeam  TeamID  `json:"away_team"`
	Seed      uint64  `json:"seed"`
	Proposer  PeerID  `json:"proposer"`
	PublicKey []byte  `json:"public_key"`
	Signature []byte  `json:"signature"`
	SentAt    int64   `json:"sent_at"`
}

type signedProposal struct {
	MatchID  MatchID `json:"match_id"`
	HomeTeam TeamID  `json:"home_team"`
	AwayTeam TeamID  `json:"away_team"`
	Seed     uint64  `json:"seed"`
	Proposer PeerID  `json:"proposer"`
	SentAt   int64   `json:"sent_at"`
}

// SignedBytes returns the canonical bytes covered by the proposal signature
func (p MatchProposal) SignedBytes() ([]byte, error) {
	return json.Marshal(signedProposal{
		MatchID:  p.MatchID,
		HomeTeam: p.HomeTeam,
		AwayTeam: p.AwayTeam,
		Seed:     p.Seed,
		Proposer: p.Proposer,
		SentAt:   p.SentAt,
	})
}

// Heartbeat is a liveness/presence message. Digest summarizes the sender's
// version vector so receivers can detect divergence cheaply.
type Heartbeat struct {
	Peer      PeerID `json:"peer"`
	Digest    string `json:"digest"`
	PublicKey []byte `json:"public_key"`
	Signature []byte `json:"signature"`
	SentAt    int64  `json:"sent_at"`
}

type signedHeartbeat struct {
	Peer   PeerID `json:"peer"`
	Digest string `json:"digest"`
	SentAt int64  `json:"sent_at"`
}

// SignedBytes returns the canonical bytes covered by the heartbeat signature
func (h Heartbeat) SignedBytes() ([]byte, error) {
	return json.Marshal(signedHeartbeat{Peer: h.Peer, Digest: h.Digest, SentAt: h.SentAt})
}

// SyncRequest asks peers to republish updates the sender is missing.
// Receivers diff the vector against their own store and re-gossip the
// retained originals that are newer.
type SyncRequest struct {
	Peer   PeerID        `json:"peer"`
	Vector VersionVector `json:"vector"`
	SentAt int64         `json:"sent_at"`
}
