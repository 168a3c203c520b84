package model

import "fmt"

// TeamID uniquely identifies a team
type TeamID string

// PlayerID uniquely identifies a player
type PlayerID string

// MatchID uniquely identifies a match
type MatchID string

// LocationID uniquely identifies a galaxy location
type LocationID string

// PeerID is the stable identifier of a peer, derived from its public key
type PeerID string

// EntityKind identifies the kind of entity a state update targets
type EntityKind string

const (
	KindTeam   EntityKind = "team"
	KindPlayer EntityKind = "player"
	KindMatch  EntityKind = "match"
)

// EntityKey identifies one replicated entity in the world store
type EntityKey struct {
	Kind EntityKind
	ID   string
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.ID)
}

// TeamKey returns the entity key for a team
func TeamKey(id TeamID) EntityKey {
	return EntityKey{Kind: KindTeam, ID: string(id)}
}

// PlayerKey returns the entity key for a player
func PlayerKey(id PlayerID) EntityKey {
	return EntityKey{Kind: KindPlayer, ID: string(id)}
}

// MatchKey returns the entity key for a match
func MatchKey(id MatchID) EntityKey {
	return EntityKey{Kind: KindMatch, ID: string(id)}
}
