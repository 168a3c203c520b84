package model

import "time"

// WorldSnapshot is an immutable point-in-time copy of the world state.
// Consumers (rendering, persistence, the status API) read snapshots and
// never touch the store's internal state.
type WorldSnapshot struct {
	TakenAt   time.Time                     `json:"taken_at"`
	Teams     map[TeamID]Team               `json:"teams"`
	Players   map[PlayerID]Player           `json:"players"`
	Matches   map[MatchID]Match             `json:"matches"`
	Locations map[LocationID]GalaxyLocation `json:"locations"`
	Versions  VersionVector                 `json:"versions"`
}

// RosterFor resolves a team's ordered roster from the snapshot. Returns
// ErrTeamNotFound or ErrPlayerNotFound if the snapshot is missing pieces.
func (s *WorldSnapshot) RosterFor(id TeamID) (Roster, error) {
	team, ok := s.Teams[id]
	if !ok {
		return Roster{}, ErrTeamNotFound
	}
	roster := Roster{TeamID: id, Players: make([]Player, 0, len(team.Roster))}
	for _, pid := range team.Roster {
		p, ok := s.Players[pid]
		if !ok {
			return Roster{}, ErrPlayerNotFound
		}
		roster.Players = append(roster.Players, p)
	}
	return roster, nil
}

// PeerStatus describes a remote peer's last observed liveness
type PeerStatus struct {
	Peer     PeerID    `json:"peer"`
	LastSeen time.Time `json:"last_seen"`
	Digest   string    `json:"digest"`
	Stale    bool      `json:"stale"`
}
