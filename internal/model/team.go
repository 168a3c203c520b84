package model

// TeamStatus represents the lifecycle state of a team.
// Teams are never deleted; disbanding is a terminal status so removal
// never races with concurrent updates on other peers.
type TeamStatus string

const (
	TeamStatusActive    TeamStatus = "active"
	TeamStatusDisbanded TeamStatus = "disbanded"
)

// Team is a crew of players owned by a single peer
type Team struct {
	ID           TeamID     `json:"id"`
	Name         string     `json:"name"`
	Owner        PeerID     `json:"owner"`
	HomeLocation LocationID `json:"home_location"`
	// Roster is the ordered list of player ids. Order carries no rule
	// meaning but is fixed so id generation and starter selection are
	// deterministic on every peer.
	Roster []PlayerID `json:"roster"`
	Status TeamStatus `json:"status"`
}

// HasPlayer reports whether the player id is on the team's roster
func (t Team) HasPlayer(id PlayerID) bool {
	for _, pid := range t.Roster {
		if pid == id {
			return true
		}
	}
	return false
}

// Roster is a team's ordered players resolved for a match
type Roster struct {
	TeamID  TeamID   `json:"team_id"`
	Players []Player `json:"players"`
}

// MinRosterSize is the minimum number of players needed to play a match
const MinRosterSize = 5
