package response

import (
	"sort"
	"time"

	"github.com/spacedunk/spacedunk/internal/model"
)

// Identity describes the local peer in API responses
type Identity struct {
	PeerID      string `json:"peer_id"`
	Fingerprint string `json:"fingerprint"`
	OwnTeam     string `json:"own_team,omitempty"`
}

// Player represents a player in API responses
type Player struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Team    string       `json:"team"`
	Overall int          `json:"overall"`
	Skills  model.Skills `json:"skills"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		ID:      string(p.ID),
		Name:    p.Name,
		Team:    string(p.Team),
		Overall: p.OverallRating(),
		Skills:  p.Skills,
	}
}

// Team represents a team in API responses
type Team struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Owner        string   `json:"owner"`
	HomeLocation string   `json:"home_location"`
	Status       string   `json:"status"`
	Roster       []Player `json:"roster"`
}

// TeamFromSnapshot converts a team, resolving its roster from the snapshot.
// Players the snapshot has not received yet are simply omitted.
func TeamFromSnapshot(t model.Team, snap *model.WorldSnapshot) Team {
	roster := make([]Player, 0, len(t.Roster))
	for _, pid := range t.Roster {
		if p, ok := snap.Players[pid]; ok {
			roster = append(roster, PlayerFromModel(p))
		}
	}
	return Team{
		ID:           string(t.ID),
		Name:         t.Name,
		Owner:        string(t.Owner),
		HomeLocation: string(t.HomeLocation),
		Status:       string(t.Status),
		Roster:       roster,
	}
}

// MatchEvent is one play-by-play entry in API responses
type MatchEvent struct {
	Seq       int    `json:"seq"`
	Quarter   int    `json:"quarter"`
	Kind      string `json:"kind"`
	Team      string `json:"team,omitempty"`
	Player    string `json:"player,omitempty"`
	Points    int    `json:"points,omitempty"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
}

// Match represents a match in API responses
type Match struct {
	ID        string       `json:"id"`
	HomeTeam  string       `json:"home_team"`
	AwayTeam  string       `json:"away_team"`
	Seed      uint64       `json:"seed"`
	Status    string       `json:"status"`
	HomeScore int          `json:"home_score"`
	AwayScore int          `json:"away_score"`
	Events    []MatchEvent `json:"events,omitempty"`
}

// MatchFromModel converts a model.Match, optionally including its event log
func MatchFromModel(m model.Match, withEvents bool) Match {
	out := Match{
		ID:        string(m.ID),
		HomeTeam:  string(m.HomeTeam),
		AwayTeam:  string(m.AwayTeam),
		Seed:      m.Seed,
		Status:    string(m.Status),
		HomeScore: m.HomeScore,
		AwayScore: m.AwayScore,
	}
	if withEvents {
		out.Events = make([]MatchEvent, len(m.Events))
		for i, e := range m.Events {
			out.Events[i] = MatchEvent{
				Seq:       e.Seq,
				Quarter:   e.Quarter,
				Kind:      string(e.Kind),
				Team:      string(e.Team),
				Player:    string(e.Player),
				Points:    e.Points,
				HomeScore: e.HomeScore,
				AwayScore: e.AwayScore,
			}
		}
	}
	return out
}

// Location represents a galaxy location in API responses
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Snapshot is the world overview returned by the snapshot endpoint
type Snapshot struct {
	TakenAt   time.Time  `json:"taken_at"`
	Teams     []Team     `json:"teams"`
	Matches   []Match    `json:"matches"`
	Locations []Location `json:"locations"`
}

// SnapshotFromModel converts a world snapshot, sorting collections by id so
// responses are stable across calls
func SnapshotFromModel(snap *model.WorldSnapshot) Snapshot {
	out := Snapshot{
		TakenAt:   snap.TakenAt,
		Teams:     make([]Team, 0, len(snap.Teams)),
		Matches:   make([]Match, 0, len(snap.Matches)),
		Locations: make([]Location, 0, len(snap.Locations)),
	}
	for _, t := range snap.Teams {
		out.Teams = append(out.Teams, TeamFromSnapshot(t, snap))
	}
	for _, m := range snap.Matches {
		out.Matches = append(out.Matches, MatchFromModel(m, false))
	}
	for _, l := range snap.Locations {
		out.Locations = append(out.Locations, Location{ID: string(l.ID), Name: l.Name, X: l.X, Y: l.Y})
	}
	sort.Slice(out.Teams, func(i, j int) bool { return out.Teams[i].ID < out.Teams[j].ID })
	sort.Slice(out.Matches, func(i, j int) bool { return out.Matches[i].ID < out.Matches[j].ID })
	sort.Slice(out.Locations, func(i, j int) bool { return out.Locations[i].ID < out.Locations[j].ID })
	return out
}

// Peer represents a remote peer's liveness in API responses
type Peer struct {
	ID       string    `json:"id"`
	LastSeen time.Time `json:"last_seen"`
	Digest   string    `json:"digest"`
	Stale    bool      `json:"stale"`
}

// PeersFromModel converts peer statuses
func PeersFromModel(statuses []model.PeerStatus) []Peer {
	peers := make([]Peer, len(statuses))
	for i, s := range statuses {
		peers[i] = Peer{
			ID:       string(s.Peer),
			LastSeen: s.LastSeen,
			Digest:   s.Digest,
			Stale:    s.Stale,
		}
	}
	return peers
}

// ChallengeResponse is returned after proposing a match
type ChallengeResponse struct {
	Seed uint64 `json:"seed"`
}
