package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Identity:
		o.printIdentity(v)
	case Team:
		o.printTeam(v)
	case Match:
		o.printMatch(v)
	case Snapshot:
		o.printSnapshot(v)
	case []Peer:
		o.printPeers(v)
	case ChallengeResult:
		o.printChallengeResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Identity response type (matches API)
type Identity struct {
	PeerID      string `json:"peer_id"`
	Fingerprint string `json:"fingerprint"`
	OwnTeam     string `json:"own_team,omitempty"`
}

// Player response type
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Team    string `json:"team"`
	Overall int    `json:"overall"`
}

// Team response type
type Team struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Owner        string   `json:"owner"`
	HomeLocation string   `json:"home_location"`
	Status       string   `json:"status"`
	Roster       []Player `json:"roster"`
}

// MatchEvent response type
type MatchEvent struct {
	Seq       int    `json:"seq"`
	Quarter   int    `json:"quarter"`
	Kind      string `json:"kind"`
	Player    string `json:"player,omitempty"`
	Points    int    `json:"points,omitempty"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
}

// Match response type
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

// Location response type
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Snapshot response type
type Snapshot struct {
	TakenAt   time.Time  `json:"taken_at"`
	Teams     []Team     `json:"teams"`
	Matches   []Match    `json:"matches"`
	Locations []Location `json:"locations"`
}

// Peer response type
type Peer struct {
	ID       string    `json:"id"`
	LastSeen time.Time `json:"last_seen"`
	Digest   string    `json:"digest"`
	Stale    bool      `json:"stale"`
}

// ChallengeResult response type
type ChallengeResult struct {
	Seed uint64 `json:"seed"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printIdentity(id Identity) {
	fmt.Printf("Peer: %s\n", id.PeerID)
	fmt.Printf("Fingerprint: %s\n", id.Fingerprint)
	if id.OwnTeam != "" {
		fmt.Printf("Team: %s\n", id.OwnTeam)
	} else {
		fmt.Println("Team: (none)")
	}
}

func (o *Output) printTeam(t Team) {
	fmt.Printf("Team: %s (%s)\n", t.Name, t.ID)
	fmt.Printf("Owner: %s\n", t.Owner)
	fmt.Printf("Home: %s\n", t.HomeLocation)
	fmt.Printf("Status: %s\n", t.Status)
	fmt.Printf("Roster (%d):\n", len(t.Roster))
	for _, p := range t.Roster {
		fmt.Printf("  - %s (overall %d)\n", p.Name, p.Overall)
	}
}

func (o *Output) printMatch(m Match) {
	fmt.Printf("Match: %s\n", m.ID)
	fmt.Printf("Status: %s\n", m.Status)
	fmt.Printf("Score: %s %d - %d %s\n", m.HomeTeam, m.HomeScore, m.AwayScore, m.AwayTeam)
	if len(m.Events) > 0 {
		fmt.Printf("Events (%d):\n", len(m.Events))
		for _, e := range m.Events {
			if e.Points > 0 {
				fmt.Printf("  Q%d #%03d %s %s +%d (%d-%d)\n",
					e.Quarter, e.Seq, e.Kind, e.Player, e.Points, e.HomeScore, e.AwayScore)
			} else {
				fmt.Printf("  Q%d #%03d %s %s (%d-%d)\n",
					e.Quarter, e.Seq, e.Kind, e.Player, e.HomeScore, e.AwayScore)
			}
		}
	}
}

func (o *Output) printSnapshot(s Snapshot) {
	fmt.Printf("World at %s\n", s.TakenAt.Format(time.RFC3339))
	fmt.Printf("Teams (%d):\n", len(s.Teams))
	for _, t := range s.Teams {
		fmt.Printf("  - %s (%s) owner=%s status=%s\n", t.Name, t.ID, t.Owner, t.Status)
	}
	fmt.Printf("Matches (%d):\n", len(s.Matches))
	for _, m := range s.Matches {
		fmt.Printf("  - %s: %s %d - %d %s [%s]\n",
			m.ID, m.HomeTeam, m.HomeScore, m.AwayScore, m.AwayTeam, m.Status)
	}
	fmt.Printf("Locations: %d\n", len(s.Locations))
}

func (o *Output) printPeers(peers []Peer) {
	fmt.Printf("Peers (%d):\n", len(peers))
	for _, p := range peers {
		staleStr := ""
		if p.Stale {
			staleStr = " [stale]"
		}
		fmt.Printf("  - %s last seen %s digest=%s%s\n",
			p.ID, p.LastSeen.Format(time.RFC3339), p.Digest, staleStr)
	}
}

func (o *Output) printChallengeResult(c ChallengeResult) {
	fmt.Printf("Challenge sent, seed: %d\n", c.Seed)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
