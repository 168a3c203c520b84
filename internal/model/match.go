package model

// MatchStatus represents the current phase of a match
type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
)

// MatchEventKind identifies the type of play-by-play event
type MatchEventKind string

const (
	EventJumpBall   MatchEventKind = "jump_ball"
	EventShotMade   MatchEventKind = "shot_made"
	EventShotMiss   MatchEventKind = "shot_miss"
	EventAssist     MatchEventKind = "assist"
	EventRebound    MatchEventKind = "rebound"
	EventSteal      MatchEventKind = "steal"
	EventTurnover   MatchEventKind = "turnover"
	EventBlock      MatchEventKind = "block"
	EventQuarterEnd MatchEventKind = "quarter_end"
	EventFinal      MatchEventKind = "final"
)

// MatchEvent is one entry of a match's ordered play-by-play log
type MatchEvent struct {
	Seq       int            `json:"seq"`
	Quarter   int            `json:"quarter"`
	Kind      MatchEventKind `json:"kind"`
	Team      TeamID         `json:"team,omitempty"`
	Player    PlayerID       `json:"player,omitempty"`
	Points    int            `json:"points,omitempty"`
	HomeScore int            `json:"home_score"`
	AwayScore int            `json:"away_score"`
}

// Match is a simulated game between two teams. Once Completed its event
// log and scores are immutable and identical on every peer that computed it.
type Match struct {
	ID        MatchID      `json:"id"`
	HomeTeam  TeamID       `json:"home_team"`
	AwayTeam  TeamID       `json:"away_team"`
	Seed      uint64       `json:"seed"`
	Status    MatchStatus  `json:"status"`
	HomeScore int          `json:"home_score"`
	AwayScore int          `json:"away_score"`
	Events    []MatchEvent `json:"events,omitempty"`
}

// Participants returns both team ids
func (m Match) Participants() []TeamID {
	return []TeamID{m.HomeTeam, m.AwayTeam}
}

// MatchResult is the outcome of a deterministic simulation run
type MatchResult struct {
	HomeScore int          `json:"home_score"`
	AwayScore int          `json:"away_score"`
	Events    []MatchEvent `json:"events"`
}
