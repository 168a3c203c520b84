package model

// Skills are the rating attributes that drive a player's match performance.
// Values are integers in [MinSkill, MaxSkill]; integer arithmetic keeps the
// simulation bit-identical across platforms.
type Skills struct {
	Shooting   int `json:"shooting"`
	Defense    int `json:"defense"`
	Passing    int `json:"passing"`
	Rebounding int `json:"rebounding"`
	Stamina    int `json:"stamina"`
}

// Skill rating bounds
const (
	MinSkill = 1
	MaxSkill = 20
)

// Player is a single roster member, owned by exactly one team at a time
type Player struct {
	ID     PlayerID `json:"id"`
	Name   string   `json:"name"`
	Team   TeamID   `json:"team"`
	Owner  PeerID   `json:"owner"`
	Seed   uint64   `json:"seed"`
	Skills Skills   `json:"skills"`
}

// OverallRating is a single summary rating used for display and shooter weighting
func (p Player) OverallRating() int {
	s := p.Skills
	return (s.Shooting + s.Defense + s.Passing + s.Rebounding + s.Stamina) / 5
}
