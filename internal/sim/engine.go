// Package sim is the deterministic match simulation engine. Simulate is a
// pure function of its inputs: the play-by-play is driven by a ChaCha8
// stream seeded from the match seed and rosters, all probabilities are
// integer per-mille tables derived from player skills, and no wall-clock
// time or unseeded randomness is ever consulted. Two peers holding the same
// rosters and seed produce byte-identical event logs.
package sim

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"golang.org/x/crypto/blake2b"

	"github.com/spacedunk/spacedunk/internal/model"
)

const (
	quarters               = 4
	basePossessions        = 22
	possessionJitter       = 5
	starters               = model.MinRosterSize
	maxOvertimePossessions = 40

	// MaxMatchEvents bounds the event log; the possession structure keeps
	// real games well under it.
	MaxMatchEvents = 2048
)

// Simulate plays a full match between the two rosters using the given seed
// and returns the ordered event log with final scores. It returns
// ErrInvalidRoster if either roster is too small to field a lineup.
func Simulate(home, away model.Roster, seed uint64) (model.MatchResult, error) {
	if err := validateRoster(home); err != nil {
		return model.MatchResult{}, err
	}
	if err := validateRoster(away); err != nil {
		return model.MatchResult{}, err
	}

	rng := rand.NewChaCha8(expandSeed(seed, home, away))
	g := &game{
		rng:  rng,
		home: side{roster: home, lineup: home.Players[:starters]},
		away: side{roster: away, lineup: away.Players[:starters]},
	}
	g.play()

	return model.MatchResult{
		HomeScore: g.homeScore,
		AwayScore: g.awayScore,
		Events:    g.events,
	}, nil
}

// expandSeed digests the agreed seed together with both team ids and the
// ordered player ids into the 32-byte ChaCha8 key, mirroring how the match
// identity pins the random stream.
func expandSeed(seed uint64, home, away model.Roster) [32]byte {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	h.Write([]byte(home.TeamID))
	h.Write([]byte(away.TeamID))
	for _, p := range home.Players {
		h.Write([]byte(p.ID))
	}
	for _, p := range away.Players {
		h.Write([]byte(p.ID))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func validateRoster(r model.Roster) error {
	if len(r.Players) < model.MinRosterSize {
		return fmt.Errorf("%w: team %s has %d players, need %d",
			model.ErrInvalidRoster, r.TeamID, len(r.Players), model.MinRosterSize)
	}
	for _, p := range r.Players {
		if p.ID == "" {
			return fmt.Errorf("%w: team %s roster has a player without an id",
				model.ErrInvalidRoster, r.TeamID)
		}
	}
	return nil
}

type side struct {
	roster model.Roster
	lineup []model.Player
}

func (s side) id() model.TeamID { return s.roster.TeamID }

func (s side) skillSum(f func(model.Skills) int) int {
	total := 0
	for _, p := range s.lineup {
		total += f(p.Skills)
	}
	return total
}

type game struct {
	rng       *rand.ChaCha8
	home      side
	away      side
	homeScore int
	awayScore int
	seq       int
	quarter   int
	events    []model.MatchEvent
}

func (g *game) play() {
	homeBall := g.jumpBall()
	for q := 1; q <= quarters; q++ {
		g.quarter = q
		possessions := basePossessions + g.intn(possessionJitter)
		for i := 0; i < possessions; i++ {
			if homeBall {
				g.possession(g.home, g.away)
			} else {
				g.possession(g.away, g.home)
			}
			homeBall = !homeBall
		}
		g.record(model.MatchEvent{Quarter: q, Kind: model.EventQuarterEnd})
	}
	// Ties play bounded sudden-death possessions; if the score is somehow
	// still level after the cap, a last draw decides it so the match always
	// terminates with a winner.
	for i := 0; g.homeScore == g.awayScore && i < maxOvertimePossessions; i++ {
		if homeBall {
			g.possession(g.home, g.away)
		} else {
			g.possession(g.away, g.home)
		}
		homeBall = !homeBall
	}
	if g.homeScore == g.awayScore {
		if g.intn(2) == 0 {
			g.homeScore++
		} else {
			g.awayScore++
		}
	}
	g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventFinal})
}

func (g *game) jumpBall() bool {
	g.quarter = 1
	homeReb := g.home.skillSum(func(s model.Skills) int { return s.Rebounding })
	awayReb := g.away.skillSum(func(s model.Skills) int { return s.Rebounding })
	homeWins := g.intn(homeReb+awayReb) < homeReb
	winner := g.away
	if homeWins {
		winner = g.home
	}
	g.record(model.MatchEvent{Quarter: 1, Kind: model.EventJumpBall, Team: winner.id()})
	return homeWins
}

// possession runs one offensive trip: a turnover check, then a shot, with
// at most one putback after an offensive rebound, so every trip appends a
// bounded number of events.
func (g *game) possession(off, def side) {
	defSteal := def.skillSum(func(s model.Skills) int { return s.Defense })
	offPass := off.skillSum(func(s model.Skills) int { return s.Passing })

	if g.roll(clamp(60+defSteal*2-offPass*2, 20, 250)) {
		if g.roll(500) {
			thief := g.weightedPick(def.lineup, func(s model.Skills) int { return s.Defense })
			g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventSteal, Team: def.id(), Player: thief.ID})
		} else {
			g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventTurnover, Team: off.id()})
		}
		return
	}

	if g.shoot(off, def, false) {
		return
	}
	// Offensive rebound grants a single second-chance attempt.
	offReb := off.skillSum(func(s model.Skills) int { return s.Rebounding })
	defReb := def.skillSum(func(s model.Skills) int { return s.Rebounding })
	if g.roll(clamp(250+(offReb-defReb)*3, 100, 400)) {
		rebounder := g.weightedPick(off.lineup, func(s model.Skills) int { return s.Rebounding })
		g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventRebound, Team: off.id(), Player: rebounder.ID})
		g.shoot(off, def, true)
		return
	}
	rebounder := g.weightedPick(def.lineup, func(s model.Skills) int { return s.Rebounding })
	g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventRebound, Team: def.id(), Player: rebounder.ID})
}

// shoot attempts one field goal and reports whether it scored
func (g *game) shoot(off, def side, putback bool) bool {
	shooter := g.weightedPick(off.lineup, func(s model.Skills) int { return s.Shooting })
	defender := g.weightedPick(def.lineup, func(s model.Skills) int { return s.Defense })

	three := !putback && g.roll(clamp(150+shooter.Skills.Shooting*10, 100, 450))
	points := 2
	makeP := clamp(330+shooter.Skills.Shooting*14-defender.Skills.Defense*6, 50, 850)
	if three {
		points = 3
		makeP = clamp(210+shooter.Skills.Shooting*12-defender.Skills.Defense*5, 30, 700)
	}

	if !g.roll(makeP) {
		if g.roll(clamp(defender.Skills.Defense*4, 20, 120)) {
			g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventBlock, Team: def.id(), Player: defender.ID})
		}
		g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventShotMiss, Team: off.id(), Player: shooter.ID})
		return false
	}

	if off.id() == g.home.id() {
		g.homeScore += points
	} else {
		g.awayScore += points
	}
	g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventShotMade, Team: off.id(), Player: shooter.ID, Points: points})

	offPass := off.skillSum(func(s model.Skills) int { return s.Passing })
	if !putback && g.roll(clamp(250+offPass*3, 200, 650)) {
		passer := g.weightedPick(off.lineup, func(s model.Skills) int { return s.Passing })
		if passer.ID != shooter.ID {
			g.record(model.MatchEvent{Quarter: g.quarter, Kind: model.EventAssist, Team: off.id(), Player: passer.ID})
		}
	}
	return true
}

func (g *game) record(ev model.MatchEvent) {
	if len(g.events) >= MaxMatchEvents {
		return
	}
	ev.Seq = g.seq
	ev.HomeScore = g.homeScore
	ev.AwayScore = g.awayScore
	g.seq++
	g.events = append(g.events, ev)
}

// roll draws once and reports success with probability perMille/1000
func (g *game) roll(perMille int) bool {
	return g.intn(1000) < perMille
}

func (g *game) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.rng.Uint64() % uint64(n))
}

// weightedPick selects a lineup player with probability proportional to the
// given skill, in roster order so the draw is deterministic.
func (g *game) weightedPick(lineup []model.Player, f func(model.Skills) int) model.Player {
	total := 0
	for _, p := range lineup {
		total += f(p.Skills)
	}
	if total <= 0 {
		return lineup[0]
	}
	n := g.intn(total)
	for _, p := range lineup {
		n -= f(p.Skills)
		if n < 0 {
			return p
		}
	}
	return lineup[len(lineup)-1]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
