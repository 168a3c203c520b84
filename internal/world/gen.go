package world

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/spacedunk/spacedunk/internal/model"
)

// DefaultGalaxySize is the number of locations generated from the galaxy seed
const DefaultGalaxySize = 24

var firstNames = []string{
	"Astra", "Bolt", "Cass", "Drex", "Echo", "Faye", "Gorm", "Hale",
	"Iris", "Jax", "Kilo", "Luna", "Mace", "Nova", "Onyx", "Pax",
	"Quill", "Rook", "Sol", "Trix", "Umbra", "Vex", "Wren", "Zephyr",
}

var lastNames = []string{
	"Arcwright", "Blackhole", "Cometrider", "Dustrunner", "Eventide",
	"Farlight", "Gravwell", "Hollowstar", "Ionstorm", "Jettison",
	"Kessler", "Lightbender", "Moonbreaker", "Nebulark", "Orbitfall",
	"Pulsar", "Quasar", "Redshift", "Starforge", "Tidelock",
	"Ultraviolet", "Voidwalker", "Warpline", "Zeroday",
}

var locationNames = []string{
	"Kepler Reach", "Tycho Verge", "Oort Hollow", "Cygnus Drift",
	"Vega Shoals", "Rigel Spur", "Altair Banks", "Deneb Cradle",
	"Lyra Shelf", "Perseid Run", "Halley Strand", "Ceres Landing",
	"Europa Docks", "Titan Yards", "Io Furnace", "Callisto Vault",
	"Phobos Gate", "Deimos Rest", "Enceladus Well", "Triton Quay",
	"Charon Crossing", "Eris Verge", "Makemake Point", "Sedna Anchorage",
}

func seededRNG(tag string, seed uint64) *rand.ChaCha8 {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(tag))
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return rand.NewChaCha8(key)
}

func deterministicID(rng *rand.ChaCha8) string {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		// ChaCha8's Read never fails; keep the signature honest anyway.
		return uuid.Nil.String()
	}
	return id.String()
}

// GenerateGalaxy produces the fixed set of locations every peer derives
// from the shared galaxy seed. Identical seeds yield identical galaxies.
func GenerateGalaxy(seed uint64, size int) []model.GalaxyLocation {
	if size <= 0 || size > len(locationNames) {
		size = DefaultGalaxySize
	}
	rng := seededRNG("galaxy", seed)
	locations := make([]model.GalaxyLocation, 0, size)
	for i := 0; i < size; i++ {
		locations = append(locations, model.GalaxyLocation{
			ID:   model.LocationID(deterministicID(rng)),
			Name: locationNames[i],
			X:    int(rng.Uint64() % 1000),
			Y:    int(rng.Uint64() % 1000),
		})
	}
	return locations
}

// GenerateTeam builds a team and its seeded roster for the owning peer.
// Player ids, names and skills are all drawn from a ChaCha8 stream keyed by
// the generation seed, so regenerating with the same seed reproduces the
// same crew.
func GenerateTeam(name string, owner model.PeerID, home model.LocationID, seed uint64, rosterSize int) (model.Team, []model.Player) {
	if rosterSize < model.MinRosterSize {
		rosterSize = model.MinRosterSize
	}
	rng := seededRNG("team", seed)

	team := model.Team{
		ID:           model.TeamID(deterministicID(rng)),
		Name:         name,
		Owner:        owner,
		HomeLocation: home,
		Status:       model.TeamStatusActive,
	}

	players := make([]model.Player, 0, rosterSize)
	for i := 0; i < rosterSize; i++ {
		playerSeed := rng.Uint64()
		player := model.Player{
			ID:    model.PlayerID(deterministicID(rng)),
			Name:  playerName(rng),
			Team:  team.ID,
			Owner: owner,
			Seed:  playerSeed,
			Skills: model.Skills{
				Shooting:   skillRoll(rng),
				Defense:    skillRoll(rng),
				Passing:    skillRoll(rng),
				Rebounding: skillRoll(rng),
				Stamina:    skillRoll(rng),
			},
		}
		players = append(players, player)
		team.Roster = append(team.Roster, player.ID)
	}
	return team, players
}

func playerName(rng *rand.ChaCha8) string {
	first := firstNames[rng.Uint64()%uint64(len(firstNames))]
	last := lastNames[rng.Uint64()%uint64(len(lastNames))]
	return fmt.Sprintf("%s %s", first, last)
}

// skillRoll sums two dice so mid ratings are more common than extremes
func skillRoll(rng *rand.ChaCha8) int {
	a := int(rng.Uint64()%uint64(model.MaxSkill/2)) + 1
	b := int(rng.Uint64() % uint64(model.MaxSkill/2))
	return clampSkill(a + b)
}

func clampSkill(v int) int {
	if v < model.MinSkill {
		return model.MinSkill
	}
	if v > model.MaxSkill {
		return model.MaxSkill
	}
	return v
}
