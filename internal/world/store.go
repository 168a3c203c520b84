// Package world holds the in-memory authoritative replica of the shared
// world: teams, players, matches and galaxy locations. All mutation flows
// through Apply, which enforces signatures, ownership and per-entity
// version monotonicity. The store is confined to the scheduler loop and is
// not safe for concurrent use; consumers read through snapshots.
package world

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/model"
)

type record struct {
	update model.StateUpdate
}

// Store is the local replica of the world state
type Store struct {
	logger *slog.Logger

	teams     map[model.TeamID]model.Team
	players   map[model.PlayerID]model.Player
	matches   map[model.MatchID]model.Match
	locations map[model.LocationID]model.GalaxyLocation

	// records retains the last applied signed update per entity so
	// reconciliation can re-gossip originals without re-signing them.
	records map[model.EntityKey]record
}

// NewStore creates an empty store seeded with the shared galaxy
func NewStore(galaxy []model.GalaxyLocation, logger *slog.Logger) *Store {
	locations := make(map[model.LocationID]model.GalaxyLocation, len(galaxy))
	for _, loc := range galaxy {
		locations[loc.ID] = loc
	}
	return &Store{
		logger:    logger,
		teams:     make(map[model.TeamID]model.Team),
		players:   make(map[model.PlayerID]model.Player),
		matches:   make(map[model.MatchID]model.Match),
		locations: locations,
		records:   make(map[model.EntityKey]record),
	}
}

// Apply validates a signed state update and merges it into the replica.
// It returns nil when the update was applied, ErrStaleVersion when it was
// superseded (not a fault, callers log and drop), and a validation error
// otherwise. Acceptance replaces the entity value, version and retained
// update atomically.
func (s *Store) Apply(update model.StateUpdate) error {
	signed, err := update.SignedBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedUpdate, err)
	}
	if !identity.Verify(signed, update.Signature, update.PublicKey, update.Signer) {
		return model.ErrInvalidSignature
	}

	key := update.Key()
	if existing, ok := s.records[key]; ok {
		entry := model.VersionEntry{Version: existing.update.Version, Signer: existing.update.Signer}
		if !entry.Supersedes(update.Version, update.Signer) {
			return model.ErrStaleVersion
		}
	}

	switch update.Kind {
	case model.KindTeam:
		return s.applyTeam(key, update)
	case model.KindPlayer:
		return s.applyPlayer(key, update)
	case model.KindMatch:
		return s.applyMatch(key, update)
	default:
		return fmt.Errorf("%w: unknown entity kind %q", model.ErrMalformedUpdate, update.Kind)
	}
}

func (s *Store) applyTeam(key model.EntityKey, update model.StateUpdate) error {
	var team model.Team
	if err := json.Unmarshal(update.Payload, &team); err != nil {
		return fmt.Errorf("%w: team payload: %v", model.ErrMalformedUpdate, err)
	}
	if string(team.ID) != update.EntityID {
		return fmt.Errorf("%w: payload id %q does not match entity id %q",
			model.ErrMalformedUpdate, team.ID, update.EntityID)
	}
	if existing, ok := s.teams[team.ID]; ok {
		if existing.Owner != update.Signer {
			return model.ErrNotOwner
		}
		if existing.Status == model.TeamStatusDisbanded {
			return model.ErrTeamDisbanded
		}
	} else if team.Owner != update.Signer {
		return model.ErrNotOwner
	}
	s.teams[team.ID] = team
	s.records[key] = record{update: update}
	return nil
}

func (s *Store) applyPlayer(key model.EntityKey, update model.StateUpdate) error {
	var player model.Player
	if err := json.Unmarshal(update.Payload, &player); err != nil {
		return fmt.Errorf("%w: player payload: %v", model.ErrMalformedUpdate, err)
	}
	if string(player.ID) != update.EntityID {
		return fmt.Errorf("%w: payload id %q does not match entity id %q",
			model.ErrMalformedUpdate, player.ID, update.EntityID)
	}
	if existing, ok := s.players[player.ID]; ok {
		if existing.Owner != update.Signer {
			return model.ErrNotOwner
		}
	} else if player.Owner != update.Signer {
		return model.ErrNotOwner
	}
	s.players[player.ID] = player
	s.records[key] = record{update: update}
	return nil
}

func (s *Store) applyMatch(key model.EntityKey, update model.StateUpdate) error {
	var match model.Match
	if err := json.Unmarshal(update.Payload, &match); err != nil {
		return fmt.Errorf("%w: match payload: %v", model.ErrMalformedUpdate, err)
	}
	if string(match.ID) != update.EntityID {
		return fmt.Errorf("%w: payload id %q does not match entity id %q",
			model.ErrMalformedUpdate, match.ID, update.EntityID)
	}

	// A match may be written by the owner of either participating team;
	// both derive the identical completion independently and the version
	// tie-break picks the same winner everywhere.
	if !s.signerParticipates(match, update.Signer) {
		if _, homeKnown := s.teams[match.HomeTeam]; !homeKnown {
			if _, awayKnown := s.teams[match.AwayTeam]; !awayKnown {
				return model.ErrUnknownEntity
			}
		}
		return model.ErrNotOwner
	}

	// A completed match's log and scores are immutable; later updates may
	// not rewrite the outcome.
	if existing, ok := s.matches[match.ID]; ok && existing.Status == model.MatchStatusCompleted {
		if !sameOutcome(existing, match) {
			return model.ErrMatchCompleted
		}
	}

	s.matches[match.ID] = match
	s.records[key] = record{update: update}
	return nil
}

func (s *Store) signerParticipates(match model.Match, signer model.PeerID) bool {
	if home, ok := s.teams[match.HomeTeam]; ok && home.Owner == signer {
		return true
	}
	if away, ok := s.teams[match.AwayTeam]; ok && away.Owner == signer {
		return true
	}
	return false
}

func sameOutcome(a, b model.Match) bool {
	if a.HomeScore != b.HomeScore || a.AwayScore != b.AwayScore || len(a.Events) != len(b.Events) {
		return false
	}
	for i := range a.Events {
		if a.Events[i] != b.Events[i] {
			return false
		}
	}
	return true
}

// NextVersion returns the version the local peer should use for its next
// update to the entity
func (s *Store) NextVersion(key model.EntityKey) uint64 {
	if existing, ok := s.records[key]; ok {
		return existing.update.Version + 1
	}
	return 1
}

// Team returns a team by id
func (s *Store) Team(id model.TeamID) (model.Team, error) {
	team, ok := s.teams[id]
	if !ok {
		return model.Team{}, model.ErrTeamNotFound
	}
	return team, nil
}

// Match returns a match by id
func (s *Store) Match(id model.MatchID) (model.Match, error) {
	match, ok := s.matches[id]
	if !ok {
		return model.Match{}, model.ErrMatchNotFound
	}
	return match, nil
}

// TeamByOwner returns the active team owned by the given peer, if any
func (s *Store) TeamByOwner(owner model.PeerID) (model.Team, bool) {
	for _, team := range s.teams {
		if team.Owner == owner && team.Status == model.TeamStatusActive {
			return team, true
		}
	}
	return model.Team{}, false
}

// RosterFor resolves a team's ordered roster from the replica
func (s *Store) RosterFor(id model.TeamID) (model.Roster, error) {
	team, ok := s.teams[id]
	if !ok {
		return model.Roster{}, model.ErrTeamNotFound
	}
	roster := model.Roster{TeamID: id, Players: make([]model.Player, 0, len(team.Roster))}
	for _, pid := range team.Roster {
		player, ok := s.players[pid]
		if !ok {
			return model.Roster{}, model.ErrPlayerNotFound
		}
		roster.Players = append(roster.Players, player)
	}
	return roster, nil
}

// Snapshot returns an immutable deep copy of the current world state
func (s *Store) Snapshot() *model.WorldSnapshot {
	snap := &model.WorldSnapshot{
		TakenAt:   time.Now().UTC(),
		Teams:     make(map[model.TeamID]model.Team, len(s.teams)),
		Players:   make(map[model.PlayerID]model.Player, len(s.players)),
		Matches:   make(map[model.MatchID]model.Match, len(s.matches)),
		Locations: make(map[model.LocationID]model.GalaxyLocation, len(s.locations)),
		Versions:  s.VersionVector(),
	}
	for id, team := range s.teams {
		team.Roster = append([]model.PlayerID(nil), team.Roster...)
		snap.Teams[id] = team
	}
	for id, player := range s.players {
		snap.Players[id] = player
	}
	for id, match := range s.matches {
		match.Events = append([]model.MatchEvent(nil), match.Events...)
		snap.Matches[id] = match
	}
	for id, loc := range s.locations {
		snap.Locations[id] = loc
	}
	return snap
}

// VersionVector returns the stored version and winning signer per entity
func (s *Store) VersionVector() model.VersionVector {
	vector := make(model.VersionVector, len(s.records))
	for key, rec := range s.records {
		vector[key.String()] = model.VersionEntry{
			Version: rec.update.Version,
			Signer:  rec.update.Signer,
		}
	}
	return vector
}

// UpdatesSince returns retained updates the remote vector has not seen, in
// a deterministic order
func (s *Store) UpdatesSince(remote model.VersionVector) []model.StateUpdate {
	var missing []model.StateUpdate
	for key, rec := range s.records {
		entry, ok := remote[key.String()]
		if !ok || entry.Supersedes(rec.update.Version, rec.update.Signer) {
			missing = append(missing, rec.update)
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Kind != missing[j].Kind {
			return kindOrder(missing[i].Kind) < kindOrder(missing[j].Kind)
		}
		return missing[i].EntityID < missing[j].EntityID
	})
	return missing
}

// RetainedUpdates returns every retained signed update, teams before
// players before matches so a replay re-validates cleanly
func (s *Store) RetainedUpdates() []model.StateUpdate {
	updates := make([]model.StateUpdate, 0, len(s.records))
	for _, rec := range s.records {
		updates = append(updates, rec.update)
	}
	sort.Slice(updates, func(i, j int) bool {
		if updates[i].Kind != updates[j].Kind {
			return kindOrder(updates[i].Kind) < kindOrder(updates[j].Kind)
		}
		return updates[i].EntityID < updates[j].EntityID
	})
	return updates
}

// Restore replays persisted updates into an empty store. Any update that
// fails validation makes the whole restore fail: a peer refuses to run
// from an unverifiable snapshot rather than silently resetting.
func (s *Store) Restore(updates []model.StateUpdate) error {
	ordered := append([]model.StateUpdate(nil), updates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return kindOrder(ordered[i].Kind) < kindOrder(ordered[j].Kind)
	})
	for _, update := range ordered {
		if err := s.Apply(update); err != nil {
			return fmt.Errorf("%w: replay %s: %v", model.ErrCorruptState, update.Key(), err)
		}
	}
	return nil
}

func kindOrder(kind model.EntityKind) int {
	switch kind {
	case model.KindTeam:
		return 0
	case model.KindPlayer:
		return 1
	case model.KindMatch:
		return 2
	default:
		return 3
	}
}
