// Package scheduler runs the peer's single control loop. The loop is the
// only writer to the world store: it drains inbound gossip, runs the match
// simulation on proposals, signs and publishes locally-initiated updates,
// and periodically heartbeats, reconciles and persists. Everything else in
// the process reads the world through atomically-published snapshots.
package scheduler

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/spacedunk/spacedunk/internal/gossip"
	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/model"
	"github.com/spacedunk/spacedunk/internal/sim"
	"github.com/spacedunk/spacedunk/internal/storage"
	"github.com/spacedunk/spacedunk/internal/world"
)

// Config holds control loop timings
type Config struct {
	HeartbeatInterval time.Duration
	ReconcileInterval time.Duration
	PersistInterval   time.Duration
	// StaleAfter marks peers silent longer than this as stale; their
	// last-known state is retained.
	StaleAfter time.Duration
	// RosterSize is the roster generated for a new team
	RosterSize int
}

// DefaultConfig returns the default loop timings
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 5 * time.Second,
		ReconcileInterval: 60 * time.Second,
		PersistInterval:   30 * time.Second,
		StaleAfter:        30 * time.Second,
		RosterSize:        7,
	}
}

type actionKind int

const (
	actionCreateTeam actionKind = iota
	actionDisbandTeam
	actionProposeMatch
)

type actionReply struct {
	team model.Team
	seed uint64
	err  error
}

type action struct {
	kind     actionKind
	teamName string
	home     model.TeamID
	away     model.TeamID
	reply    chan actionReply
}

type presenceEntry struct {
	lastSeen time.Time
	digest   string
}

// Scheduler multiplexes gossip, ticks and local actions over the world store
type Scheduler struct {
	id        *identity.Identity
	store     *world.Store
	transport gossip.Transport
	persist   storage.Store
	cfg       Config
	logger    *slog.Logger

	actions chan action

	// ownTeam is loop-confined after Run starts
	ownTeam model.TeamID

	// presence is loop-confined; peers is its published copy
	presence map[model.PeerID]presenceEntry

	snapshot atomic.Pointer[model.WorldSnapshot]
	peers    atomic.Pointer[[]model.PeerStatus]
}

// New creates a scheduler over the given store, transport and persistence
func New(id *identity.Identity, store *world.Store, transport gossip.Transport, persist storage.Store, cfg Config, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		id:        id,
		store:     store,
		transport: transport,
		persist:   persist,
		cfg:       cfg,
		logger:    logger,
		actions:   make(chan action, 16),
		presence:  make(map[model.PeerID]presenceEntry),
	}
	s.snapshot.Store(store.Snapshot())
	empty := []model.PeerStatus{}
	s.peers.Store(&empty)
	return s
}

// Snapshot returns the latest published world snapshot; it never blocks on
// network activity
func (s *Scheduler) Snapshot() *model.WorldSnapshot {
	return s.snapshot.Load()
}

// Peers returns the last known liveness of remote peers
func (s *Scheduler) Peers() []model.PeerStatus {
	return *s.peers.Load()
}

// OwnTeam returns the local team id, if one exists
func (s *Scheduler) OwnTeam() model.TeamID {
	snap := s.Snapshot()
	for _, team := range snap.Teams {
		if team.Owner == s.id.PeerID() && team.Status == model.TeamStatusActive {
			return team.ID
		}
	}
	return ""
}

// CreateTeam generates and announces a new team owned by the local peer
func (s *Scheduler) CreateTeam(ctx context.Context, name string) (model.Team, error) {
	reply, err := s.submit(ctx, action{kind: actionCreateTeam, teamName: name})
	return reply.team, err
}

// DisbandTeam marks the local team disbanded (terminal, never deleted)
func (s *Scheduler) DisbandTeam(ctx context.Context) error {
	_, err := s.submit(ctx, action{kind: actionDisbandTeam})
	return err
}

// ProposeMatch generates and signs a match seed between the two teams and
// broadcasts the proposal; the local peer simulates it immediately
func (s *Scheduler) ProposeMatch(ctx context.Context, home, away model.TeamID) (uint64, error) {
	reply, err := s.submit(ctx, action{kind: actionProposeMatch, home: home, away: away})
	return reply.seed, err
}

func (s *Scheduler) submit(ctx context.Context, a action) (actionReply, error) {
	a.reply = make(chan actionReply, 1)
	select {
	case s.actions <- a:
	case <-ctx.Done():
		return actionReply{}, ctx.Err()
	}
	select {
	case reply := <-a.reply:
		return reply, reply.err
	case <-ctx.Done():
		return actionReply{}, ctx.Err()
	}
}

// Run loads persisted state and drives the control loop until the context
// is cancelled. It returns an error only for unrecoverable conditions
// (corrupt persisted state); per-message failures are contained here.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.restore(ctx); err != nil {
		return err
	}
	s.publishSnapshot()

	// Let peers that were up before us fill the gaps, and re-announce what
	// we own.
	s.announceOwn(ctx)
	s.sendSyncRequest(ctx)

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	reconcile := time.NewTicker(s.cfg.ReconcileInterval)
	defer reconcile.Stop()
	persist := time.NewTicker(s.cfg.PersistInterval)
	defer persist.Stop()

	for {
		select {
		case <-ctx.Done():
			s.persistNow(context.Background())
			return nil

		case env := <-s.transport.Messages():
			s.handleEnvelope(ctx, env)

		case a := <-s.actions:
			a.reply <- s.handleAction(ctx, a)

		case <-heartbeat.C:
			s.sendHeartbeat(ctx)
			s.publishPeers(time.Now())

		case <-reconcile.C:
			s.sendSyncRequest(ctx)

		case <-persist.C:
			s.persistNow(ctx)
		}
	}
}

func (s *Scheduler) restore(ctx context.Context) error {
	state, err := s.persist.Load(ctx)
	if errors.Is(err, model.ErrNoState) {
		s.logger.Info("starting with empty world state")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}
	if err := s.store.Restore(state.Updates); err != nil {
		return err
	}
	s.ownTeam = state.OwnTeam
	s.logger.Info("restored world state",
		slog.Int("updates", len(state.Updates)),
		slog.Time("saved_at", state.SavedAt))
	return nil
}

// handleEnvelope dispatches one inbound message. The kind set is closed;
// the transport already dropped anything unknown or missing its payload.
func (s *Scheduler) handleEnvelope(ctx context.Context, env model.Envelope) {
	switch env.Kind {
	case model.MessageStateUpdate:
		s.applyRemote(*env.Update)
	case model.MessageMatchProposal:
		s.handleProposal(ctx, *env.Proposal)
	case model.MessageHeartbeat:
		s.handleHeartbeat(*env.Heartbeat)
	case model.MessageSyncRequest:
		s.handleSyncRequest(ctx, *env.Sync)
	}
}

func (s *Scheduler) applyRemote(update model.StateUpdate) {
	err := s.store.Apply(update)
	switch {
	case err == nil:
		s.publishSnapshot()
	case errors.Is(err, model.ErrStaleVersion):
		// Duplicates and out-of-order arrivals land here; nothing is wrong.
		s.logger.Debug("dropped superseded update", slog.String("entity", update.Key().String()))
	default:
		s.logger.Warn("rejected update",
			slog.String("entity", update.Key().String()),
			slog.String("signer", string(update.Signer)),
			slog.String("error", err.Error()))
	}
}

// handleProposal independently simulates the proposed match and gossips
// the derived completion. Every honest peer holding both rosters derives
// the identical update, so no voting is needed for agreement.
func (s *Scheduler) handleProposal(ctx context.Context, proposal model.MatchProposal) {
	signed, err := proposal.SignedBytes()
	if err != nil || !identity.Verify(signed, proposal.Signature, proposal.PublicKey, proposal.Proposer) {
		s.logger.Warn("dropping proposal with bad signature", slog.String("match", string(proposal.MatchID)))
		return
	}
	if existing, err := s.store.Match(proposal.MatchID); err == nil && existing.Status == model.MatchStatusCompleted {
		return
	}

	home, err := s.store.RosterFor(proposal.HomeTeam)
	if err != nil {
		s.logger.Warn("cannot simulate proposal, home roster unknown",
			slog.String("match", string(proposal.MatchID)), slog.String("error", err.Error()))
		return
	}
	away, err := s.store.RosterFor(proposal.AwayTeam)
	if err != nil {
		s.logger.Warn("cannot simulate proposal, away roster unknown",
			slog.String("match", string(proposal.MatchID)), slog.String("error", err.Error()))
		return
	}
	if !s.proposerParticipates(proposal, home, away) {
		s.logger.Warn("dropping proposal from non-participant",
			slog.String("match", string(proposal.MatchID)),
			slog.String("proposer", string(proposal.Proposer)))
		return
	}

	result, err := sim.Simulate(home, away, proposal.Seed)
	if err != nil {
		s.logger.Warn("proposal rejected by simulation",
			slog.String("match", string(proposal.MatchID)), slog.String("error", err.Error()))
		return
	}

	match := model.Match{
		ID:        proposal.MatchID,
		HomeTeam:  proposal.HomeTeam,
		AwayTeam:  proposal.AwayTeam,
		Seed:      proposal.Seed,
		Status:    model.MatchStatusCompleted,
		HomeScore: result.HomeScore,
		AwayScore: result.AwayScore,
		Events:    result.Events,
	}
	update, err := s.signUpdate(model.KindMatch, string(match.ID), match)
	if err != nil {
		s.logger.Error("sign match update", slog.String("error", err.Error()))
		return
	}
	s.applyAndPublish(ctx, update)
	s.logger.Info("match completed",
		slog.String("match", string(match.ID)),
		slog.Int("home_score", match.HomeScore),
		slog.Int("away_score", match.AwayScore))
}

func (s *Scheduler) proposerParticipates(proposal model.MatchProposal, home, away model.Roster) bool {
	for _, teamID := range []model.TeamID{home.TeamID, away.TeamID} {
		if team, err := s.store.Team(teamID); err == nil && team.Owner == proposal.Proposer {
			return true
		}
	}
	return false
}

func (s *Scheduler) handleHeartbeat(hb model.Heartbeat) {
	signed, err := hb.SignedBytes()
	if err != nil || !identity.Verify(signed, hb.Signature, hb.PublicKey, hb.Peer) {
		s.logger.Debug("dropping heartbeat with bad signature", slog.String("peer", string(hb.Peer)))
		return
	}
	s.presence[hb.Peer] = presenceEntry{lastSeen: time.Now(), digest: hb.Digest}
}

func (s *Scheduler) handleSyncRequest(ctx context.Context, req model.SyncRequest) {
	missing := s.store.UpdatesSince(req.Vector)
	if len(missing) == 0 {
		return
	}
	s.logger.Info("answering sync request",
		slog.String("peer", string(req.Peer)),
		slog.Int("updates", len(missing)))
	for _, update := range missing {
		s.publishUpdate(ctx, update)
	}
}

func (s *Scheduler) handleAction(ctx context.Context, a action) actionReply {
	switch a.kind {
	case actionCreateTeam:
		team, err := s.createTeam(ctx, a.teamName)
		return actionReply{team: team, err: err}
	case actionDisbandTeam:
		return actionReply{err: s.disbandTeam(ctx)}
	case actionProposeMatch:
		seed, err := s.proposeMatch(ctx, a.home, a.away)
		return actionReply{seed: seed, err: err}
	default:
		return actionReply{err: fmt.Errorf("unknown action %d", a.kind)}
	}
}

func (s *Scheduler) createTeam(ctx context.Context, name string) (model.Team, error) {
	if _, ok := s.store.TeamByOwner(s.id.PeerID()); ok {
		return model.Team{}, model.ErrOwnTeamExists
	}
	seed, err := randomSeed()
	if err != nil {
		return model.Team{}, err
	}

	home := s.pickHomeLocation(seed)
	team, players := world.GenerateTeam(name, s.id.PeerID(), home, seed, s.cfg.RosterSize)

	teamUpdate, err := s.signUpdate(model.KindTeam, string(team.ID), team)
	if err != nil {
		return model.Team{}, err
	}
	s.applyAndPublish(ctx, teamUpdate)
	for _, player := range players {
		playerUpdate, err := s.signUpdate(model.KindPlayer, string(player.ID), player)
		if err != nil {
			return model.Team{}, err
		}
		s.applyAndPublish(ctx, playerUpdate)
	}

	s.ownTeam = team.ID
	s.logger.Info("created team",
		slog.String("team", string(team.ID)),
		slog.String("name", team.Name),
		slog.Int("players", len(players)))
	return team, nil
}

func (s *Scheduler) disbandTeam(ctx context.Context) error {
	team, ok := s.store.TeamByOwner(s.id.PeerID())
	if !ok {
		return model.ErrNoOwnTeam
	}
	team.Status = model.TeamStatusDisbanded
	update, err := s.signUpdate(model.KindTeam, string(team.ID), team)
	if err != nil {
		return err
	}
	s.applyAndPublish(ctx, update)
	s.ownTeam = ""
	return nil
}

func (s *Scheduler) proposeMatch(ctx context.Context, home, away model.TeamID) (uint64, error) {
	ownTeam, ok := s.store.TeamByOwner(s.id.PeerID())
	if !ok {
		return 0, model.ErrNoOwnTeam
	}
	if ownTeam.ID != home && ownTeam.ID != away {
		return 0, model.ErrNotOwner
	}
	if _, err := s.store.RosterFor(home); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidRoster, err)
	}
	if _, err := s.store.RosterFor(away); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrInvalidRoster, err)
	}

	seed, err := randomSeed()
	if err != nil {
		return 0, err
	}
	proposal := model.MatchProposal{
		MatchID:  model.MatchID(uuid.NewString()),
		HomeTeam: home,
		AwayTeam: away,
		Seed:     seed,
		Proposer: s.id.PeerID(),
		SentAt:   time.Now().UnixMilli(),
	}
	signed, err := proposal.SignedBytes()
	if err != nil {
		return 0, err
	}
	proposal.Signature, err = s.id.Sign(signed)
	if err != nil {
		return 0, err
	}
	proposal.PublicKey, err = s.id.PublicKeyBytes()
	if err != nil {
		return 0, err
	}

	s.publishEnvelope(ctx, model.Envelope{
		V:        model.EnvelopeVersion,
		Kind:     model.MessageMatchProposal,
		From:     s.id.PeerID(),
		SentAt:   proposal.SentAt,
		Proposal: &proposal,
	})
	// Simulate locally right away; remote peers do the same on receipt.
	s.handleProposal(ctx, proposal)
	return seed, nil
}

func (s *Scheduler) pickHomeLocation(seed uint64) model.LocationID {
	snap := s.store.Snapshot()
	if len(snap.Locations) == 0 {
		return ""
	}
	ids := make([]model.LocationID, 0, len(snap.Locations))
	for id := range snap.Locations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[seed%uint64(len(ids))]
}

// signUpdate builds and signs a state update for the entity at its next
// local version
func (s *Scheduler) signUpdate(kind model.EntityKind, entityID string, payload any) (model.StateUpdate, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.StateUpdate{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	update := model.StateUpdate{
		Kind:     kind,
		EntityID: entityID,
		Version:  s.store.NextVersion(model.EntityKey{Kind: kind, ID: entityID}),
		Signer:   s.id.PeerID(),
		Payload:  raw,
		SentAt:   time.Now().UnixMilli(),
	}
	signed, err := update.SignedBytes()
	if err != nil {
		return model.StateUpdate{}, err
	}
	update.Signature, err = s.id.Sign(signed)
	if err != nil {
		return model.StateUpdate{}, err
	}
	update.PublicKey, err = s.id.PublicKeyBytes()
	if err != nil {
		return model.StateUpdate{}, err
	}
	return update, nil
}

func (s *Scheduler) applyAndPublish(ctx context.Context, update model.StateUpdate) {
	if err := s.store.Apply(update); err != nil && !errors.Is(err, model.ErrStaleVersion) {
		s.logger.Error("apply local update",
			slog.String("entity", update.Key().String()),
			slog.String("error", err.Error()))
		return
	}
	s.publishSnapshot()
	s.publishUpdate(ctx, update)
}

func (s *Scheduler) publishUpdate(ctx context.Context, update model.StateUpdate) {
	s.publishEnvelope(ctx, model.Envelope{
		V:      model.EnvelopeVersion,
		Kind:   model.MessageStateUpdate,
		From:   s.id.PeerID(),
		SentAt: time.Now().UnixMilli(),
		Update: &update,
	})
}

func (s *Scheduler) publishEnvelope(ctx context.Context, env model.Envelope) {
	if err := s.transport.Publish(ctx, env); err != nil {
		s.logger.Warn("publish failed",
			slog.String("kind", string(env.Kind)),
			slog.String("error", err.Error()))
	}
}

// announceOwn re-gossips the entities this peer owns so reconnecting
// neighbors see them without waiting for a sync round
func (s *Scheduler) announceOwn(ctx context.Context) {
	for _, update := range s.store.RetainedUpdates() {
		if update.Signer == s.id.PeerID() {
			s.publishUpdate(ctx, update)
		}
	}
}

func (s *Scheduler) sendHeartbeat(ctx context.Context) {
	hb := model.Heartbeat{
		Peer:   s.id.PeerID(),
		Digest: s.vectorDigest(),
		SentAt: time.Now().UnixMilli(),
	}
	signed, err := hb.SignedBytes()
	if err != nil {
		return
	}
	hb.Signature, err = s.id.Sign(signed)
	if err != nil {
		return
	}
	hb.PublicKey, err = s.id.PublicKeyBytes()
	if err != nil {
		return
	}
	s.publishEnvelope(ctx, model.Envelope{
		V:         model.EnvelopeVersion,
		Kind:      model.MessageHeartbeat,
		From:      s.id.PeerID(),
		SentAt:    hb.SentAt,
		Heartbeat: &hb,
	})
}

func (s *Scheduler) sendSyncRequest(ctx context.Context) {
	s.publishEnvelope(ctx, model.Envelope{
		V:      model.EnvelopeVersion,
		Kind:   model.MessageSyncRequest,
		From:   s.id.PeerID(),
		SentAt: time.Now().UnixMilli(),
		Sync: &model.SyncRequest{
			Peer:   s.id.PeerID(),
			Vector: s.store.VersionVector(),
			SentAt: time.Now().UnixMilli(),
		},
	})
}

// vectorDigest summarizes the version vector; json marshaling sorts map
// keys, so the digest is identical for identical vectors on every peer
func (s *Scheduler) vectorDigest() string {
	raw, err := json.Marshal(s.store.VersionVector())
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}

func (s *Scheduler) persistNow(ctx context.Context) {
	state := &storage.PersistedState{
		SchemaVersion: storage.SchemaVersion,
		PeerID:        s.id.PeerID(),
		OwnTeam:       s.ownTeam,
		SavedAt:       time.Now().UTC(),
		Updates:       s.store.RetainedUpdates(),
	}
	if err := s.persist.Save(ctx, state); err != nil {
		s.logger.Error("persist world state", slog.String("error", err.Error()))
	}
}

func (s *Scheduler) publishSnapshot() {
	s.snapshot.Store(s.store.Snapshot())
}

func (s *Scheduler) publishPeers(now time.Time) {
	statuses := make([]model.PeerStatus, 0, len(s.presence))
	for peer, entry := range s.presence {
		statuses = append(statuses, model.PeerStatus{
			Peer:     peer,
			LastSeen: entry.lastSeen,
			Digest:   entry.digest,
			Stale:    now.Sub(entry.lastSeen) > s.cfg.StaleAfter,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Peer < statuses[j].Peer })
	s.peers.Store(&statuses)
}

func randomSeed() (uint64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("generate seed: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
