package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/model"
	"github.com/spacedunk/spacedunk/internal/storage"
	"github.com/spacedunk/spacedunk/internal/storage/memory"
	"github.com/spacedunk/spacedunk/internal/testutil"
	"github.com/spacedunk/spacedunk/internal/world"
)

const (
	waitFor = 5 * time.Second
	tick    = 10 * time.Millisecond
)

// peer bundles everything one simulated peer needs in a test
type peer struct {
	id      *identity.Identity
	store   *world.Store
	persist storage.Store
	sched   *Scheduler
	cancel  context.CancelFunc
	done    chan error
}

type SchedulerSuite struct {
	suite.Suite
	bus *testutil.Bus
	ctx context.Context
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.bus = testutil.NewBus()
	s.ctx = context.Background()
}

func testConfig() Config {
	return Config{
		HeartbeatInterval: 20 * time.Millisecond,
		ReconcileInterval: 50 * time.Millisecond,
		PersistInterval:   50 * time.Millisecond,
		StaleAfter:        200 * time.Millisecond,
		RosterSize:        model.MinRosterSize,
	}
}

// startPeer builds and runs a scheduler on the shared bus
func (s *SchedulerSuite) startPeer(persist storage.Store) *peer {
	id, err := identity.Generate()
	s.Require().NoError(err)
	return s.startPeerWithIdentity(id, persist)
}

func (s *SchedulerSuite) startPeerWithIdentity(id *identity.Identity, persist storage.Store) *peer {
	store := world.NewStore(world.GenerateGalaxy(1, 4), testutil.NopLogger())
	sched := New(id, store, s.bus.Join(id.PeerID()), persist, testConfig(), testutil.NopLogger())

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	return &peer{id: id, store: store, persist: persist, sched: sched, cancel: cancel, done: done}
}

func (s *SchedulerSuite) stopPeer(p *peer) {
	p.cancel()
	s.Require().NoError(<-p.done)
}

func (s *SchedulerSuite) TestTeamPropagatesBetweenPeers() {
	a := s.startPeer(memory.New())
	b := s.startPeer(memory.New())
	defer s.stopPeer(a)
	defer s.stopPeer(b)

	team, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)
	s.Len(team.Roster, model.MinRosterSize)

	s.Require().Eventually(func() bool {
		snap := b.sched.Snapshot()
		got, ok := snap.Teams[team.ID]
		return ok && len(snap.Players) == model.MinRosterSize && got.Name == "Rockets"
	}, waitFor, tick)
}

func (s *SchedulerSuite) TestSecondTeamRejected() {
	a := s.startPeer(memory.New())
	defer s.stopPeer(a)

	_, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)

	_, err = a.sched.CreateTeam(s.ctx, "Comets")
	s.Require().ErrorIs(err, model.ErrOwnTeamExists)
}

func (s *SchedulerSuite) TestProposeMatchRequiresOwnTeam() {
	a := s.startPeer(memory.New())
	defer s.stopPeer(a)

	_, err := a.sched.ProposeMatch(s.ctx, "team-x", "team-y")
	s.Require().ErrorIs(err, model.ErrNoOwnTeam)
}

func (s *SchedulerSuite) TestMatchSimulatedIdenticallyOnBothPeers() {
	a := s.startPeer(memory.New())
	b := s.startPeer(memory.New())
	defer s.stopPeer(a)
	defer s.stopPeer(b)

	teamA, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)
	teamB, err := b.sched.CreateTeam(s.ctx, "Comets")
	s.Require().NoError(err)

	// Wait until both sides hold both full rosters, so each one can run
	// the simulation on its own.
	s.Require().Eventually(func() bool {
		aSnap, bSnap := a.sched.Snapshot(), b.sched.Snapshot()
		_, aHasB := aSnap.Teams[teamB.ID]
		_, bHasA := bSnap.Teams[teamA.ID]
		full := 2 * model.MinRosterSize
		return aHasB && bHasA && len(aSnap.Players) == full && len(bSnap.Players) == full
	}, waitFor, tick)

	_, err = a.sched.ProposeMatch(s.ctx, teamA.ID, teamB.ID)
	s.Require().NoError(err)

	var matchID model.MatchID
	s.Require().Eventually(func() bool {
		for id, m := range a.sched.Snapshot().Matches {
			if m.Status == model.MatchStatusCompleted {
				matchID = id
				return true
			}
		}
		return false
	}, waitFor, tick)

	s.Require().Eventually(func() bool {
		m, ok := b.sched.Snapshot().Matches[matchID]
		return ok && m.Status == model.MatchStatusCompleted
	}, waitFor, tick)

	matchA := a.sched.Snapshot().Matches[matchID]
	matchB := b.sched.Snapshot().Matches[matchID]
	s.Equal(matchA.HomeScore, matchB.HomeScore)
	s.Equal(matchA.AwayScore, matchB.AwayScore)
	s.Equal(matchA.Events, matchB.Events)
	s.NotEqual(matchA.HomeScore, matchA.AwayScore)
}

func (s *SchedulerSuite) TestLateJoinerCatchesUpViaSync() {
	a := s.startPeer(memory.New())
	defer s.stopPeer(a)

	team, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)

	// C joins after the team already exists; its initial sync request and
	// the periodic reconcile rounds pull the missing updates over.
	c := s.startPeer(memory.New())
	defer s.stopPeer(c)

	s.Require().Eventually(func() bool {
		_, ok := c.sched.Snapshot().Teams[team.ID]
		return ok
	}, waitFor, tick)
}

func (s *SchedulerSuite) TestHeartbeatsPopulatePeers() {
	a := s.startPeer(memory.New())
	b := s.startPeer(memory.New())
	defer s.stopPeer(a)
	defer s.stopPeer(b)

	s.Require().Eventually(func() bool {
		for _, p := range a.sched.Peers() {
			if p.Peer == b.id.PeerID() && !p.Stale {
				return true
			}
		}
		return false
	}, waitFor, tick)
}

func (s *SchedulerSuite) TestStaleUpdateIgnoredWithoutError() {
	a := s.startPeer(memory.New())
	b := s.startPeer(memory.New())
	defer s.stopPeer(a)
	defer s.stopPeer(b)

	team, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		_, ok := b.sched.Snapshot().Teams[team.ID]
		return ok
	}, waitFor, tick)

	// Reconcile rounds keep re-gossiping retained updates; replicas must
	// not regress or error from the duplicates.
	time.Sleep(150 * time.Millisecond)
	got, ok := b.sched.Snapshot().Teams[team.ID]
	s.Require().True(ok)
	s.Equal("Rockets", got.Name)
}

func (s *SchedulerSuite) TestDisbandPropagates() {
	a := s.startPeer(memory.New())
	b := s.startPeer(memory.New())
	defer s.stopPeer(a)
	defer s.stopPeer(b)

	team, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)
	s.Require().Eventually(func() bool {
		_, ok := b.sched.Snapshot().Teams[team.ID]
		return ok
	}, waitFor, tick)

	s.Require().NoError(a.sched.DisbandTeam(s.ctx))

	s.Require().Eventually(func() bool {
		got, ok := b.sched.Snapshot().Teams[team.ID]
		return ok && got.Status == model.TeamStatusDisbanded
	}, waitFor, tick)

	// Disbanding frees the peer to found a new team.
	_, err = a.sched.CreateTeam(s.ctx, "Comets")
	s.Require().NoError(err)
}

func (s *SchedulerSuite) TestStateSurvivesRestart() {
	persist := memory.New()
	a := s.startPeer(persist)

	team, err := a.sched.CreateTeam(s.ctx, "Rockets")
	s.Require().NoError(err)
	s.stopPeer(a)

	// Same identity and storage, fresh world store: the shutdown persist
	// pass must bring the team back with its version intact.
	restarted := s.startPeerWithIdentity(a.id, persist)
	defer s.stopPeer(restarted)

	s.Require().Eventually(func() bool {
		got, ok := restarted.sched.Snapshot().Teams[team.ID]
		return ok && got.Name == "Rockets"
	}, waitFor, tick)

	vec := restarted.sched.Snapshot().Versions
	s.Equal(uint64(1), vec[model.TeamKey(team.ID).String()].Version)

	_, err = restarted.sched.CreateTeam(s.ctx, "Comets")
	s.Require().ErrorIs(err, model.ErrOwnTeamExists)
}
