package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/spacedunk/spacedunk/internal/model"
	"github.com/spacedunk/spacedunk/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) TestLoadWithoutSaveReturnsNoState() {
	_, err := s.storage.Load(s.ctx)
	s.Require().ErrorIs(err, model.ErrNoState)
}

func (s *StorageSuite) TestSaveLoadRoundTrip() {
	state := &storage.PersistedState{
		SchemaVersion: storage.SchemaVersion,
		PeerID:        "peer-1",
		OwnTeam:       "team-1",
		Updates: []model.StateUpdate{
			{Kind: model.KindTeam, EntityID: "team-1", Version: 1, Signer: "peer-1"},
		},
	}
	s.Require().NoError(s.storage.Save(s.ctx, state))

	loaded, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(state.PeerID, loaded.PeerID)
	s.Equal(state.OwnTeam, loaded.OwnTeam)
	s.Require().Len(loaded.Updates, 1)
}

func (s *StorageSuite) TestLoadedStateIsACopy() {
	state := &storage.PersistedState{
		SchemaVersion: storage.SchemaVersion,
		PeerID:        "peer-1",
		Updates: []model.StateUpdate{
			{Kind: model.KindTeam, EntityID: "team-1", Version: 1, Signer: "peer-1"},
		},
	}
	s.Require().NoError(s.storage.Save(s.ctx, state))

	loaded, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	loaded.Updates[0].Version = 99

	again, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), again.Updates[0].Version)
}
