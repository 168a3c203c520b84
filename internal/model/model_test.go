package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ModelSuite struct {
	suite.Suite
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, new(ModelSuite))
}

func (s *ModelSuite) TestSupersedes() {
	stored := VersionEntry{Version: 3, Signer: "peer-m"}

	cases := []struct {
		name    string
		version uint64
		signer  PeerID
		wins    bool
	}{
		{"higher version wins", 4, "peer-z", true},
		{"lower version loses", 2, "peer-a", false},
		{"equal version smaller signer wins", 3, "peer-a", true},
		{"equal version larger signer loses", 3, "peer-z", false},
		{"equal version same signer loses", 3, "peer-m", false},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.Equal(tc.wins, stored.Supersedes(tc.version, tc.signer))
		})
	}
}

func (s *ModelSuite) TestSignedBytesExcludesSignature() {
	update := StateUpdate{
		Kind:     KindTeam,
		EntityID: "team-1",
		Version:  2,
		Signer:   "peer-1",
		Payload:  []byte(`{"id":"team-1"}`),
		SentAt:   1700000000,
	}

	unsigned, err := update.SignedBytes()
	s.Require().NoError(err)

	update.Signature = []byte("sig")
	update.PublicKey = []byte("key")
	signed, err := update.SignedBytes()
	s.Require().NoError(err)

	s.Equal(unsigned, signed)
}

func (s *ModelSuite) TestSignedBytesCoversVersion() {
	update := StateUpdate{Kind: KindTeam, EntityID: "team-1", Version: 2, Signer: "peer-1"}
	a, err := update.SignedBytes()
	s.Require().NoError(err)

	update.Version = 3
	b, err := update.SignedBytes()
	s.Require().NoError(err)

	s.NotEqual(a, b)
}

func (s *ModelSuite) TestProposalSignedBytesExcludesSignature() {
	proposal := MatchProposal{
		MatchID:  "match-1",
		HomeTeam: "team-1",
		AwayTeam: "team-2",
		Seed:     99,
		Proposer: "peer-1",
		SentAt:   1700000000,
	}

	unsigned, err := proposal.SignedBytes()
	s.Require().NoError(err)

	proposal.Signature = []byte("sig")
	proposal.PublicKey = []byte("key")
	signed, err := proposal.SignedBytes()
	s.Require().NoError(err)

	s.Equal(unsigned, signed)
}

func (s *ModelSuite) TestEnvelopeToleratesUnknownFields() {
	raw := `{"v":2,"kind":"state_update","from":"peer-1","sent_at":1,"update":{"kind":"team","entity_id":"team-1","version":1,"signer":"peer-1"},"future_field":{"x":1}}`

	var env Envelope
	s.Require().NoError(json.Unmarshal([]byte(raw), &env))
	s.Equal(MessageStateUpdate, env.Kind)
	s.Require().NotNil(env.Update)
	s.Equal("team-1", env.Update.EntityID)
}

func (s *ModelSuite) TestEntityKeys() {
	s.Equal("team/team-1", TeamKey("team-1").String())
	s.Equal("player/p-1", PlayerKey("p-1").String())
	s.Equal("match/m-1", MatchKey("m-1").String())
	s.Equal(TeamKey("team-1"), StateUpdate{Kind: KindTeam, EntityID: "team-1"}.Key())
}

func (s *ModelSuite) TestOverallRating() {
	p := Player{Skills: Skills{Shooting: 10, Defense: 12, Passing: 8, Rebounding: 14, Stamina: 16}}
	s.Equal(12, p.OverallRating())
}
