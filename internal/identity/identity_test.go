package identity_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/testutil"
)

type IdentitySuite struct {
	suite.Suite
	id *identity.Identity
}

func TestIdentitySuite(t *testing.T) {
	suite.Run(t, new(IdentitySuite))
}

func (s *IdentitySuite) SetupTest() {
	id, err := identity.Generate()
	s.Require().NoError(err)
	s.id = id
}

func (s *IdentitySuite) TestSignVerifyRoundTrip() {
	payload := []byte("state update bytes")

	sig, err := s.id.Sign(payload)
	s.Require().NoError(err)
	pub, err := s.id.PublicKeyBytes()
	s.Require().NoError(err)

	s.True(identity.Verify(payload, sig, pub, s.id.PeerID()))
}

func (s *IdentitySuite) TestVerifyFailsClosed() {
	payload := []byte("state update bytes")
	sig, err := s.id.Sign(payload)
	s.Require().NoError(err)
	pub, err := s.id.PublicKeyBytes()
	s.Require().NoError(err)

	// Tampered payload.
	s.False(identity.Verify([]byte("different bytes"), sig, pub, s.id.PeerID()))

	// Tampered signature.
	badSig := append([]byte(nil), sig...)
	badSig[0] ^= 0xff
	s.False(identity.Verify(payload, badSig, pub, s.id.PeerID()))

	// Claimed id that does not derive from the key.
	other, err := identity.Generate()
	s.Require().NoError(err)
	s.False(identity.Verify(payload, sig, pub, other.PeerID()))

	// Key bytes from a different peer.
	otherPub, err := other.PublicKeyBytes()
	s.Require().NoError(err)
	s.False(identity.Verify(payload, sig, otherPub, other.PeerID()))

	// Garbage key bytes.
	s.False(identity.Verify(payload, sig, []byte("not a key"), s.id.PeerID()))
}

func (s *IdentitySuite) TestSaveLoadRoundTrip() {
	path := filepath.Join(s.T().TempDir(), identity.KeyFileName)
	s.Require().NoError(s.id.Save(path))

	loaded, err := identity.Load(path)
	s.Require().NoError(err)
	s.Equal(s.id.PeerID(), loaded.PeerID())

	// The reloaded key signs payloads the original id verifies.
	payload := []byte("after restart")
	sig, err := loaded.Sign(payload)
	s.Require().NoError(err)
	pub, err := s.id.PublicKeyBytes()
	s.Require().NoError(err)
	s.True(identity.Verify(payload, sig, pub, s.id.PeerID()))
}

func (s *IdentitySuite) TestLoadOrCreateIsStable() {
	dir := s.T().TempDir()
	logger := testutil.NopLogger()

	first, err := identity.LoadOrCreate(dir, logger)
	s.Require().NoError(err)
	second, err := identity.LoadOrCreate(dir, logger)
	s.Require().NoError(err)

	s.Equal(first.PeerID(), second.PeerID())
}

func (s *IdentitySuite) TestFingerprintIsShortAndStable() {
	fp := s.id.Fingerprint()
	s.Len(fp, 8)
	s.Equal(fp, s.id.Fingerprint())
}
