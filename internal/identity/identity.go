// Package identity holds the local peer's ed25519 keypair and provides
// signing and verification for all gossiped state. The peer id is derived
// from the public key, so a signer claim can always be checked against the
// key that produced the signature.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/blake2b"

	"github.com/spacedunk/spacedunk/internal/model"
)

// KeyFileName is the keypair file stored under the peer's data directory
const KeyFileName = "peer.key"

// Identity is the local peer's keypair
type Identity struct {
	priv   crypto.PrivKey
	pub    crypto.PubKey
	peerID peer.ID
}

// Generate creates a fresh ed25519 identity
func Generate() (*Identity, error) {
	priv, pub, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	return &Identity{priv: priv, pub: pub, peerID: id}, nil
}

// Load reads a previously saved identity from the key file
func Load(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	priv, err := crypto.UnmarshalPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal private key: %w", err)
	}
	pub := priv.GetPublic()
	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	return &Identity{priv: priv, pub: pub, peerID: id}, nil
}

// Save writes the private key to the given path, readable only by the owner
func (i *Identity) Save(path string) error {
	raw, err := crypto.MarshalPrivateKey(i.priv)
	if err != nil {
		return fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// LoadOrCreate loads the identity from dataDir, generating and persisting a
// new one on first run so the peer keeps the same id across restarts.
func LoadOrCreate(dataDir string, logger *slog.Logger) (*Identity, error) {
	path := filepath.Join(dataDir, KeyFileName)
	id, err := Load(path)
	if err == nil {
		logger.Info("loaded peer identity", slog.String("peer", string(id.PeerID())))
		return id, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	id, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := id.Save(path); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}
	logger.Info("generated peer identity", slog.String("peer", string(id.PeerID())))
	return id, nil
}

// PeerID returns the public-key-derived peer id
func (i *Identity) PeerID() model.PeerID {
	return model.PeerID(i.peerID.String())
}

// PrivKey exposes the private key for the libp2p host
func (i *Identity) PrivKey() crypto.PrivKey {
	return i.priv
}

// PublicKeyBytes returns the marshaled public key carried on wire messages
func (i *Identity) PublicKeyBytes() ([]byte, error) {
	return crypto.MarshalPublicKey(i.pub)
}

// Sign signs the payload with the local private key
func (i *Identity) Sign(payload []byte) ([]byte, error) {
	return i.priv.Sign(payload)
}

// Fingerprint returns a short digest of the public key for log lines
func (i *Identity) Fingerprint() string {
	raw, err := crypto.MarshalPublicKey(i.pub)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:4])
}

// Verify checks a signature over payload against the marshaled public key
// and confirms the key actually derives the claimed signer id. Any failure
// (malformed key, wrong key, bad signature) reports false, never an error:
// verification fails closed.
func Verify(payload, signature, publicKey []byte, claimed model.PeerID) bool {
	pub, err := crypto.UnmarshalPublicKey(publicKey)
	if err != nil {
		return false
	}
	id, err := peer.IDFromPublicKey(pub)
	if err != nil || id.String() != string(claimed) {
		return false
	}
	ok, err := pub.Verify(payload, signature)
	return err == nil && ok
}
