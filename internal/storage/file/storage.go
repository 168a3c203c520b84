// Package file persists peer state as gzip-compressed JSON under the data
// directory, with a blake2b checksum so corruption is detected at load
// time instead of being replayed into the world store.
package file

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"

	"github.com/spacedunk/spacedunk/internal/model"
	"github.com/spacedunk/spacedunk/internal/storage"
)

// StateFileName is the world state file under the data directory
const StateFileName = "world.json.gz"

// envelope wraps the persisted body with its integrity checksum
type envelope struct {
	Checksum string          `json:"checksum"`
	Body     json.RawMessage `json:"body"`
}

// Storage is a file-backed implementation of the storage interface
type Storage struct {
	path string
}

// New creates a file storage rooted at the given data directory
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Storage{path: filepath.Join(dataDir, StateFileName)}, nil
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Save(ctx context.Context, state *storage.PersistedState) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	sum := blake2b.Sum256(body)
	wrapped, err := json.Marshal(envelope{
		Checksum: hex.EncodeToString(sum[:]),
		Body:     body,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(wrapped); err != nil {
		return fmt.Errorf("compress state: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress state: %w", err)
	}

	// Write-then-rename keeps the previous state intact if the save dies
	// midway.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Storage) Load(ctx context.Context) (*storage.PersistedState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrNoState
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: not a gzip file: %v", model.ErrCorruptState, err)
	}
	wrapped, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", model.ErrCorruptState, err)
	}

	var env envelope
	if err := json.Unmarshal(wrapped, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", model.ErrCorruptState, err)
	}
	sum := blake2b.Sum256(env.Body)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", model.ErrCorruptState)
	}

	var state storage.PersistedState
	if err := json.Unmarshal(env.Body, &state); err != nil {
		return nil, fmt.Errorf("%w: decode state: %v", model.ErrCorruptState, err)
	}
	if state.SchemaVersion != storage.SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d",
			model.ErrCorruptState, state.SchemaVersion, storage.SchemaVersion)
	}
	return &state, nil
}

func (s *Storage) Close() error {
	return nil
}
