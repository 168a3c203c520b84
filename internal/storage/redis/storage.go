// Package redis is a Redis-backed implementation of the storage interface,
// for peers that want their state to survive the host the process runs on.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spacedunk/spacedunk/internal/model"
	"github.com/spacedunk/spacedunk/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	peerID model.PeerID
	cfg    Config
}

// New creates a new Redis storage instance for the given peer
func New(cfg Config, peerID model.PeerID) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client, peerID: peerID, cfg: cfg}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, peerID model.PeerID) *Storage {
	return &Storage{client: client, peerID: peerID}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Save(ctx context.Context, state *storage.PersistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return s.client.Set(ctx, stateKey(s.peerID), data, 0).Err()
}

func (s *Storage) Load(ctx context.Context) (*storage.PersistedState, error) {
	data, err := s.client.Get(ctx, stateKey(s.peerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNoState
		}
		return nil, err
	}

	var state storage.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: decode state: %v", model.ErrCorruptState, err)
	}
	if state.SchemaVersion != storage.SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d",
			model.ErrCorruptState, state.SchemaVersion, storage.SchemaVersion)
	}
	return &state, nil
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}
