// Package factory wires a complete peer from configuration: identity,
// persistence, world store, gossip transport, scheduler and HTTP surface.
package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/spacedunk/spacedunk/internal/api"
	"github.com/spacedunk/spacedunk/internal/config"
	"github.com/spacedunk/spacedunk/internal/gossip"
	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/scheduler"
	"github.com/spacedunk/spacedunk/internal/storage"
	filestorage "github.com/spacedunk/spacedunk/internal/storage/file"
	memorystorage "github.com/spacedunk/spacedunk/internal/storage/memory"
	redisstorage "github.com/spacedunk/spacedunk/internal/storage/redis"
	"github.com/spacedunk/spacedunk/internal/world"
)

// App contains all wired peer components
type App struct {
	Identity  *identity.Identity
	Storage   storage.Store
	World     *world.Store
	Transport gossip.Transport
	Scheduler *scheduler.Scheduler
	Handler   http.Handler

	logger *slog.Logger
}

// New creates a peer with all dependencies wired from configuration. The
// context governs the gossip node's lifetime.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	id, err := identity.LoadOrCreate(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	store, err := newStorage(cfg, id)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	gossipCfg := gossip.DefaultConfig()
	gossipCfg.ListenPort = cfg.ListenPort
	gossipCfg.Topic = cfg.Topic
	gossipCfg.SeedAddrs = cfg.SeedAddrs
	gossipCfg.EnableMDNS = cfg.EnableMDNS
	transport, err := gossip.NewNode(ctx, id, gossipCfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("start gossip: %w", err)
	}

	return NewWithTransport(cfg, id, store, transport, logger), nil
}

// NewWithTransport wires a peer over an existing transport and storage.
// Tests use this with a loopback bus and in-memory storage.
func NewWithTransport(cfg config.Config, id *identity.Identity, store storage.Store, transport gossip.Transport, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	galaxy := world.GenerateGalaxy(cfg.GalaxySeed, world.DefaultGalaxySize)
	worldStore := world.NewStore(galaxy, logger)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.HeartbeatInterval = cfg.HeartbeatInterval
	schedCfg.ReconcileInterval = cfg.ReconcileInterval
	schedCfg.PersistInterval = cfg.PersistInterval
	schedCfg.StaleAfter = cfg.StaleAfter
	schedCfg.RosterSize = cfg.RosterSize
	sched := scheduler.New(id, worldStore, transport, store, schedCfg, logger)

	handler := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		World:       sched,
		PeerID:      id.PeerID(),
		Fingerprint: id.Fingerprint(),
	})

	return &App{
		Identity:  id,
		Storage:   store,
		World:     worldStore,
		Transport: transport,
		Scheduler: sched,
		Handler:   handler,
		logger:    logger,
	}
}

// Close releases the transport and storage
func (a *App) Close() error {
	err := a.Transport.Close()
	if cerr := a.Storage.Close(); err == nil {
		err = cerr
	}
	return err
}

func newStorage(cfg config.Config, id *identity.Identity) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageFile:
		return filestorage.New(cfg.DataDir)
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		return redisstorage.New(redisCfg, id.PeerID())
	case config.StorageMemory:
		return memorystorage.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
