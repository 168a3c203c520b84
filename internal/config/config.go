// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backend names accepted by SPACEDUNK_STORAGE
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all environment-driven settings for a peer process
type Config struct {
	// Networking
	ListenPort int      `env:"SPACEDUNK_LISTEN_PORT" envDefault:"37202"`
	Topic      string   `env:"SPACEDUNK_TOPIC" envDefault:"spacedunk-world-v1"`
	SeedAddrs  []string `env:"SPACEDUNK_SEED_ADDRS" envSeparator:","`
	EnableMDNS bool     `env:"SPACEDUNK_MDNS" envDefault:"true"`

	// HTTP API
	HTTPAddr string `env:"SPACEDUNK_HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// Storage
	DataDir  string `env:"SPACEDUNK_DATA_DIR" envDefault:".spacedunk"`
	Storage  string `env:"SPACEDUNK_STORAGE" envDefault:"file"`
	RedisURL string `env:"SPACEDUNK_REDIS_URL" envDefault:"redis://localhost:6379"`

	// World generation. Peers must share the same galaxy seed to agree on
	// the static location map.
	GalaxySeed uint64 `env:"SPACEDUNK_GALAXY_SEED" envDefault:"2049"`

	// Loop timings
	HeartbeatInterval time.Duration `env:"SPACEDUNK_HEARTBEAT_INTERVAL" envDefault:"5s"`
	ReconcileInterval time.Duration `env:"SPACEDUNK_RECONCILE_INTERVAL" envDefault:"60s"`
	PersistInterval   time.Duration `env:"SPACEDUNK_PERSIST_INTERVAL" envDefault:"30s"`
	StaleAfter        time.Duration `env:"SPACEDUNK_STALE_AFTER" envDefault:"30s"`

	RosterSize int `env:"SPACEDUNK_ROSTER_SIZE" envDefault:"7"`

	LogLevel string `env:"SPACEDUNK_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment and validates it
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express
func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen port %d out of range", c.ListenPort)
	}
	if c.RosterSize < 5 {
		return fmt.Errorf("roster size %d below minimum lineup of 5", c.RosterSize)
	}
	return nil
}
