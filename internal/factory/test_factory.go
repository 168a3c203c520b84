package factory

import (
	"time"

	"github.com/spacedunk/spacedunk/internal/config"
	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/storage/memory"
	"github.com/spacedunk/spacedunk/internal/testutil"
)

// TestApp extends App with test-specific handles
type TestApp struct {
	*App

	Bus *testutil.Bus
}

// TestConfig returns a peer configuration with short loop timings for tests
func TestConfig() config.Config {
	return config.Config{
		Topic:             "spacedunk-test",
		Storage:           config.StorageMemory,
		GalaxySeed:        1,
		HeartbeatInterval: 20 * time.Millisecond,
		ReconcileInterval: 50 * time.Millisecond,
		PersistInterval:   50 * time.Millisecond,
		StaleAfter:        200 * time.Millisecond,
		RosterSize:        5,
	}
}

// NewTestApp creates a peer wired over the loopback bus with in-memory
// storage. Several test apps sharing one bus form a test network.
func NewTestApp(bus *testutil.Bus) (*TestApp, error) {
	id, err := identity.Generate()
	if err != nil {
		return nil, err
	}

	app := NewWithTransport(TestConfig(), id, memory.New(), bus.Join(id.PeerID()), testutil.NopLogger())
	return &TestApp{App: app, Bus: bus}, nil
}
