package redis

import (
	"fmt"

	"github.com/spacedunk/spacedunk/internal/model"
)

// Key prefix for all persisted peer data
const keyPrefix = "spacedunk"

// stateKey returns the Redis key for a peer's persisted world state.
// Keys are per-peer so several peers can share one Redis instance.
func stateKey(peerID model.PeerID) string {
	return fmt.Sprintf("%s:state:%s", keyPrefix, peerID)
}
