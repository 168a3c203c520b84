// Package gossip wraps peer discovery and publish/subscribe messaging for
// the shared world topic. The libp2p node is the production transport; the
// scheduler only sees the Transport interface so tests can run whole peers
// on an in-process loopback bus.
package gossip

import (
	"context"

	"github.com/spacedunk/spacedunk/internal/model"
)

// Transport publishes envelopes to the world topic and surfaces inbound
// ones on a channel. Publish never blocks on slow peers; inbound delivery
// is buffered and drops (with a log) under overload rather than stalling
// the control loop.
type Transport interface {
	Publish(ctx context.Context, env model.Envelope) error
	Messages() <-chan model.Envelope
	Close() error
}
