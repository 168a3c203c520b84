package testutil

import (
	"context"
	"sync"

	"github.com/spacedunk/spacedunk/internal/gossip"
	"github.com/spacedunk/spacedunk/internal/model"
)

// Bus is an in-process loopback network. Each endpoint behaves like the
// gossip transport: publishing delivers the envelope to every other
// endpoint, never back to the sender.
type Bus struct {
	mu        sync.Mutex
	endpoints []*Endpoint
}

// NewBus creates an empty loopback network
func NewBus() *Bus {
	return &Bus{}
}

// Endpoint is one peer's connection to the bus
type Endpoint struct {
	bus      *Bus
	peer     model.PeerID
	inbound  chan model.Envelope
	closed   bool
	closedMu sync.Mutex
}

var _ gossip.Transport = (*Endpoint)(nil)

// Join attaches a new endpoint for the given peer
func (b *Bus) Join(peer model.PeerID) *Endpoint {
	ep := &Endpoint{
		bus:     b,
		peer:    peer,
		inbound: make(chan model.Envelope, 1024),
	}
	b.mu.Lock()
	b.endpoints = append(b.endpoints, ep)
	b.mu.Unlock()
	return ep
}

// Publish delivers the envelope to every other live endpoint
func (e *Endpoint) Publish(ctx context.Context, env model.Envelope) error {
	e.bus.mu.Lock()
	targets := make([]*Endpoint, len(e.bus.endpoints))
	copy(targets, e.bus.endpoints)
	e.bus.mu.Unlock()

	for _, target := range targets {
		if target == e {
			continue
		}
		target.deliver(env)
	}
	return nil
}

func (e *Endpoint) deliver(env model.Envelope) {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.inbound <- env:
	default:
	}
}

// Messages returns the inbound envelope channel
func (e *Endpoint) Messages() <-chan model.Envelope {
	return e.inbound
}

// Close detaches the endpoint from the bus
func (e *Endpoint) Close() error {
	e.closedMu.Lock()
	defer e.closedMu.Unlock()
	e.closed = true
	return nil
}
