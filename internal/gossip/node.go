package gossip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/spacedunk/spacedunk/internal/identity"
	"github.com/spacedunk/spacedunk/internal/model"
)

// Config holds gossip node settings
type Config struct {
	ListenPort    int
	Topic         string
	SeedAddrs     []string
	EnableMDNS    bool
	ServiceTag    string
	InboundBuffer int
}

// DefaultConfig returns sensible gossip defaults
func DefaultConfig() Config {
	return Config{
		ListenPort:    37202,
		Topic:         "spacedunk-world-v1",
		EnableMDNS:    true,
		ServiceTag:    "spacedunk",
		InboundBuffer: 256,
	}
}

// Node is the libp2p-backed gossip transport: a host with the peer's
// ed25519 identity, a gossipsub topic shared by all peers, mdns discovery
// on the local network and optional seed-address dialing for the wider one.
type Node struct {
	host    host.Host
	topic   *pubsub.Topic
	sub     *pubsub.Subscription
	mdns    mdns.Service
	inbound chan model.Envelope
	logger  *slog.Logger
	cancel  context.CancelFunc
}

var _ Transport = (*Node)(nil)

// NewNode starts the libp2p host, joins the world topic and begins
// discovery. The returned node delivers inbound envelopes until Close.
func NewNode(ctx context.Context, id *identity.Identity, cfg Config, logger *slog.Logger) (*Node, error) {
	h, err := libp2p.New(
		libp2p.Identity(id.PrivKey()),
		libp2p.ListenAddrStrings(
			fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.ListenPort),
			fmt.Sprintf("/ip6/::/tcp/%d", cfg.ListenPort),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("start gossipsub: %w", err)
	}
	topic, err := ps.Join(cfg.Topic)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("join topic %q: %w", cfg.Topic, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("subscribe topic %q: %w", cfg.Topic, err)
	}

	nodeCtx, cancel := context.WithCancel(ctx)
	n := &Node{
		host:    h,
		topic:   topic,
		sub:     sub,
		inbound: make(chan model.Envelope, cfg.InboundBuffer),
		logger:  logger,
		cancel:  cancel,
	}

	if cfg.EnableMDNS {
		svc := mdns.NewMdnsService(h, cfg.ServiceTag, &discoveryNotifee{host: h, logger: logger})
		if err := svc.Start(); err != nil {
			logger.Warn("mdns discovery unavailable", slog.String("error", err.Error()))
		} else {
			n.mdns = svc
		}
	}

	go n.readLoop(nodeCtx)
	if len(cfg.SeedAddrs) > 0 {
		go n.dialSeeds(nodeCtx, cfg.SeedAddrs)
	}

	logger.Info("gossip node listening",
		slog.String("peer", h.ID().String()),
		slog.String("topic", cfg.Topic),
		slog.Int("port", cfg.ListenPort))
	return n, nil
}

// Publish serializes the envelope and gossips it to the topic
func (n *Node) Publish(ctx context.Context, env model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return n.topic.Publish(ctx, data)
}

// Messages returns the inbound envelope channel
func (n *Node) Messages() <-chan model.Envelope {
	return n.inbound
}

// Peers returns the ids of peers currently on the topic
func (n *Node) Peers() []model.PeerID {
	ids := n.topic.ListPeers()
	peers := make([]model.PeerID, 0, len(ids))
	for _, id := range ids {
		peers = append(peers, model.PeerID(id.String()))
	}
	return peers
}

// Close shuts down discovery, the subscription and the host
func (n *Node) Close() error {
	n.cancel()
	n.sub.Cancel()
	if n.mdns != nil {
		_ = n.mdns.Close()
	}
	_ = n.topic.Close()
	return n.host.Close()
}

// readLoop decodes inbound gossip. Malformed or unknown messages are
// logged and dropped here so they never reach the scheduler; a full
// inbound buffer also drops rather than blocking the subscription.
func (n *Node) readLoop(ctx context.Context) {
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				n.logger.Warn("subscription closed", slog.String("error", err.Error()))
			}
			return
		}
		if msg.GetFrom() == n.host.ID() {
			continue
		}
		var env model.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			n.logger.Debug("dropping malformed envelope",
				slog.String("from", msg.GetFrom().String()),
				slog.String("error", err.Error()))
			continue
		}
		if !wellFormed(env) {
			n.logger.Debug("dropping envelope with missing payload",
				slog.String("from", msg.GetFrom().String()),
				slog.String("kind", string(env.Kind)))
			continue
		}
		select {
		case n.inbound <- env:
		default:
			n.logger.Warn("inbound buffer full, dropping envelope",
				slog.String("kind", string(env.Kind)))
		}
	}
}

// wellFormed checks the envelope carries the payload its kind promises.
// Unknown kinds from newer protocol versions are dropped without error.
func wellFormed(env model.Envelope) bool {
	switch env.Kind {
	case model.MessageStateUpdate:
		return env.Update != nil
	case model.MessageMatchProposal:
		return env.Proposal != nil
	case model.MessageHeartbeat:
		return env.Heartbeat != nil
	case model.MessageSyncRequest:
		return env.Sync != nil
	default:
		return false
	}
}

// dialSeeds connects to configured seed peers, retrying transiently
// unreachable ones with backoff
func (n *Node) dialSeeds(ctx context.Context, addrs []string) {
	backoff := time.Second
	pending := parseSeedAddrs(addrs, n.logger)
	for len(pending) > 0 {
		var failed []peer.AddrInfo
		for _, info := range pending {
			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := n.host.Connect(dialCtx, info)
			cancel()
			if err != nil {
				n.logger.Debug("seed peer unreachable, will retry",
					slog.String("peer", info.ID.String()),
					slog.String("error", err.Error()))
				failed = append(failed, info)
				continue
			}
			n.logger.Info("connected to seed peer", slog.String("peer", info.ID.String()))
		}
		pending = failed
		if len(pending) == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < time.Minute {
			backoff *= 2
		}
	}
}

func parseSeedAddrs(addrs []string, logger *slog.Logger) []peer.AddrInfo {
	var infos []peer.AddrInfo
	for _, raw := range addrs {
		addr, err := ma.NewMultiaddr(raw)
		if err != nil {
			logger.Warn("ignoring invalid seed address", slog.String("addr", raw))
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			logger.Warn("seed address missing /p2p component", slog.String("addr", raw))
			continue
		}
		infos = append(infos, *info)
	}
	return infos
}

type discoveryNotifee struct {
	host   host.Host
	logger *slog.Logger
}

func (d *discoveryNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == d.host.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.host.Connect(ctx, info); err != nil {
		d.logger.Debug("could not connect to discovered peer",
			slog.String("peer", info.ID.String()),
			slog.String("error", err.Error()))
		return
	}
	d.logger.Info("discovered peer", slog.String("peer", info.ID.String()))
}
