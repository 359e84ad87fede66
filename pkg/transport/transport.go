// Package transport wires a libp2p host and gossipsub into the shapes
// pkg/gossip needs: an inbound envelope stream, per-peer reply handles,
// and a broadcaster.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/gochain/utxonode/pkg/gossip"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	blocksTopicName = "gochain/blocks/v1"
	txsTopicName    = "gochain/txs/v1"
	mdnsServiceTag  = "gochain-mdns"
	connectTimeout  = 10 * time.Second
)

// Transport owns the node's libp2p host and the two gossipsub topics
// block and transaction traffic travel over.
type Transport struct {
	ctx    context.Context
	cancel context.CancelFunc

	host   host.Host
	pubsub *pubsub.PubSub

	blocksTopic *pubsub.Topic
	txsTopic    *pubsub.Topic

	inbound chan<- gossip.Envelope
	log     zerolog.Logger
}

// New creates a libp2p host listening on listenPort, joins both gossip
// topics, and starts LAN peer discovery via mDNS. Every message received
// on either topic is delivered to inbound as a gossip.Envelope.
func New(ctx context.Context, listenPort int, inbound chan<- gossip.Envelope) (*Transport, error) {
	nodeCtx, cancel := context.WithCancel(ctx)

	h, err := libp2p.New(
		libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", listenPort)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(nodeCtx, h)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: create gossipsub: %w", err)
	}

	blocksTopic, err := ps.Join(blocksTopicName)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: join blocks topic: %w", err)
	}
	txsTopic, err := ps.Join(txsTopicName)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: join txs topic: %w", err)
	}

	t := &Transport{
		ctx:         nodeCtx,
		cancel:      cancel,
		host:        h,
		pubsub:      ps,
		blocksTopic: blocksTopic,
		txsTopic:    txsTopic,
		inbound:     inbound,
		log:         log.With().Str("component", "transport").Logger(),
	}

	blocksSub, err := blocksTopic.Subscribe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: subscribe blocks topic: %w", err)
	}
	txsSub, err := txsTopic.Subscribe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport: subscribe txs topic: %w", err)
	}

	go t.readLoop(blocksSub)
	go t.readLoop(txsSub)

	mdns.NewMdnsService(h, mdnsServiceTag, &mdnsNotifee{host: h, log: t.log})

	return t, nil
}

// ID returns this node's libp2p peer ID.
func (t *Transport) ID() string { return t.host.ID().String() }

// Addrs returns the dialable multiaddrs other nodes can use to reach
// this one.
func (t *Transport) Addrs() []string {
	out := make([]string, 0, len(t.host.Addrs()))
	for _, a := range t.host.Addrs() {
		out = append(out, fmt.Sprintf("%s/p2p/%s", a, t.host.ID()))
	}
	return out
}

// Connect dials a peer at the given multiaddr string directly, bypassing
// mDNS discovery — used to join a network across machines.
func (t *Transport) Connect(addr string) error {
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return fmt.Errorf("transport: parse peer addr: %w", err)
	}
	ctx, cancel := context.WithTimeout(t.ctx, connectTimeout)
	defer cancel()
	return t.host.Connect(ctx, *info)
}

// Broadcast fans a wire message out over whichever topic carries its
// kind.
func (t *Transport) Broadcast(payload []byte) error {
	return t.publish(payload)
}

// Close shuts the host down and stops discovery.
func (t *Transport) Close() error {
	t.cancel()
	return t.host.Close()
}

func (t *Transport) publish(payload []byte) error {
	topic := t.blocksTopic
	if msg, err := gossip.Decode(payload); err == nil {
		switch msg.Kind {
		case gossip.KindNewTransactionHashes, gossip.KindGetTransactions, gossip.KindTransactions:
			topic = t.txsTopic
		}
	}
	return topic.Publish(t.ctx, payload)
}

func (t *Transport) readLoop(sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(t.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == t.host.ID() {
			continue
		}
		t.inbound <- gossip.Envelope{
			Payload: msg.Data,
			From:    &peerHandle{transport: t, id: msg.ReceivedFrom},
		}
	}
}

// peerHandle satisfies gossip.PeerHandle. Gossipsub has no built-in
// unicast, so a reply is republished on the appropriate topic rather
// than sent to id alone — every subscriber observes it, same as a
// broadcast, which is acceptable for a flood-gossip protocol.
type peerHandle struct {
	transport *Transport
	id        peer.ID
}

func (p *peerHandle) ID() string { return p.id.String() }

func (p *peerHandle) Send(payload []byte) error {
	return p.transport.publish(payload)
}

// mdnsNotifee connects to every peer discovered on the local network.
type mdnsNotifee struct {
	host host.Host
	log  zerolog.Logger
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == n.host.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := n.host.Connect(ctx, pi); err != nil {
		n.log.Debug().Err(err).Str("peer", pi.ID.String()).Msg("mdns peer connect failed")
	}
}
