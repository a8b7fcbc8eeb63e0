package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/discovery"
	"github.com/Ananthan-A-K/ResQ/internal/protocol"
	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PacketSender is the outbound half of the transport. Sends never fail the
// caller; transport logs and swallows transient errors.
type PacketSender interface {
	Send(protocol.Packet)
}

// Config carries the relay timing knobs. Zero values fall back to the
// defaults inherited from the reference deployment.
type Config struct {
	MessageTTL     int
	RelayDelay     time.Duration
	SOSRelayDelay  time.Duration
	RelayJitter    time.Duration
	MaxResends     int
	ResendInterval time.Duration
	BeaconInterval time.Duration
}

const (
	DefaultMessageTTL     = 6
	DefaultRelayDelay     = 200 * time.Millisecond
	DefaultSOSRelayDelay  = 50 * time.Millisecond
	DefaultRelayJitter    = 100 * time.Millisecond
	DefaultMaxResends     = 6
	DefaultResendInterval = 5 * time.Second
	DefaultBeaconInterval = 2 * time.Second
)

func (c *Config) applyDefaults() {
	if c.MessageTTL == 0 {
		c.MessageTTL = DefaultMessageTTL
	}
	if c.RelayDelay == 0 {
		c.RelayDelay = DefaultRelayDelay
	}
	if c.SOSRelayDelay == 0 {
		c.SOSRelayDelay = DefaultSOSRelayDelay
	}
	if c.MaxResends == 0 {
		c.MaxResends = DefaultMaxResends
	}
	if c.ResendInterval == 0 {
		c.ResendInterval = DefaultResendInterval
	}
	if c.BeaconInterval == 0 {
		c.BeaconInterval = DefaultBeaconInterval
	}
}

// Engine is the relay protocol state machine. It owns no sockets: the
// transport and store are injected so multiple nodes can run in one test
// process.
type Engine struct {
	db     *gorm.DB
	sender PacketSender
	peers  *discovery.Tracker
	nodeID string
	label  string
	cfg    Config

	// MsgUpdates surfaces messages addressed to this node (or broadcast)
	// on first admission. Consumers that fall behind miss updates rather
	// than blocking the relay path.
	MsgUpdates chan store.Message
}

func New(db *gorm.DB, sender PacketSender, peers *discovery.Tracker, nodeID, label string, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		db:         db,
		sender:     sender,
		peers:      peers,
		nodeID:     nodeID,
		label:      label,
		cfg:        cfg,
		MsgUpdates: make(chan store.Message, 100),
	}
}

func (e *Engine) NodeID() string { return e.nodeID }
func (e *Engine) Label() string  { return e.label }

// Start launches the beacon, the SOS resend scheduler, and the peer reaper.
// The transport receive loop is run by the caller and fed into HandlePacket.
func (e *Engine) Start(ctx context.Context) {
	go discovery.StartBeacon(ctx, e.sender, e.nodeID, e.label, e.cfg.BeaconInterval)
	go e.startResendScheduler(ctx)
	if e.peers != nil {
		go e.peers.StartReaper(ctx, e.cfg.BeaconInterval)
	}
}

// Publish creates a locally originated message, admits it through the dedup
// gate, and floods it. An empty destID floods to any node.
func (e *Engine) Publish(kind, destID, payload string) (store.Message, error) {
	now := time.Now().UTC()
	msg := store.Message{
		ID:          uuid.NewString(),
		OriginID:    e.nodeID,
		OriginLabel: e.label,
		DestID:      destID,
		Kind:        kind,
		Payload:     payload,
		CreatedAt:   now,
		ReceivedAt:  now,
		Hops:        0,
		TTL:         e.cfg.MessageTTL,
	}
	if _, err := store.InsertIfAbsent(e.db, &msg); err != nil {
		return store.Message{}, fmt.Errorf("store message: %w", err)
	}
	e.sender.Send(protocol.NewMsgPacket(protocol.Msg{
		ID:          msg.ID,
		OriginID:    msg.OriginID,
		OriginLabel: msg.OriginLabel,
		DestID:      msg.DestID,
		Subtype:     msg.Kind,
		Payload:     msg.Payload,
		Timestamp:   msg.CreatedAt.Format(time.RFC3339),
		Hops:        0,
		TTL:         msg.TTL,
	}))
	return msg, nil
}

// relayDelay desynchronizes simultaneous retransmission by nodes that heard
// the same flood at the same instant. SOS traffic relays on a shorter fuse.
func (e *Engine) relayDelay(kind string) time.Duration {
	base := e.cfg.RelayDelay
	if kind == store.KindSOS {
		base = e.cfg.SOSRelayDelay
	}
	if e.cfg.RelayJitter > 0 {
		base += time.Duration(rand.Int63n(int64(e.cfg.RelayJitter)))
	}
	return base
}
