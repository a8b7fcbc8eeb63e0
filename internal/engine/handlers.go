package engine

import (
	"log/slog"
	"net"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/protocol"
	"github.com/Ananthan-A-K/ResQ/internal/store"
)

// HandlePacket dispatches one decoded packet. Called from the transport
// receive loop; must never block on slow consumers.
func (e *Engine) HandlePacket(pkt protocol.Packet, from *net.UDPAddr) {
	switch {
	case pkt.Announce != nil:
		e.handleAnnounce(pkt.Announce, from)
	case pkt.Msg != nil:
		e.handleMsg(pkt.Msg)
	case pkt.Ack != nil:
		e.handleAck(pkt.Ack)
	}
}

func (e *Engine) handleAnnounce(a *protocol.Announce, from *net.UDPAddr) {
	if a.NodeID == "" || a.NodeID == e.nodeID {
		return
	}
	if e.peers != nil {
		addr := ""
		if from != nil {
			addr = from.String()
		}
		e.peers.Observe(a.NodeID, a.Label, addr)
	}
}

// handleMsg runs the relay state machine for one incoming message.
//
// Every node runs the dedup gate and relays within TTL; the gate is the
// sole loop prevention, so directed messages are stored at intermediate
// nodes too. Only the addressee (or anyone, for an empty dest) acks and
// surfaces the message to the application.
func (e *Engine) handleMsg(m *protocol.Msg) {
	if m.ID == "" {
		// Structurally invalid; drop without store mutation.
		return
	}

	addressed := m.DestID == "" || m.DestID == e.nodeID

	rec := store.Message{
		ID:          m.ID,
		OriginID:    m.OriginID,
		OriginLabel: m.OriginLabel,
		DestID:      m.DestID,
		Kind:        m.Subtype,
		Payload:     m.Payload,
		CreatedAt:   protocol.ParseTime(m.Timestamp),
		ReceivedAt:  time.Now().UTC(),
		Hops:        m.Hops,
		TTL:         m.TTL,
	}
	first, err := store.InsertIfAbsent(e.db, &rec)
	if err != nil {
		slog.Error("Failed to admit message", "id", m.ID, "error", err)
		return
	}
	if !first {
		// Already seen: no second ack, no re-relay, record untouched.
		return
	}

	slog.Info("New message admitted",
		"id", m.ID, "kind", m.Subtype, "hops", m.Hops, "ttl", m.TTL, "origin", m.OriginID)

	if addressed {
		e.sender.Send(protocol.NewAck(m.ID, e.nodeID))
		select {
		case e.MsgUpdates <- rec:
		default:
		}
	}

	if m.Hops < m.TTL {
		relay := *m
		relay.Hops++
		time.AfterFunc(e.relayDelay(m.Subtype), func() {
			e.sender.Send(protocol.Packet{Msg: &relay})
			slog.Info("Relayed message", "id", relay.ID, "hops", relay.Hops)
		})
	}
}

// handleAck marks the referenced message acknowledged if we hold it. Acks
// for unknown ids are dropped; acks are never deduplicated or relayed.
func (e *Engine) handleAck(a *protocol.Ack) {
	if a.OrigMsgID == "" {
		return
	}
	if _, err := store.GetMessage(e.db, a.OrigMsgID); err != nil {
		return
	}
	if err := store.MarkAcknowledged(e.db, a.OrigMsgID); err != nil {
		slog.Error("Failed to mark acknowledged", "id", a.OrigMsgID, "error", err)
		return
	}
	slog.Info("Message acknowledged", "id", a.OrigMsgID, "by", a.FromNode)
}
