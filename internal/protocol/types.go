package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Packet types
const (
	TypeAnnounce = "ANNOUNCE"
	TypeMsg      = "DM_MSG"
	TypeAck      = "DM_ACK"
)

// Announce is the periodic liveness beacon. It carries no delivery
// semantics and is never persisted.
type Announce struct {
	Type      string `json:"type"`
	NodeID    string `json:"node_id"`
	Label     string `json:"label"`
	Timestamp string `json:"timestamp"`
}

// Msg is a flooded message. Hops counts relays already applied; TTL is the
// hop ceiling fixed by the originator and copied unchanged through every
// relay. An empty DestID means "any node".
type Msg struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	OriginID    string `json:"origin_id"`
	OriginLabel string `json:"origin_label"`
	DestID      string `json:"dest_id"`
	Subtype     string `json:"subtype"`
	Payload     string `json:"payload"`
	Timestamp   string `json:"timestamp"`
	Hops        int    `json:"hops"`
	TTL         int    `json:"ttl"`
}

// Ack confirms first admission of a message at a receiver. Acks are
// single-hop: they are never relayed.
type Ack struct {
	Type      string `json:"type"`
	OrigMsgID string `json:"orig_msg_id"`
	FromNode  string `json:"from_node"`
	Timestamp string `json:"timestamp"`
}

// Packet is a tagged variant over the three wire shapes. Exactly one field
// is non-nil after a successful Decode.
type Packet struct {
	Announce *Announce
	Msg      *Msg
	Ack      *Ack
}

var ErrEmptyPacket = errors.New("empty packet")

func NewAnnounce(nodeID, label string) Packet {
	return Packet{Announce: &Announce{
		Type:      TypeAnnounce,
		NodeID:    nodeID,
		Label:     label,
		Timestamp: Now(),
	}}
}

func NewMsgPacket(m Msg) Packet {
	m.Type = TypeMsg
	return Packet{Msg: &m}
}

func NewAck(origMsgID, fromNode string) Packet {
	return Packet{Ack: &Ack{
		Type:      TypeAck,
		OrigMsgID: origMsgID,
		FromNode:  fromNode,
		Timestamp: Now(),
	}}
}

// Decode parses one datagram into a tagged Packet. The type field is
// inspected once here so callers can match on a closed set.
func Decode(data []byte) (Packet, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Packet{}, fmt.Errorf("decode packet: %w", err)
	}
	switch head.Type {
	case TypeAnnounce:
		var a Announce
		if err := json.Unmarshal(data, &a); err != nil {
			return Packet{}, fmt.Errorf("decode announce: %w", err)
		}
		return Packet{Announce: &a}, nil
	case TypeMsg:
		var m Msg
		if err := json.Unmarshal(data, &m); err != nil {
			return Packet{}, fmt.Errorf("decode msg: %w", err)
		}
		return Packet{Msg: &m}, nil
	case TypeAck:
		var a Ack
		if err := json.Unmarshal(data, &a); err != nil {
			return Packet{}, fmt.Errorf("decode ack: %w", err)
		}
		return Packet{Ack: &a}, nil
	default:
		return Packet{}, fmt.Errorf("unknown packet type %q", head.Type)
	}
}

// Encode serializes the packet to one datagram's worth of JSON.
func (p Packet) Encode() ([]byte, error) {
	switch {
	case p.Announce != nil:
		return json.Marshal(p.Announce)
	case p.Msg != nil:
		return json.Marshal(p.Msg)
	case p.Ack != nil:
		return json.Marshal(p.Ack)
	default:
		return nil, ErrEmptyPacket
	}
}

// Now returns the wire timestamp for outgoing packets.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ParseTime parses a wire timestamp, falling back to the current time on
// malformed input. Timestamps are display-only and never affect relay
// correctness.
func ParseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
