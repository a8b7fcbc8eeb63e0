package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/Ananthan-A-K/ResQ/internal/protocol"
)

const (
	recvBuffer = 65536
	// One packet must fit in one datagram; there is no fragmentation.
	maxDatagram = 8192
)

// Broadcast wraps a single UDP socket bound to the mesh port. The same
// socket receives the broadcast domain and emits to the broadcast address,
// so a node also hears its own transmissions (the dedup gate absorbs them).
type Broadcast struct {
	conn *net.UDPConn
	dest *net.UDPAddr
}

// NewBroadcast binds the mesh port and resolves the broadcast destination.
// Bind failures surface to the caller as a startup error.
func NewBroadcast(port int, broadcastAddr string) (*Broadcast, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", port, err)
	}
	ip := net.ParseIP(broadcastAddr)
	if ip == nil {
		conn.Close()
		return nil, fmt.Errorf("invalid broadcast address %q", broadcastAddr)
	}
	return &Broadcast{
		conn: conn,
		dest: &net.UDPAddr{IP: ip, Port: port},
	}, nil
}

// Send serializes the packet and emits it to the broadcast address. Send
// never fails the caller: transient socket and encode problems are logged
// and swallowed so one bad send cannot halt a relay loop.
func (b *Broadcast) Send(p protocol.Packet) {
	data, err := p.Encode()
	if err != nil {
		slog.Error("Failed to encode packet", "error", err)
		return
	}
	if len(data) > maxDatagram {
		slog.Warn("Packet exceeds max datagram size, dropped", "size", len(data))
		return
	}
	if _, err := b.conn.WriteToUDP(data, b.dest); err != nil {
		slog.Warn("Broadcast send failed", "error", err)
	}
}

// Listen reads datagrams until ctx is cancelled, decoding each once and
// handing valid packets to handle. Malformed datagrams are dropped here;
// a bad packet never stops the loop.
func (b *Broadcast) Listen(ctx context.Context, handle func(protocol.Packet, *net.UDPAddr)) error {
	go func() {
		<-ctx.Done()
		b.conn.Close()
	}()

	buf := make([]byte, recvBuffer)
	for {
		n, remoteAddr, err := b.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("udp read: %w", err)
			}
		}

		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			// Noise on the broadcast port, not a protocol error.
			continue
		}
		handle(pkt, remoteAddr)
	}
}

func (b *Broadcast) Close() error {
	return b.conn.Close()
}

// LocalAddr reports the bound address, mainly for diagnostics.
func (b *Broadcast) LocalAddr() net.Addr {
	return b.conn.LocalAddr()
}
