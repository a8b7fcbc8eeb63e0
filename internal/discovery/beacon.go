package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/protocol"
)

// Sender is the outbound half of the transport.
type Sender interface {
	Send(protocol.Packet)
}

// StartBeacon announces node presence on a fixed period until ctx is
// cancelled. Liveness only; no protocol state depends on it.
func StartBeacon(ctx context.Context, s Sender, nodeID, label string, interval time.Duration) {
	slog.Info("Beacon started", "nodeID", nodeID, "interval", interval)

	s.Send(protocol.NewAnnounce(nodeID, label))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Send(protocol.NewAnnounce(nodeID, label))
		}
	}
}
