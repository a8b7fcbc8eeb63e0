package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/protocol"
	"github.com/Ananthan-A-K/ResQ/internal/store"
)

// startResendScheduler periodically re-floods this node's own
// unacknowledged SOS messages, bounded by the attempt cap.
func (e *Engine) startResendScheduler(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ResendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.resendPass()
		}
	}
}

// resendPass runs one scheduler cycle. A resend is a fresh flood from the
// origin: hops reset to 0, same id, same ttl. Messages at the cap are left
// untouched; escalation past the cap is an operator concern.
func (e *Engine) resendPass() {
	rows, err := store.ListUnacknowledgedSOS(e.db, e.nodeID)
	if err != nil {
		slog.Error("Failed to list unacknowledged SOS", "error", err)
		return
	}

	for _, m := range rows {
		if m.ResendCount >= e.cfg.MaxResends {
			continue
		}
		e.sender.Send(protocol.NewMsgPacket(protocol.Msg{
			ID:          m.ID,
			OriginID:    m.OriginID,
			OriginLabel: m.OriginLabel,
			DestID:      m.DestID,
			Subtype:     m.Kind,
			Payload:     m.Payload,
			Timestamp:   m.CreatedAt.Format(time.RFC3339),
			Hops:        0,
			TTL:         m.TTL,
		}))
		if err := store.IncrementResend(e.db, m.ID); err != nil {
			slog.Error("Failed to increment resend count", "id", m.ID, "error", err)
			continue
		}
		slog.Info("Resent SOS", "id", m.ID, "attempt", m.ResendCount+1)
	}
}
