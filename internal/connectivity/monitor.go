// Package connectivity watches for the offline→online edge and flushes
// pending messages to the upstream channel when it fires.
package connectivity

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/Ananthan-A-K/ResQ/internal/uplink"
	"gorm.io/gorm"
)

// ProbeFunc reports whether the node currently has upstream connectivity.
type ProbeFunc func(ctx context.Context) bool

// DialProbe probes by attempting a short TCP connection to a well-known
// endpoint. Nothing is sent beyond the connection attempt.
func DialProbe(addr string, timeout time.Duration) ProbeFunc {
	return func(_ context.Context) bool {
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor tracks the offline→online edge, debounced: repeated online
// observations after the first do nothing until an offline observation
// resets the edge.
type Monitor struct {
	db         *gorm.DB
	notifier   uplink.Notifier
	probe      ProbeFunc
	interval   time.Duration
	seenOnline bool
}

func NewMonitor(db *gorm.DB, notifier uplink.Notifier, probe ProbeFunc, interval time.Duration) *Monitor {
	return &Monitor{
		db:       db,
		notifier: notifier,
		probe:    probe,
		interval: interval,
	}
}

// Run probes on a fixed period until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.step(ctx)
		}
	}
}

// step makes one probe observation and flushes on the offline→online edge.
func (m *Monitor) step(ctx context.Context) {
	online := m.probe(ctx)
	switch {
	case online && !m.seenOnline:
		m.seenOnline = true
		slog.Info("Connectivity detected, forwarding pending messages")
		m.flush(ctx)
	case !online:
		m.seenOnline = false
	}
}

// flush forwards every pending, not-yet-forwarded message once. A failed
// forward leaves the message pending for the next edge and never aborts
// the batch.
func (m *Monitor) flush(ctx context.Context) {
	pending, err := store.ListPending(m.db)
	if err != nil {
		slog.Error("Failed to list pending messages", "error", err)
		return
	}

	for _, msg := range pending {
		if msg.Forwarded {
			continue
		}
		if err := m.notifier.Notify(ctx, msg); err != nil {
			slog.Warn("Upstream forward failed", "id", msg.ID, "error", err)
			continue
		}
		if err := store.MarkForwarded(m.db, msg.ID); err != nil {
			slog.Error("Failed to mark forwarded", "id", msg.ID, "error", err)
		}
	}
}
