// Package uplink carries messages from the mesh to an upstream channel
// once connectivity returns. Notifiers accept one message at a time so the
// connectivity monitor controls mark-forwarded semantics.
package uplink

import (
	"context"
	"log/slog"

	"github.com/Ananthan-A-K/ResQ/internal/store"
)

// Notifier forwards one message upstream and reports success or failure.
// A failed Notify leaves the message a candidate for the next flush.
type Notifier interface {
	Notify(ctx context.Context, msg store.Message) error
}

// LogSink is the minimal deployment's notifier: it records the forward in
// the log and always succeeds.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, msg store.Message) error {
	slog.Info("Forwarded message upstream",
		"id", msg.ID, "origin", msg.OriginID, "kind", msg.Kind, "payload", msg.Payload)
	return nil
}
