package uplink

import (
	"context"
	"fmt"

	"github.com/Ananthan-A-K/ResQ/internal/store"
	"github.com/slack-go/slack"
)

// SlackWebhook posts forwarded messages to a Slack incoming webhook.
type SlackWebhook struct {
	WebhookURL string
}

func NewSlackWebhook(url string) *SlackWebhook {
	return &SlackWebhook{WebhookURL: url}
}

func (s *SlackWebhook) Notify(ctx context.Context, msg store.Message) error {
	text := fmt.Sprintf(":satellite: [MESH RELAY] %s from %s (%s): %s",
		msg.Kind, msg.OriginLabel, msg.OriginID, msg.Payload)
	if err := slack.PostWebhookContext(ctx, s.WebhookURL, &slack.WebhookMessage{Text: text}); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}
