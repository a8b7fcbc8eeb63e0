package uplink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Ananthan-A-K/ResQ/internal/store"
)

// DiscordWebhook posts forwarded messages to a Discord webhook URL.
type DiscordWebhook struct {
	WebhookURL string
	client     *http.Client
}

func NewDiscordWebhook(url string) *DiscordWebhook {
	return &DiscordWebhook{
		WebhookURL: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *DiscordWebhook) Notify(ctx context.Context, msg store.Message) error {
	content := fmt.Sprintf("📡 **[MESH RELAY]**\n**Kind:** %s\n**From:** %s (%s)\n**Message:** %s",
		msg.Kind, msg.OriginLabel, msg.OriginID, msg.Payload)

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("marshal uplink payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build uplink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send uplink request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("uplink returned status %s", resp.Status)
	}
	return nil
}
