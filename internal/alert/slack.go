package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackChannel posts alerts to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

// NewSlackChannel returns a Slack channel for the webhook URL, or nil when the
// URL is empty (channel disabled).
func NewSlackChannel(webhookURL string) *SlackChannel {
	if webhookURL == "" {
		return nil
	}
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackChannel) Name() string { return "slack" }

// Send posts the alert as a single webhook message with the metadata attached
// as a fenced block.
func (s *SlackChannel) Send(ctx context.Context, subject, message string, metadata map[string]any) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		meta = []byte("{}")
	}
	payload, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s*\n%s\n```%s```", subject, message, meta),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %s", resp.Status)
	}
	return nil
}
