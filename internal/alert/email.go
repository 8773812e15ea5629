package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// EmailChannel sends alerts by email through the Resend API.
type EmailChannel struct {
	client *resend.Client
	from   string
	to     string
}

// NewEmailChannel returns an email channel, or nil when the API key or
// addresses are missing (channel disabled).
func NewEmailChannel(apiKey, from, to string) *EmailChannel {
	if apiKey == "" || from == "" || to == "" {
		return nil
	}
	return &EmailChannel{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (e *EmailChannel) Name() string { return "email" }

// Send delivers the alert as a plain-text email with the metadata appended.
func (e *EmailChannel) Send(ctx context.Context, subject, message string, metadata map[string]any) error {
	meta, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		meta = []byte("{}")
	}
	_, err = e.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.from,
		To:      []string{e.to},
		Subject: subject,
		Text:    fmt.Sprintf("%s\n\nMetadata:\n%s", message, meta),
	})
	if err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}
