// Package alert delivers security alerts to the configured operator channels
// (Slack webhook, email). Delivery is best-effort: failures are logged and
// never propagate to the authentication path that raised the alert.
package alert

import (
	"context"
	"log"
	"sync"
)

// Channel delivers an alert over one transport.
type Channel interface {
	// Name identifies the channel in config and logs ("slack", "email").
	Name() string
	Send(ctx context.Context, subject, message string, metadata map[string]any) error
}

// Dispatcher fans an alert out to every configured channel concurrently.
type Dispatcher struct {
	channels []Channel
}

// NewDispatcher returns a Dispatcher over the given channels. Nil channels are skipped.
func NewDispatcher(channels ...Channel) *Dispatcher {
	d := &Dispatcher{}
	for _, c := range channels {
		if c != nil {
			d.channels = append(d.channels, c)
		}
	}
	return d
}

// Enabled reports whether any channel is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.channels) > 0
}

// Notify sends the alert to every channel and waits for all to finish or the
// context to expire. Per-channel failures are logged and do not stop the rest.
func (d *Dispatcher) Notify(ctx context.Context, subject, message string, metadata map[string]any) {
	if !d.Enabled() {
		log.Printf("alert: skipped (no channels configured): %s", subject)
		return
	}
	var wg sync.WaitGroup
	for _, c := range d.channels {
		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			if err := c.Send(ctx, subject, message, metadata); err != nil {
				log.Printf("alert: %s delivery failed: %v", c.Name(), err)
			}
		}(c)
	}
	wg.Wait()
}
