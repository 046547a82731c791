// Package events publishes pipeline lifecycle events over NATS core pub/sub.
// Events are advisory: consumers observe progress, they never drive state.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Event is the wire form of a lifecycle event.
type Event struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Publisher publishes lifecycle events. A nil Publisher is valid and drops
// every event, so callers never need to guard the no-NATS configuration.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS and returns a Publisher over the connection.
func Connect(natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

// Publish sends a lifecycle event. Publish failures are logged, not returned:
// event delivery must never fail a state transition that already committed.
func (p *Publisher) Publish(eventType string, payload map[string]any) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		slog.Error("failed to marshal lifecycle event", "error", err, "type", eventType)
		return
	}

	if err := p.nc.Publish(EventSubject(eventType), data); err != nil {
		slog.Error("failed to publish lifecycle event", "error", err, "type", eventType)
	}
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
