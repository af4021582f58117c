package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/venuewatch/venuewatch/internal/models"
)

// DefaultSubject is the NATS subject notifications are published on.
const DefaultSubject = "venuewatch.notifications"

// NATSSink publishes JSON-encoded notifications to a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to url with automatic reconnection.
func NewNATSSink(url, subject string, opts ...nats.Option) (*NATSSink, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	defaults := []nats.Option{
		nats.Name("venuewatch"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSSink{conn: nc, subject: subject}, nil
}

// Notify publishes n on the configured subject.
func (s *NATSSink) Notify(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", s.subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
