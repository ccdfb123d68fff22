package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/ports"
)

// SubjectPrefix is the root of every lookup event subject.
// Events are published on citysearch.lookup.<kind>.
const SubjectPrefix = "citysearch.lookup"

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the lookup stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	stream := nats.StreamConfig{
		Name:      "CITY_LOOKUPS",
		Subjects:  []string{SubjectPrefix + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&stream); err != nil {
		// stream may already exist; update it instead
		if _, err := js.UpdateStream(&stream); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", stream.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Subject returns the subject a lookup event of kind is published on.
func Subject(kind domain.LookupKind) string {
	return SubjectPrefix + "." + string(kind)
}

// PublishLookup publishes an event asynchronously; delivery failures are
// reported by JetStream, not to the caller.
func (p *Publisher) PublishLookup(ctx context.Context, event *domain.LookupEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(Subject(event.Kind), data)
	return err
}

// Conn exposes the underlying connection for subscribers such as the
// WebSocket relay.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect creates a plain NATS connection with reconnect settings.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("citysearch"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

var _ ports.EventPublisher = (*Publisher)(nil)
