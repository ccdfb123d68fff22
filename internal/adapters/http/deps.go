package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/citysearch/internal/core/usecases"
)

// Pinger is implemented by backends /v1/ready checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Lookup *usecases.LookupService
	NATS   *nats.Conn
	Cache  Pinger

	// Debounce is the quiet period for interactive sessions.
	Debounce time.Duration
	// RequestTimeout bounds each REST and GraphQL request; zero means 15s.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func (d *Dependencies) timeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
