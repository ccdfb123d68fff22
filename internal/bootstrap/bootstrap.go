// Package bootstrap builds the lookup service and its optional backends from
// configuration. It is shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/citysearch/internal/adapters/memcache"
	natsadapter "github.com/samirrijal/citysearch/internal/adapters/nats"
	"github.com/samirrijal/citysearch/internal/adapters/nominatim"
	"github.com/samirrijal/citysearch/internal/adapters/valkey"
	"github.com/samirrijal/citysearch/internal/core/ports"
	"github.com/samirrijal/citysearch/internal/core/usecases"
	"github.com/samirrijal/citysearch/internal/pkg/config"
)

// Services is the wired lookup stack. Valkey and Publisher are nil when
// disabled or unreachable.
type Services struct {
	Lookup    *usecases.LookupService
	Geocoder  *nominatim.Client
	Valkey    *valkey.Cache
	Publisher *natsadapter.Publisher

	closers []func()
}

// NATS returns the event connection, or nil without one.
func (s *Services) NATS() *nats.Conn {
	if s.Publisher == nil {
		return nil
	}
	return s.Publisher.Conn()
}

// Close releases every backend in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Build wires the geocoder, cache and event publisher. Optional backends
// that fail to connect are logged and skipped: valkey falls back to the
// in-process cache, NATS to no events.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	geo, err := nominatim.New(nominatim.Options{
		BaseURL:        cfg.Nominatim.BaseURL,
		UserAgent:      cfg.Nominatim.UserAgent,
		Email:          cfg.Nominatim.Email,
		AcceptLanguage: cfg.Nominatim.AcceptLanguage,
		Timeout:        cfg.Nominatim.TimeoutDuration(),
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("nominatim client: %w", err)
	}

	s := &Services{Geocoder: geo}

	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = vc.Ping(pingCtx)
			cancel()
			if err != nil {
				vc.Close()
			}
		}
		if err != nil {
			logger.Warn("valkey unavailable, using in-memory cache", "addr", cfg.Valkey.Addr, "error", err)
		} else {
			s.Valkey = vc
			s.closers = append(s.closers, vc.Close)
			cache = vc
		}
	}
	if cache == nil {
		ttl := cfg.Lookup.CacheTTLDuration()
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		cache = memcache.New(ttl, 2*ttl)
	}

	var events ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats unavailable, lookup events disabled", "url", cfg.NATS.URL, "error", err)
		} else {
			s.Publisher = pub
			s.closers = append(s.closers, pub.Close)
			events = pub
		}
	}

	s.Lookup = usecases.NewLookupService(geo, cache, events, usecases.LookupConfig{
		CacheTTL:    cfg.Lookup.CacheTTLDuration(),
		MaxQueryLen: cfg.Lookup.MaxQueryLen,
		Logger:      logger,
	})
	return s, nil
}
