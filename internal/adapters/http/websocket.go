package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/citysearch/internal/adapters/nats"
	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/session"
	"github.com/samirrijal/citysearch/internal/pkg/metrics"
)

// wsRequest is sent by the client to drive its session.
type wsRequest struct {
	Action string `json:"action"` // search | lat | lon | coords | select | watch | unwatch
	Value  string `json:"value"`  // text for search, lat and lon
	Index  int    `json:"index"`  // result index for select
	Kind   string `json:"kind"`   // lookup kind for watch/unwatch ("" = all)
}

// wsMessage is pushed to the client.
type wsMessage struct {
	Type   string          `json:"type"` // view | event | status | error
	View   *session.View   `json:"view,omitempty"`
	Event  json.RawMessage `json:"event,omitempty"`
	Status string          `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WebSocketHandler runs one lookup session per connection. Every state change
// is pushed as a "view" message. Clients may also watch the lookup event
// stream on NATS when it is configured.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s := session.New(deps.Lookup, session.Options{Debounce: deps.Debounce, Logger: deps.logger()})
		defer s.Close()

		log := deps.logger().With(slog.String("session", s.ID()), slog.String("remote", c.RemoteAddr().String()))
		log.Info("ws session opened")
		metrics.ActiveSessions.Inc()
		defer metrics.ActiveSessions.Dec()

		w := &wsWriter{conn: c}
		var wg sync.WaitGroup
		// nothing may touch c once the handler returns and fiber recycles it
		defer func() {
			cancel()
			s.Close()
			wg.Wait()
			w.close()
		}()

		stop := s.OnChange(w.sendView)
		defer stop()
		w.sendView(s.View())

		subs := make(map[string]*nats.Subscription)
		defer func() {
			for _, sub := range subs {
				_ = sub.Unsubscribe()
			}
		}()

		// Keep-alive ping
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := w.ping(); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var req wsRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				_ = w.send(wsMessage{Type: "error", Error: "invalid JSON"})
				continue
			}

			switch req.Action {
			case "search":
				s.SetSearchText(req.Value)
			case "lat":
				s.SetLatitude(req.Value)
			case "lon":
				s.SetLongitude(req.Value)
			case "coords":
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = s.SubmitCoordinates(ctx)
				}()
			case "select":
				idx := req.Index
				wg.Add(1)
				go func() {
					defer wg.Done()
					// lookup failures already show up in the view
					if err := s.Select(ctx, idx); errors.Is(err, session.ErrNoSuchResult) {
						_ = w.send(wsMessage{Type: "error", Error: err.Error()})
					}
				}()
			case "watch", "unwatch":
				_ = w.send(watch(deps.NATS, subs, req, w.send))
			default:
				_ = w.send(wsMessage{Type: "error", Error: "unknown action: " + req.Action})
			}
		}

		log.Info("ws session closed")
	}
}

// errWriterClosed is returned for writes after the connection handler ended.
var errWriterClosed = errors.New("websocket closed")

type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsWriter serialises writes to one connection. Session listeners run on
// several goroutines, so views older than the last one sent are dropped.
type wsWriter struct {
	conn messageWriter

	mu          sync.Mutex
	sentView    bool
	lastVersion uint64
	closed      bool
}

func (w *wsWriter) send(m wsMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWriterClosed
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsWriter) sendView(v session.View) {
	data, err := json.Marshal(wsMessage{Type: "view", View: &v})
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || (w.sentView && v.Version <= w.lastVersion) {
		return
	}
	w.sentView, w.lastVersion = true, v.Version
	_ = w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsWriter) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errWriterClosed
	}
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// watch subscribes or unsubscribes the connection to lookup events.
func watch(nc *nats.Conn, subs map[string]*nats.Subscription, req wsRequest, write func(wsMessage) error) wsMessage {
	if nc == nil {
		return wsMessage{Type: "error", Error: "event stream not configured"}
	}

	subject := natsadapter.SubjectPrefix + ".>"
	if req.Kind != "" {
		switch domain.LookupKind(req.Kind) {
		case domain.LookupSearch, domain.LookupReverse, domain.LookupDetails:
			subject = natsadapter.Subject(domain.LookupKind(req.Kind))
		default:
			return wsMessage{Type: "error", Error: "unknown lookup kind: " + req.Kind}
		}
	}

	if req.Action == "unwatch" {
		sub, ok := subs[subject]
		if !ok {
			return wsMessage{Type: "error", Error: "not watching " + subject}
		}
		_ = sub.Unsubscribe()
		delete(subs, subject)
		return wsMessage{Type: "status", Status: "unwatched " + subject}
	}

	if _, ok := subs[subject]; ok {
		return wsMessage{Type: "status", Status: "already watching " + subject}
	}
	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		_ = write(wsMessage{Type: "event", Event: json.RawMessage(m.Data)})
	})
	if err != nil {
		return wsMessage{Type: "error", Error: "subscribe failed: " + err.Error()}
	}
	subs[subject] = sub
	return wsMessage{Type: "status", Status: "watching " + subject}
}
