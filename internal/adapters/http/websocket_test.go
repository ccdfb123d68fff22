package http_test

import (
	"net"
	"strings"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/citysearch/internal/adapters/http"
	"github.com/samirrijal/citysearch/internal/core/session"
	"github.com/samirrijal/citysearch/internal/core/usecases"
)

type wsReply struct {
	Type   string        `json:"type"`
	View   *session.View `json:"view"`
	Status string        `json:"status"`
	Error  string        `json:"error"`
}

// wsClient reads pushes from a live /ws connection and checks that views
// arrive in strictly increasing version order.
type wsClient struct {
	t           *testing.T
	conn        *fws.Conn
	lastVersion uint64
	sawView     bool
}

func dialWS(t *testing.T, geo *mockGeocoder) *wsClient {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, &handler.Dependencies{
		Lookup:   usecases.NewLookupService(geo, nil, nil, usecases.LookupConfig{}),
		Debounce: 10 * time.Millisecond,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()

	conn, _, err := fws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		_ = app.ShutdownWithTimeout(time.Second)
	})
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(raw string) {
	c.t.Helper()
	if err := c.conn.WriteMessage(fws.TextMessage, []byte(raw)); err != nil {
		c.t.Fatalf("write %s: %v", raw, err)
	}
}

// until returns the first push matching match, failing after two seconds.
func (c *wsClient) until(what string, match func(wsReply) bool) wsReply {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var m wsReply
		if err := c.conn.ReadJSON(&m); err != nil {
			c.t.Fatalf("waiting for %s: %v", what, err)
		}
		if m.Type == "view" {
			if m.View == nil {
				c.t.Fatal("view message without view")
			}
			if c.sawView && m.View.Version <= c.lastVersion {
				c.t.Fatalf("view version %d arrived after %d", m.View.Version, c.lastVersion)
			}
			c.sawView, c.lastVersion = true, m.View.Version
		}
		if match(m) {
			return m
		}
	}
}

func (c *wsClient) view(what string, match func(session.View) bool) session.View {
	c.t.Helper()
	return *c.until(what, func(m wsReply) bool { return m.Type == "view" && match(*m.View) }).View
}

func (c *wsClient) errorMsg(what string) string {
	c.t.Helper()
	return c.until(what, func(m wsReply) bool { return m.Type == "error" }).Error
}

func TestWebSocket_SearchThenSelect(t *testing.T) {
	c := dialWS(t, fullGeocoder())

	initial := c.view("initial view", func(session.View) bool { return true })
	if initial.ID == "" || initial.SearchText != "" {
		t.Fatalf("unexpected initial view %+v", initial)
	}

	c.send(`{"action":"search","value":"Hanoi"}`)
	v := c.view("search results", func(v session.View) bool { return len(v.Results) > 0 && !v.Loading })
	if v.SearchText != "Hanoi" || len(v.Results) != 2 || !v.ShowResults {
		t.Fatalf("unexpected search view %+v", v)
	}

	c.send(`{"action":"select","index":0}`)
	v = c.view("details", func(v session.View) bool { return v.Details != nil })
	if v.Details.Title() != "Hà Nội" {
		t.Errorf("unexpected details %q", v.Details.Title())
	}
	if v.SearchText != "" || v.ShowResults || len(v.Results) != 0 {
		t.Errorf("selecting must clear the search: %+v", v)
	}

	c.send(`{"action":"select","index":7}`)
	if msg := c.errorMsg("out of range error"); !strings.Contains(msg, session.ErrNoSuchResult.Error()) {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestWebSocket_Coordinates(t *testing.T) {
	c := dialWS(t, fullGeocoder())
	c.view("initial view", func(session.View) bool { return true })

	c.send(`{"action":"lat","value":"21.0285"}`)
	c.view("lat stored", func(v session.View) bool { return v.Lat == "21.0285" })
	c.send(`{"action":"lon","value":"105.8542"}`)
	c.view("lon stored", func(v session.View) bool { return v.Lon == "105.8542" })

	c.send(`{"action":"coords"}`)
	v := c.view("coordinate details", func(v session.View) bool { return v.Details != nil })
	if v.CoordError || v.DistanceMeters == nil {
		t.Errorf("unexpected coordinate view %+v", v)
	}

	c.send(`{"action":"lat","value":"abc"}`)
	c.send(`{"action":"coords"}`)
	v = c.view("coordinate error", func(v session.View) bool { return v.CoordError })
	if v.Details != nil {
		t.Error("invalid coordinates must clear details")
	}
	if v.CoordErrorReason != "latitude must be a number between -90 and 90" {
		t.Errorf("unexpected reason %q", v.CoordErrorReason)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	c := dialWS(t, fullGeocoder())
	c.view("initial view", func(session.View) bool { return true })

	tests := []struct {
		send string
		want string
	}{
		{`not json`, "invalid JSON"},
		{`{"action":"dance"}`, "unknown action: dance"},
		{`{"action":"watch"}`, "event stream not configured"},
		{`{"action":"unwatch","kind":"search"}`, "event stream not configured"},
	}
	for _, tt := range tests {
		c.send(tt.send)
		if got := c.errorMsg(tt.send); got != tt.want {
			t.Errorf("%s: got error %q, want %q", tt.send, got, tt.want)
		}
	}
}
