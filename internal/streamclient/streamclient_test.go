package streamclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// upgradeHandler builds an http.Handler that upgrades to a WebSocket,
// writes each string in frames, then optionally closes the connection.
func upgradeHandler(t *testing.T, frames []string, closeAfter bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if closeAfter {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}
	})
}

func TestClientStreamsFramesUntilServerCloses(t *testing.T) {
	var received []string
	var mu sync.Mutex

	srv := httptest.NewServer(nil)
	defer srv.Close()
	srv.Config.Handler = upgradeHandler(t, []string{"frame-1", "frame-2"}, true)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(url, func(data []byte) error {
		mu.Lock()
		received = append(received, string(data))
		mu.Unlock()
		return nil
	})
	c.InitialBackoff = 10 * time.Millisecond
	c.MaxBackoff = 20 * time.Millisecond

	var states []State
	c.OnState = func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_ = c.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(received) < 2 || received[0] != "frame-1" || received[1] != "frame-2" {
		t.Fatalf("expected both frames delivered in order, got %v", received)
	}

	sawConnected, sawBackoff := false, false
	for _, s := range states {
		if s == Connected {
			sawConnected = true
		}
		if s == Backoff {
			sawBackoff = true
		}
	}
	if !sawConnected {
		t.Fatal("expected at least one Connected state transition")
	}
	if !sawBackoff {
		t.Fatal("expected a Backoff transition after the server closed the connection")
	}
}

func TestClientReportsDialErrors(t *testing.T) {
	var errs int
	var mu sync.Mutex

	c := New("ws://127.0.0.1:1/does-not-exist", func([]byte) error { return nil })
	c.InitialBackoff = 5 * time.Millisecond
	c.MaxBackoff = 10 * time.Millisecond
	c.OnError = func(error) {
		mu.Lock()
		errs++
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = c.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if errs == 0 {
		t.Fatal("expected at least one reported dial error")
	}
}

func TestReconnectBackoffIsExactDoublingWithCap(t *testing.T) {
	c := New("ws://unused", func([]byte) error { return nil })
	c.InitialBackoff = 2 * time.Second
	c.MaxBackoff = 30 * time.Second

	b := c.newReconnectBackoff()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Fatalf("interval %d: got %v, want %v (unjittered doubling sequence)", i, got, w)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Backoff:      "backoff",
		State(99):    "unknown",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
