package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ortegarod/flashwatch/internal/alert"
	"github.com/ortegarod/flashwatch/internal/alertstore"
	"github.com/ortegarod/flashwatch/internal/hub"
)

func newTestServer(t *testing.T, withStore bool) *Server {
	t.Helper()
	s := &Server{Hub: hub.New(), Logger: zaptest.NewLogger(t)}
	if withStore {
		store, err := alertstore.Open(filepath.Join(t.TempDir(), "alerts.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		s.Store = store
	}
	return s
}

func TestHandleAlertsWithoutStore(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/alerts")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	require.NotEmpty(t, body["error"], "expected an error body when no store is configured")
}

func TestHandleStatsAndRecentWithStore(t *testing.T) {
	s := newTestServer(t, true)
	to := "0xabc"
	require.NoError(t, s.Store.Insert(alert.Alert{RuleName: "whale", Timestamp: time.Now().Unix(), Tx: alert.Tx{To: &to, ValueEth: 5, Category: "dex"}}))

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/alerts/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var stats alertstore.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, int64(1), stats.TotalAlerts)

	resp2, err := http.Get(srv.URL + "/alerts/recent")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var recent []json.RawMessage
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&recent))
	require.Len(t, recent, 1)
}

func TestHandleWSRelaysHubMessages(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the subscription before publishing.
	time.Sleep(50 * time.Millisecond)
	s.Hub.Publish("hello-dashboard")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "hello-dashboard", string(data))
}

func TestIndexFallback(t *testing.T) {
	s := newTestServer(t, false)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndexServesStaticDirWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>prebuilt dashboard</p>"), 0o644))

	s := newTestServer(t, false)
	s.StaticDir = dir
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)

	got := make([]byte, len(body))
	n, _ := resp.Body.Read(got)
	require.Equal(t, string(body), string(got[:n]))
}
