// Package httpapi is the dashboard HTTP surface: a live WebSocket
// relay off the broadcast hub plus the alert query/stats/recent REST
// endpoints. It can optionally serve a prebuilt dashboard frontend
// off disk (StaticDir), but never builds or renders one itself — with
// no StaticDir configured it falls back to a minimal static page.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ortegarod/flashwatch/internal/alertstore"
	"github.com/ortegarod/flashwatch/internal/hub"
)

const fallbackHTML = `<!doctype html><html><head><title>flashwatch</title></head><body style="background:#0a0a0f;color:#e0e0e0;font-family:monospace;padding:40px">
<h1>flashwatch</h1><p>No static dashboard configured.</p>
<p>API endpoints available: <a href="/alerts" style="color:#60a5fa">/alerts</a> &middot; <a href="/alerts/stats" style="color:#60a5fa">/alerts/stats</a></p>
</body></html>`

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the dashboard HTTP surface.
type Server struct {
	Hub    *hub.Hub
	Store  *alertstore.Store // nil disables the /alerts* endpoints
	Logger *zap.Logger

	// StaticDir, if non-empty, is served at "/" in place of the
	// fallback page — a prebuilt dashboard frontend this package never
	// builds or renders itself.
	StaticDir string
}

// Router builds the chi router exposing /ws, /alerts, /alerts/stats,
// /alerts/recent, and either StaticDir's contents or a fallback index
// page at "/".
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/ws", s.handleWS)
	r.Get("/alerts", s.handleAlerts)
	r.Get("/alerts/stats", s.handleStats)
	r.Get("/alerts/recent", s.handleRecent)

	if s.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.StaticDir))
		r.Handle("/*", fs)
	} else {
		r.Get("/", s.handleIndex)
	}

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(fallbackHTML))
}

// handleWS upgrades to a WebSocket and relays every enriched frame
// published to the hub until the client disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(sub)

	for msg := range sub {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
	}
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeJSON(w, map[string]string{"error": "no store configured"})
		return
	}
	q := alertstore.QueryFromParams(flattenQuery(r))
	rows, err := s.Store.Query(q)
	if err != nil {
		writeJSON(w, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"alerts": rows, "count": len(rows)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeJSON(w, map[string]string{"error": "no store configured"})
		return
	}
	stats, err := s.Store.Stats()
	if err != nil {
		writeJSON(w, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeJSON(w, []any{})
		return
	}
	rows, err := s.Store.Query(alertstore.Query{Limit: 20})
	if err != nil {
		writeJSON(w, []any{})
		return
	}
	writeJSON(w, rows)
}

func flattenQuery(r *http.Request) map[string]string {
	out := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
