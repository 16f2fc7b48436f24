package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gorilla/websocket"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	statsWindowDays         = 7
)

var uuidPathRe = regexp.MustCompile(`^/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	clientDir := hub.cfg.ClientDir

	// Static files are served no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(clientDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		// SPA: serve index.html for root and session paths
		if r.URL.Path == "/" || uuidPathRe.MatchString(r.URL.Path) {
			http.ServeFile(w, r, filepath.Join(clientDir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	}))

	mux.HandleFunc("/ws", hub.serveWS)
	mux.HandleFunc("GET /qr/{sid}", hub.serveInviteQR)
	mux.HandleFunc("GET /api/leaderboard", hub.serveLeaderboard)
	mux.HandleFunc("GET /api/stats", hub.serveStats)

	return mux
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	ip := extractIP(r)
	if !h.CanAccept(ip) {
		h.log.Warn().Str("ip", ip).Int("conns", h.TotalConns()).Msg("connection refused")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("ip", ip).Msg("upgrade failed")
		return
	}

	h.TrackConnect(ip)

	client := NewClient(h, conn, ip)
	h.register <- client

	go client.WritePump()
	go client.ReadPump()
}

func (h *Hub) serveLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "leaderboard disabled", http.StatusNotFound)
		return
	}
	limit := defaultLeaderboardLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	entries, err := h.db.GetLeaderboard(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("leaderboard query")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (h *Hub) serveStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Peers:    h.ClientCount(),
		Sessions: h.sessions.Count(),
		Events:   map[string]int{},
	}
	if h.analytics != nil {
		events, err := h.analytics.EventCounts(statsWindowDays)
		if err != nil {
			h.log.Error().Err(err).Msg("stats query")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.Events = events
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	json.NewEncoder(w).Encode(v)
}
