package main

import (
	"sync"

	"github.com/rs/zerolog"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to sessions
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	cfg       Config
	db        *DB
	auth      *Auth
	analytics *Analytics
	log       zerolog.Logger
}

// HubDeps are the optional services a Hub wires into its sessions. A nil
// DB disables accounts and the leaderboard.
type HubDeps struct {
	DB        *DB
	Auth      *Auth
	Analytics *Analytics
	Logger    zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(cfg Config, deps HubDeps) *Hub {
	gameDeps := GameDeps{Logger: deps.Logger}
	if deps.DB != nil {
		gameDeps.Records = deps.DB
	}
	if deps.Analytics != nil {
		gameDeps.Analytics = deps.Analytics
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		sessions:   NewSessionManager(cfg, gameDeps),
		ipConns:    make(map[string]int),
		cfg:        cfg,
		db:         deps.DB,
		auth:       deps.Auth,
		analytics:  deps.Analytics,
		log:        deps.Logger.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until done is closed
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if client.sessionID != "" {
				h.sessions.Release(client.sessionID, client)
			}

		case <-done:
			h.sessions.StopAll()
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
