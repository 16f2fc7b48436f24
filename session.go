package main

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const maxSessions = 100

// SessionIdleTimeout is how long a session without connections survives.
// It is read when a SessionManager is created.
var SessionIdleTimeout = 30 * time.Second

// Session represents a game session that players can join
type Session struct {
	ID   string
	Name string
	Seed uint64
	Game *Game
}

// SessionManager handles creation and lookup of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      Config
	deps     GameDeps
	seq      uint64
	idle     time.Duration
	log      zerolog.Logger
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(cfg Config, deps GameDeps) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		deps:     deps,
		idle:     SessionIdleTimeout,
		log:      deps.Logger.With().Str("component", "sessions").Logger(),
	}
}

// CreateSession starts a new game session. Returns nil if limit reached.
func (sm *SessionManager) CreateSession(name string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	sm.seq++
	seed := rand.Uint64()
	if sm.cfg.Seed != 0 {
		seed = uint64(sm.cfg.Seed) + sm.seq - 1
	}

	id := GenerateUUID()
	sess := &Session{
		ID:   id,
		Name: name,
		Seed: seed,
		Game: NewGame(id, sm.cfg, NewRand(seed), sm.deps),
	}
	sm.sessions[id] = sess
	go sess.Game.Run()
	sm.scheduleReap(id)

	sm.log.Info().Str("session", id).Str("name", name).Uint64("seed", seed).Msg("session created")
	if sm.deps.Analytics != nil {
		sm.deps.Analytics.Track(EvtSessionStart, id, "", name)
	}
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Release detaches a connection from a session. Sessions left without
// connections are removed after SessionIdleTimeout.
func (sm *SessionManager) Release(sessionID string, client Broadcaster) {
	sess := sm.GetSession(sessionID)
	if sess == nil {
		return
	}
	sess.Game.Detach(client)
	if sess.Game.ClientCount() == 0 {
		sm.scheduleReap(sessionID)
	}
}

func (sm *SessionManager) scheduleReap(id string) {
	time.AfterFunc(sm.idle, func() { sm.reapIfIdle(id) })
}

func (sm *SessionManager) reapIfIdle(id string) {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	if !ok || sess.Game.ClientCount() > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.sessions, id)
	sm.mu.Unlock()

	sess.Game.Stop()
	sm.log.Info().Str("session", id).Msg("idle session removed")
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Players: sess.Game.ClientCount(),
		})
	}
	return list
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// StopAll halts every game loop, for shutdown
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, sess := range sm.sessions {
		sess.Game.Stop()
		delete(sm.sessions, id)
	}
}
