package main

import (
	"sync"

	"github.com/rs/zerolog"
)

// seqRand replays a fixed sequence of draws, cycling when exhausted.
// Draws above max are clamped to max.
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) Natural(max int) int {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return min(v, max)
}

// farRand spawns every enemy near the bottom right corner, far from the
// spawn point at (100,100).
func farRand() *seqRand {
	return &seqRand{vals: []int{1500, 900}}
}

func testConfig() Config {
	return Config{
		Addr:          ":0",
		PublicURL:     "http://example.test",
		TickRate:      60,
		BroadcastRate: 20,
		Sim:           DefaultSimConfig(),
	}
}

const testDT = 1.0 / 60

// joinedWorld returns a world where each player joined in order
func joinedWorld(rng Rand, players ...PlayerID) *World {
	w := NewWorld(DefaultSimConfig())
	for _, p := range players {
		if err := w.JoinGame(p, rng); err != nil {
			panic(err)
		}
	}
	return w
}

// placeEnemy drops an enemy at loc with a full cooldown
func placeEnemy(w *World, loc Point2D) *EnemyShip {
	e := &EnemyShip{ID: w.newID(), Location: loc, FireCooldown: w.cfg.EnemyFireCooldown}
	w.addEnemy(e)
	return e
}

func placeProjectile(w *World, typ EntityType, loc Point2D, angle float64) *Projectile {
	p := NewProjectile(w.newID(), typ, loc, angle)
	w.addProjectile(p)
	return p
}

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockBroadcaster) jsonCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *mockBroadcaster) binaryFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.binary...)
}

func (m *mockBroadcaster) jsonMessages() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interface{}(nil), m.messages...)
}

// mockRecorder collects finished games
type mockRecorder struct {
	mu   sync.Mutex
	recs []GameRecord
}

func (m *mockRecorder) RecordGame(rec GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type trackedEvent struct {
	Type   string
	Player PlayerID
}

// mockTracker collects analytics events
type mockTracker struct {
	mu     sync.Mutex
	events []trackedEvent
}

func (m *mockTracker) Track(evtType, sessionID string, player PlayerID, data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, trackedEvent{Type: evtType, Player: player})
}

func (m *mockTracker) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
