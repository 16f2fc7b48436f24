package main

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// GameRecorder stores finished games
type GameRecorder interface {
	RecordGame(rec GameRecord) error
}

// Tracker receives analytics events
type Tracker interface {
	Track(evtType, sessionID string, player PlayerID, data string)
}

// GameDeps are the optional collaborators of a Game. Nil fields are skipped.
type GameDeps struct {
	Records   GameRecorder
	Analytics Tracker
	Logger    zerolog.Logger
}

// Game runs the simulation loop for one session
type Game struct {
	mu             sync.Mutex
	id             string
	world          *World
	rng            Rand
	events         EventBuffer
	clients        map[Broadcaster]PlayerID
	dt             float64
	tickDuration   time.Duration
	broadcastEvery uint64
	tick           uint64
	running        bool
	stop           chan struct{}
	startedAt      time.Time
	over           bool
	deps           GameDeps
	log            zerolog.Logger
}

// NewGame creates a Game around a fresh world
func NewGame(id string, cfg Config, rng Rand, deps GameDeps) *Game {
	every := cfg.TickRate / cfg.BroadcastRate
	if every < 1 {
		every = 1
	}
	return &Game{
		id:             id,
		world:          NewWorld(cfg.Sim),
		rng:            rng,
		clients:        make(map[Broadcaster]PlayerID),
		dt:             1.0 / float64(cfg.TickRate),
		tickDuration:   time.Second / time.Duration(cfg.TickRate),
		broadcastEvery: uint64(every),
		stop:           make(chan struct{}),
		startedAt:      time.Now(),
		deps:           deps,
		log:            deps.Logger.With().Str("session", id).Logger(),
	}
}

// Run starts the game loop. It returns after Stop.
func (g *Game) Run() {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(g.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.step()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.stop:
	default:
		close(g.stop)
	}
	g.running = false
}

// Attach routes snapshots and events for p to client. One player may be
// attached through several connections.
func (g *Game) Attach(p PlayerID, client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[client] = p
}

// Detach stops sending to client. Any ship its player crews stays in the world.
func (g *Game) Detach(client Broadcaster) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, client)
}

// ClientCount returns the number of attached connections
func (g *Game) ClientCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// Join gives p a ship
func (g *Game) Join(p PlayerID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.world.JoinGame(p, g.rng); err != nil {
		return err
	}
	g.log.Info().Str("player", string(p)).Msg("ship joined")
	g.track(EvtShipJoin, p, "")
	return nil
}

// Thrust sets or clears the flight target of p's ship
func (g *Game) Thrust(p PlayerID, loc *Point2D) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world.ThrustTowards(p, loc)
}

// Turret aims the turret p mans
func (g *Game) Turret(p PlayerID, loc *Point2D) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world.SetTurretTarget(p, loc)
}

// PlayAgain restarts a finished game
func (g *Game) PlayAgain(p PlayerID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.world.PlayAgain(); err != nil {
		return err
	}
	g.over = false
	g.startedAt = time.Now()
	g.log.Info().Str("player", string(p)).Msg("game restarted")
	g.track(EvtPlayAgain, p, "")
	return nil
}

// State returns the snapshot p would receive
func (g *Game) State(p PlayerID) GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	state := g.world.UserState(p)
	state.Tick = g.tick
	return state
}

// step runs one tick, then delivers events and, on broadcast ticks, snapshots
func (g *Game) step() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.tick++
	g.world.Tick(g.rng, &g.events, g.dt)
	g.dispatchEvents()
	g.checkGameOver()

	if g.tick%g.broadcastEvery == 0 {
		g.broadcastState()
	}
}

func (g *Game) dispatchEvents() {
	for _, ev := range g.events.Drain() {
		for client, p := range g.clients {
			if p == ev.Player {
				client.SendJSON(Envelope{T: MsgEvent, Data: EventMsg{Name: ev.Name}})
			}
		}
	}
}

// checkGameOver records a game the first tick it is found over
func (g *Game) checkGameOver() {
	over := g.world.GameOver()
	if !over || g.over {
		g.over = over
		return
	}
	g.over = true

	var crew []string
	for _, s := range g.world.Friendlies() {
		for _, p := range s.Crew() {
			crew = append(crew, string(p))
		}
	}
	rec := GameRecord{
		SessionID: g.id,
		Score:     g.world.Score,
		Duration:  time.Since(g.startedAt).Seconds(),
		Crew:      crew,
	}
	g.log.Info().Int("score", rec.Score).Strs("crew", crew).Msg("game over")
	g.track(EvtGameOver, "", strings.Join(crew, ","))

	if g.deps.Records != nil {
		go func() {
			if err := g.deps.Records.RecordGame(rec); err != nil {
				g.log.Error().Err(err).Msg("record game")
			}
		}()
	}
}

func (g *Game) broadcastState() {
	frames := make(map[PlayerID][]byte, len(g.clients))
	for client, p := range g.clients {
		data, ok := frames[p]
		if !ok {
			state := g.world.UserState(p)
			state.Tick = g.tick
			var err error
			data, err = msgpack.Marshal(&state)
			if err != nil {
				g.log.Error().Err(err).Str("player", string(p)).Msg("encode state")
				continue
			}
			frames[p] = data
		}
		client.SendBinary(data)
	}
}

func (g *Game) track(evt string, p PlayerID, data string) {
	if g.deps.Analytics != nil {
		g.deps.Analytics.Track(evt, g.id, p, data)
	}
}
