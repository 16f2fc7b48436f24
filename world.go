package main

// World is the authoritative state of one game. It is not safe for
// concurrent use; Game serializes commands and ticks around it.
type World struct {
	cfg           SimConfig
	friendlies    roster[FriendlyShip]
	enemies       roster[EnemyShip]
	projectiles   roster[Projectile]
	Score         int
	SpawnCooldown float64
	nextID        int

	// broad-phase scratch for resolveHits
	shipGrid  *spatialGrid
	enemyGrid *spatialGrid
	hitBuf    []int
}

// NewWorld returns an empty world ready for players to join
func NewWorld(cfg SimConfig) *World {
	return &World{
		cfg:           cfg,
		friendlies:    newRoster[FriendlyShip](),
		enemies:       newRoster[EnemyShip](),
		projectiles:   newRoster[Projectile](),
		SpawnCooldown: cfg.EnemySpawnCooldown,
		shipGrid:      newSpatialGrid(cfg.WorldWidth, cfg.WorldHeight, gridCellSize(cfg)),
		enemyGrid:     newSpatialGrid(cfg.WorldWidth, cfg.WorldHeight, gridCellSize(cfg)),
	}
}

// newID hands out ids unique across all collections for the world's lifetime
func (w *World) newID() int {
	w.nextID++
	return w.nextID
}

// Friendlies returns the player ships in roster order
func (w *World) Friendlies() []*FriendlyShip {
	return w.friendlies.All()
}

// Enemies returns the enemy ships in roster order
func (w *World) Enemies() []*EnemyShip {
	return w.enemies.All()
}

// Projectiles returns the projectiles in flight in roster order
func (w *World) Projectiles() []*Projectile {
	return w.projectiles.All()
}

// GameOver is true once at least one ship has joined and every ship is out of lives
func (w *World) GameOver() bool {
	if w.friendlies.Len() == 0 {
		return false
	}
	for _, s := range w.friendlies.All() {
		if s.Alive() {
			return false
		}
	}
	return true
}

// ShipOf returns the ship p crews in either seat, or nil
func (w *World) ShipOf(p PlayerID) *FriendlyShip {
	for _, s := range w.friendlies.All() {
		if _, ok := s.RoleOf(p); ok {
			return s
		}
	}
	return nil
}

func (w *World) addFriendly(s *FriendlyShip) {
	w.friendlies.Add(s.ID, s)
}

func (w *World) addEnemy(e *EnemyShip) {
	w.enemies.Add(e.ID, e)
}

func (w *World) addProjectile(p *Projectile) {
	w.projectiles.Add(p.ID, p)
}

func (w *World) spawnEnemy(rng Rand) *EnemyShip {
	e := SpawnEnemy(w.newID(), w.friendlies.All(), rng, w.cfg)
	w.addEnemy(e)
	return e
}
