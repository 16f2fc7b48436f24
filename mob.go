package main

import "math"

const maxSpawnAttempts = 32

// EnemyShip is an AI ship that chases the nearest living friendly
type EnemyShip struct {
	ID           int
	Location     Point2D
	Angle        float64
	FireCooldown float64
}

// NearestLivingFriendly returns the closest ship with lives left, or nil.
// Ties keep the first ship seen.
func NearestLivingFriendly(loc Point2D, ships []*FriendlyShip) *FriendlyShip {
	var nearest *FriendlyShip
	best := 0.0
	for _, s := range ships {
		if !s.Alive() {
			continue
		}
		d := Distance(s.Location, loc)
		if nearest == nil || d < best {
			nearest = s
			best = d
		}
	}
	return nearest
}

// SpawnEnemy places a new enemy at a random location at least two ship
// radii away from the nearest living friendly. After maxSpawnAttempts
// rejected samples it uses the world corner farthest from every living ship.
func SpawnEnemy(id int, ships []*FriendlyShip, rng Rand, cfg SimConfig) *EnemyShip {
	minSep := 2 * cfg.ShipRadius
	var loc Point2D
	placed := false
	for i := 0; i < maxSpawnAttempts; i++ {
		loc = randomLocation(rng, cfg)
		nearest := NearestLivingFriendly(loc, ships)
		if nearest == nil || Distance(loc, nearest.Location) >= minSep {
			placed = true
			break
		}
	}
	if !placed {
		loc = farthestCorner(ships, cfg)
	}
	return &EnemyShip{
		ID:           id,
		Location:     loc,
		FireCooldown: cfg.EnemyFireCooldown,
	}
}

func randomLocation(rng Rand, cfg SimConfig) Point2D {
	return Point2D{
		X: float64(rng.Natural(int(cfg.WorldWidth))),
		Y: float64(rng.Natural(int(cfg.WorldHeight))),
	}
}

// farthestCorner picks the corner whose nearest living ship is farthest away
func farthestCorner(ships []*FriendlyShip, cfg SimConfig) Point2D {
	corners := [4]Point2D{
		{0, 0},
		{cfg.WorldWidth, 0},
		{0, cfg.WorldHeight},
		{cfg.WorldWidth, cfg.WorldHeight},
	}
	best, bestDist := corners[0], -1.0
	for _, c := range corners {
		d := math.Inf(1)
		if s := NearestLivingFriendly(c, ships); s != nil {
			d = Distance(c, s.Location)
		}
		if d > bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Update turns toward the nearest living friendly and flies at it.
// With no living friendly the enemy idles.
func (e *EnemyShip) Update(dt float64, ships []*FriendlyShip, cfg SimConfig) {
	target := NearestLivingFriendly(e.Location, ships)
	if target == nil {
		return
	}
	e.Angle = turnTowards(e.Angle, AngleTo(e.Location, target.Location), cfg.TurnRate)
	e.Location = advance(e.Location, e.Angle, cfg.EnemyShipSpeed*dt)
}

// InFireRange reports whether the nearest living friendly is close enough to shoot at
func (e *EnemyShip) InFireRange(ships []*FriendlyShip, cfg SimConfig) bool {
	target := NearestLivingFriendly(e.Location, ships)
	return target != nil && Distance(e.Location, target.Location) < cfg.SafeAreaWidth
}

// ToState converts to protocol state
func (e *EnemyShip) ToState() ShipState {
	return ShipState{
		ID:       e.ID,
		Type:     EntityEnemy,
		Location: e.Location,
		Angle:    e.Angle,
	}
}
