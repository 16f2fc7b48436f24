package main

import (
	"errors"
	"math"
)

var (
	ErrAlreadyJoined  = errors.New("already joined")
	ErrGameOver       = errors.New("game is over")
	ErrGameInProgress = errors.New("game in progress")
	ErrNotNavigator   = errors.New("not navigator")
	ErrNotGunner      = errors.New("not gunner")
	ErrNotJoined      = errors.New("not joined")
)

// Command handlers only touch intent fields and the roster. Locations and
// angles of existing entities change in Tick alone.

// JoinGame gives p a fresh ship at the spawn point and spawns one enemy
func (w *World) JoinGame(p PlayerID, rng Rand) error {
	if w.ShipOf(p) != nil {
		return ErrAlreadyJoined
	}
	if w.GameOver() {
		return ErrGameOver
	}
	w.addFriendly(NewFriendlyShip(w.newID(), p, w.cfg))
	w.spawnEnemy(rng)
	return nil
}

// PlayAgain restarts a finished game. Ships keep their identity, crew and
// position; everything else returns to its initial value.
func (w *World) PlayAgain() error {
	if !w.GameOver() {
		return ErrGameInProgress
	}
	for _, s := range w.friendlies.All() {
		s.Target = nil
		s.Lives = w.cfg.StartLives
		s.FireCooldown = w.cfg.PlayerFireCooldown
	}
	w.enemies.Clear()
	w.projectiles.Clear()
	w.Score = 0
	w.SpawnCooldown = w.cfg.EnemySpawnCooldown
	return nil
}

// ThrustTowards sets where p's ship flies. A nil location stops thrusting.
func (w *World) ThrustTowards(p PlayerID, loc *Point2D) error {
	var ship *FriendlyShip
	for _, s := range w.friendlies.All() {
		if s.Navigator == p {
			ship = s
			break
		}
	}
	if ship == nil {
		return ErrNotNavigator
	}
	if loc == nil {
		ship.Target = nil
		return nil
	}
	t := *loc
	ship.Target = &t
	return nil
}

// SetTurretTarget points the turret of the ship p mans as gunner at loc.
// The angle is set once; it does not track the point afterwards.
func (w *World) SetTurretTarget(p PlayerID, loc *Point2D) error {
	var ship *FriendlyShip
	for _, s := range w.friendlies.All() {
		if s.HasGunner() && s.Gunner == p {
			ship = s
			break
		}
	}
	if ship == nil {
		return ErrNotGunner
	}
	if loc == nil {
		return nil
	}
	ship.TurretAngle = math.Atan2(loc.Y-ship.Location.Y, loc.X-ship.Location.X)
	return nil
}
