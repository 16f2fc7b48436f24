package main

import "math"

// maxTriggersPerTick bounds how many shots or spawns one cooldown can
// catch up on in a single tick.
const maxTriggersPerTick = 4

// Tick advances the world by dt seconds. Nothing changes once the game is
// over, and deltas that are not finite and positive are ignored. The phase
// order is significant: movement, then collisions, then firing and spawning.
func (w *World) Tick(rng Rand, sink EventSink, dt float64) {
	if w.GameOver() || !(dt > 0) || math.IsInf(dt, 1) {
		return
	}
	if sink == nil {
		sink = nopSink{}
	}

	w.moveFriendlies(dt)
	w.moveEnemies(dt)
	w.moveProjectiles(dt)

	w.resolveRamming()
	w.resolveMerges()
	w.resolveHits(rng, sink)

	w.fireWeapons(dt)
	w.spawnReinforcements(rng, dt)
}

func (w *World) moveFriendlies(dt float64) {
	for _, s := range w.friendlies.All() {
		s.Update(dt, w.cfg)
	}
}

func (w *World) moveEnemies(dt float64) {
	ships := w.friendlies.All()
	for _, e := range w.enemies.All() {
		e.Update(dt, ships, w.cfg)
	}
}

func (w *World) moveProjectiles(dt float64) {
	gone := make(map[int]bool)
	for _, p := range w.projectiles.All() {
		p.Update(dt, w.cfg)
		if w.cfg.OutOfBounds(p.Location) {
			gone[p.ID] = true
		}
	}
	w.projectiles.RemoveAll(gone)
}

// resolveRamming destroys every enemy that touches a living friendly.
// Ramming is fatal to the friendly whatever its lives, and each enemy
// destroyed this way scores once.
func (w *World) resolveRamming() {
	r := w.cfg.ShipRadius
	enemies := w.enemies.All()
	destroyed := make(map[int]bool)
	for _, s := range w.friendlies.All() {
		if !s.Alive() {
			continue
		}
		for _, e := range enemies {
			if destroyed[e.ID] || !Collides(s.Location, r, e.Location, r) {
				continue
			}
			s.Lives = 0
			w.Score++
			destroyed[e.ID] = true
		}
	}
	w.enemies.RemoveAll(destroyed)
}

// resolveMerges joins touching solo ships into one two-seat ship. The
// earlier ship keeps flying and the later ship's navigator becomes its gunner.
func (w *World) resolveMerges() {
	r := w.cfg.ShipRadius
	ships := w.friendlies.All()
	absorbed := make(map[int]bool)
	for i, a := range ships {
		if absorbed[a.ID] || !a.Alive() || a.HasGunner() {
			continue
		}
		for _, b := range ships[i+1:] {
			if absorbed[b.ID] || !b.Alive() || b.HasGunner() {
				continue
			}
			if Collides(a.Location, r, b.Location, r) {
				a.Gunner = b.Navigator
				absorbed[b.ID] = true
				break
			}
		}
	}
	w.friendlies.RemoveAll(absorbed)
}

// resolveHits applies projectile impacts. Each projectile strikes at most
// one target, the first in roster order. A downed enemy is replaced
// straight away and the replacement can be hit by later projectiles.
func (w *World) resolveHits(rng Rand, sink EventSink) {
	shipR, projR := w.cfg.ShipRadius, w.cfg.ProjectileRadius
	spent := make(map[int]bool)
	killed := make(map[int]bool)

	ships := w.friendlies.All()
	enemies := w.enemies.All()
	w.shipGrid.Clear()
	w.enemyGrid.Clear()
	for i, s := range ships {
		if s.Alive() {
			w.shipGrid.InsertCircle(s.Location, shipR, i)
		}
	}
	for i, e := range enemies {
		w.enemyGrid.InsertCircle(e.Location, shipR, i)
	}

	for _, p := range w.projectiles.All() {
		switch p.Type {
		case EntityEnemy:
			w.hitBuf = w.shipGrid.QueryBuf(p.Location, projR, w.hitBuf[:0])
			for _, i := range w.hitBuf {
				s := ships[i]
				if !s.Alive() || !Collides(s.Location, shipR, p.Location, projR) {
					continue
				}
				s.Lives--
				spent[p.ID] = true
				for _, crew := range s.Crew() {
					sink.Emit(EventHit, crew)
				}
				break
			}
		case EntityFriendly:
			w.hitBuf = w.enemyGrid.QueryBuf(p.Location, projR, w.hitBuf[:0])
			for _, i := range w.hitBuf {
				e := enemies[i]
				if killed[e.ID] || !Collides(e.Location, shipR, p.Location, projR) {
					continue
				}
				w.Score++
				killed[e.ID] = true
				spent[p.ID] = true
				fresh := w.spawnEnemy(rng)
				enemies = append(enemies, fresh)
				w.enemyGrid.InsertCircle(fresh.Location, shipR, len(enemies)-1)
				break
			}
		}
	}
	w.projectiles.RemoveAll(spent)
	w.enemies.RemoveAll(killed)
}

// fireWeapons runs the gun cooldowns. Friendlies always fire along their
// turret; enemies only count down while a living friendly is within range.
func (w *World) fireWeapons(dt float64) {
	ships := w.friendlies.All()
	for _, s := range ships {
		if !s.Alive() {
			continue
		}
		for n := drainCooldown(&s.FireCooldown, dt, w.cfg.PlayerFireCooldown); n > 0; n-- {
			w.addProjectile(NewProjectile(w.newID(), EntityFriendly, s.Location, s.TurretAngle))
		}
	}
	for _, e := range w.enemies.All() {
		if !e.InFireRange(ships, w.cfg) {
			continue
		}
		for n := drainCooldown(&e.FireCooldown, dt, w.cfg.EnemyFireCooldown); n > 0; n-- {
			w.addProjectile(NewProjectile(w.newID(), EntityEnemy, e.Location, e.Angle))
		}
	}
}

func (w *World) spawnReinforcements(rng Rand, dt float64) {
	for n := drainCooldown(&w.SpawnCooldown, dt, w.cfg.EnemySpawnCooldown); n > 0; n-- {
		w.spawnEnemy(rng)
	}
}

// drainCooldown subtracts dt and returns how many periods elapsed, at most
// maxTriggersPerTick. The overshoot carries into the next period; a backlog
// beyond the cap is dropped and the cooldown restarts at a full period.
func drainCooldown(cd *float64, dt, period float64) int {
	*cd -= dt
	n := 0
	for *cd < 0 && n < maxTriggersPerTick {
		*cd += period
		n++
	}
	if *cd < 0 {
		*cd = period
	}
	return n
}
