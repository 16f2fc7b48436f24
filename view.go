package main

// UserState projects the world for one player. Dead friendlies are hidden
// from everyone except their own crew. The world is not modified.
func (w *World) UserState(p PlayerID) GameState {
	own := w.ShipOf(p)

	friendlies := w.friendlies.All()
	enemies := w.enemies.All()
	projectiles := w.projectiles.All()

	state := GameState{
		Ships:       make([]ShipState, 0, len(friendlies)+len(enemies)),
		Projectiles: make([]ProjectileState, 0, len(projectiles)),
		Score:       w.Score,
		GameOver:    w.GameOver(),
	}
	for _, s := range friendlies {
		if s.Alive() || s == own {
			state.Ships = append(state.Ships, s.ToState())
		}
	}
	for _, e := range enemies {
		state.Ships = append(state.Ships, e.ToState())
	}
	for _, pr := range projectiles {
		state.Projectiles = append(state.Projectiles, pr.ToState())
	}
	if own != nil {
		role, _ := own.RoleOf(p)
		state.PlayerShip = &PlayerShipState{ID: own.ID, Role: role}
	}
	return state
}
