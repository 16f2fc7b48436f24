package main

// PlayerID identifies a connected player
type PlayerID string

// Role is the seat a player occupies on their ship
type Role int

const (
	RoleNavigator Role = 0
	RoleGunner    Role = 1
)

func (r Role) String() string {
	if r == RoleGunner {
		return "gunner"
	}
	return "navigator"
}

// FriendlyShip is a player ship. The navigator steers it; the gunner, when
// present, aims the turret. Without a gunner the turret follows the hull.
type FriendlyShip struct {
	ID           int
	Location     Point2D
	Angle        float64
	Navigator    PlayerID
	Gunner       PlayerID // "" when the navigator flies alone
	Lives        int
	TurretAngle  float64
	FireCooldown float64
	Target       *Point2D // nil = station keeping
}

// NewFriendlyShip creates a ship at the spawn point with full lives
func NewFriendlyShip(id int, navigator PlayerID, cfg SimConfig) *FriendlyShip {
	return &FriendlyShip{
		ID:           id,
		Location:     cfg.SpawnPoint(),
		Navigator:    navigator,
		Lives:        cfg.StartLives,
		FireCooldown: cfg.PlayerFireCooldown,
	}
}

// Alive reports whether the ship still has lives
func (s *FriendlyShip) Alive() bool {
	return s.Lives > 0
}

// HasGunner reports whether a second player mans the turret
func (s *FriendlyShip) HasGunner() bool {
	return s.Gunner != ""
}

// Crew returns the players aboard, navigator first
func (s *FriendlyShip) Crew() []PlayerID {
	if s.HasGunner() {
		return []PlayerID{s.Navigator, s.Gunner}
	}
	return []PlayerID{s.Navigator}
}

// RoleOf returns the seat p holds on this ship
func (s *FriendlyShip) RoleOf(p PlayerID) (Role, bool) {
	switch {
	case s.Navigator == p:
		return RoleNavigator, true
	case s.HasGunner() && s.Gunner == p:
		return RoleGunner, true
	}
	return 0, false
}

// Update steers toward the target and moves one tick. Ships without a
// target hold position.
func (s *FriendlyShip) Update(dt float64, cfg SimConfig) {
	if s.Target == nil {
		return
	}
	target := *s.Target
	s.Angle = turnTowards(s.Angle, AngleTo(s.Location, target), cfg.TurnRate)
	if !s.HasGunner() {
		s.TurretAngle = s.Angle
	}

	step := cfg.PlayerShipSpeed * dt
	if Distance(s.Location, target) <= step {
		s.Location = target
		s.Target = nil
		return
	}
	s.Location = advance(s.Location, s.Angle, step)
}

// ToState converts to protocol state
func (s *FriendlyShip) ToState() ShipState {
	return ShipState{
		ID:          s.ID,
		Type:        EntityFriendly,
		Location:    s.Location,
		Angle:       s.Angle,
		TurretAngle: s.TurretAngle,
		Lives:       s.Lives,
		Navigator:   s.Navigator,
		Gunner:      s.Gunner,
	}
}
