package main

// EntityType tells the client which side an entity belongs to
type EntityType int

const (
	EntityFriendly EntityType = 0
	EntityEnemy    EntityType = 1
)

// Projectile is a laser bolt flying in a straight line. Friendly bolts
// only damage enemies and enemy bolts only damage friendlies.
type Projectile struct {
	ID       int
	Type     EntityType
	Location Point2D
	Angle    float64
}

// NewProjectile fires a bolt from loc along angle
func NewProjectile(id int, typ EntityType, loc Point2D, angle float64) *Projectile {
	return &Projectile{
		ID:       id,
		Type:     typ,
		Location: loc,
		Angle:    angle,
	}
}

// Update moves the projectile one tick
func (p *Projectile) Update(dt float64, cfg SimConfig) {
	p.Location = advance(p.Location, p.Angle, cfg.ProjectileSpeed*dt)
}

// ToState converts to protocol state
func (p *Projectile) ToState() ProjectileState {
	return ProjectileState{
		ID:       p.ID,
		Type:     p.Type,
		Location: p.Location,
		Angle:    p.Angle,
	}
}
