package main

// Collides reports whether two circles overlap. Touching circles do not
// collide. There is no swept test, so fast bodies can tunnel at low tick rates.
func Collides(a Point2D, ra float64, b Point2D, rb float64) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	radSum := ra + rb
	return dx*dx+dy*dy < radSum*radSum
}
