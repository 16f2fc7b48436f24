package main

import (
	"math"

	"github.com/google/uuid"
)

// Point2D is a location in world coordinates
type Point2D struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// GenerateUUID returns a random v4 UUID string
func GenerateUUID() string {
	return uuid.NewString()
}

// GenerateID returns a short random id for guests and connections
func GenerateID() string {
	return uuid.NewString()[:8]
}

// Distance returns the euclidean distance between two points
func Distance(a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Wrap maps value into [min, max) by modular arithmetic
func Wrap(value, min, max float64) float64 {
	r := max - min
	return min + math.Mod(math.Mod(value-min, r)+r, r)
}

// AngleTo returns the heading from a to b
func AngleTo(a, b Point2D) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// turnTowards rotates angle toward desired by at most rate, snapping when
// the remaining difference is under half a step.
func turnTowards(angle, desired, rate float64) float64 {
	diff := Wrap(desired-angle, -math.Pi, math.Pi)
	if math.Abs(diff) < rate/2 {
		return desired
	}
	if diff < 0 {
		return angle - rate
	}
	return angle + rate
}

// advance moves p by dist along angle
func advance(p Point2D, angle, dist float64) Point2D {
	return Point2D{
		X: p.X + math.Cos(angle)*dist,
		Y: p.Y + math.Sin(angle)*dist,
	}
}
