package main

import "math/rand/v2"

// Rand is the random source the simulation draws from. Sessions get their
// own seeded instance so a run can be replayed from its seed.
type Rand interface {
	// Natural returns a uniform integer in [0, max]
	Natural(max int) int
}

type pcgRand struct {
	r *rand.Rand
}

// NewRand returns a deterministic Rand for the given seed
func NewRand(seed uint64) Rand {
	return &pcgRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *pcgRand) Natural(max int) int {
	if max <= 0 {
		return 0
	}
	return p.r.IntN(max + 1)
}
