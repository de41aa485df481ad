package math

import "golang.org/x/exp/rand"

// Random is a seeded pseudo random generator. The same seed always yields the
// same sequence, which keeps generated GPU data (SSAO kernels, noise) stable
// between runs.
type Random struct {
	r *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{r: rand.New(rand.NewSource(seed))}
}

// Float32 returns a value in [0, 1).
func (r *Random) Float32() float32 {
	return r.r.Float32()
}

// Float32InRange returns a value in [min, max).
func (r *Random) Float32InRange(min, max float32) float32 {
	return min + r.Float32()*(max-min)
}
