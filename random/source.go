// Package random supplies the standard normal shock streams that drive
// simulations.
package random

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bcdannyboy/stochsim/errs"
)

// Source yields standard normal draws for path generation. Implementations
// are not safe for concurrent use; simulators draw shock vectors on a single
// goroutine and hand the finished vectors to workers.
type Source interface {
	// Draw returns one standard normal variate.
	Draw() float64
	// DrawVector returns n independent draws.
	DrawVector(n int) ([]float64, error)
	// Seed resets the stream so that equal seeds replay identical draws.
	Seed(seed uint64)
}

var (
	_ Source = (*NormalSource)(nil)
	_ Source = (*SobolSource)(nil)
)

// NormalSource is a pseudo-random stream backed by a seeded PRNG.
type NormalSource struct {
	rng  *rand.Rand
	dist distuv.Normal
}

// NewNormalSource returns a stream seeded with seed.
func NewNormalSource(seed uint64) *NormalSource {
	rng := rand.New(rand.NewSource(seed))
	return &NormalSource{
		rng:  rng,
		dist: distuv.Normal{Mu: 0, Sigma: 1, Src: rng},
	}
}

func (s *NormalSource) Draw() float64 {
	return s.dist.Rand()
}

func (s *NormalSource) DrawVector(n int) ([]float64, error) {
	if n <= 0 {
		return nil, errs.Invalidf("vector length must be positive, got %d", n)
	}
	v := make([]float64, n)
	for i := range v {
		v[i] = s.dist.Rand()
	}
	return v, nil
}

// Seed rewinds the underlying generator to the given seed.
func (s *NormalSource) Seed(seed uint64) {
	s.rng.Seed(seed)
}
