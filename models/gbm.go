package models

import (
	"math"

	"github.com/bcdannyboy/stochsim/errs"
)

// GBM is the multiplicative geometric Brownian motion variant. Values stay
// strictly positive for finite inputs.
type GBM struct {
	x0    float64
	mu    float64
	sigma float64
}

// NewGBM validates and builds a geometric model: the initial value must be
// positive and finite, the volatility non-negative.
func NewGBM(initial, drift, volatility float64) (*GBM, error) {
	if !finite(initial) || initial <= 0 {
		return nil, errs.Invalidf("initial value must be positive and finite, got %v", initial)
	}
	if !finite(drift) {
		return nil, errs.Invalidf("drift must be finite, got %v", drift)
	}
	if !finite(volatility) || volatility < 0 {
		return nil, errs.Invalidf("volatility must be non-negative and finite, got %v", volatility)
	}
	return &GBM{x0: initial, mu: drift, sigma: volatility}, nil
}

func (g *GBM) Name() string { return "Geometric Brownian Motion" }

func (g *GBM) InitialValue() float64 { return g.x0 }

// Drift returns mu.
func (g *GBM) Drift() float64 { return g.mu }

// Volatility returns sigma.
func (g *GBM) Volatility() float64 { return g.sigma }

func (g *GBM) step(x, dt, z float64) float64 {
	return x * math.Exp((g.mu-0.5*g.sigma*g.sigma)*dt+g.sigma*math.Sqrt(dt)*z)
}

func (g *GBM) Step(x, t, dt, z float64) (float64, error) {
	if err := validateStep(dt); err != nil {
		return 0, err
	}
	return g.step(x, dt, z), nil
}

func (g *GBM) Path(steps int, dt float64, shocks []float64) ([]float64, error) {
	return simulatePath(g.x0, steps, dt, shocks, func(x, t, z float64) float64 {
		return g.step(x, dt, z)
	})
}

// Mean is the analytical expectation x0*exp(mu*t).
func (g *GBM) Mean(t float64) float64 {
	return g.x0 * math.Exp(g.mu*t)
}

// Variance is the analytical x0^2*exp(2*mu*t)*(exp(sigma^2*t) - 1).
func (g *GBM) Variance(t float64) float64 {
	return g.x0 * g.x0 * math.Exp(2*g.mu*t) * (math.Exp(g.sigma*g.sigma*t) - 1)
}
