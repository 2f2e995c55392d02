package models

import (
	"math"

	"github.com/bcdannyboy/stochsim/errs"
)

// Vasicek is the additive Ornstein-Uhlenbeck variant: the value is pulled
// toward the long-run mean theta at speed kappa. Unlike GBM the process can
// cross zero; that is a property of the dynamics, not a defect.
type Vasicek struct {
	x0    float64
	kappa float64
	theta float64
	sigma float64
}

// NewVasicek validates and builds a mean-reverting model. The reversion
// speed and volatility must be non-negative, all parameters finite.
func NewVasicek(initial, kappa, theta, sigma float64) (*Vasicek, error) {
	if !finite(initial) {
		return nil, errs.Invalidf("initial value must be finite, got %v", initial)
	}
	if !finite(kappa) || kappa < 0 {
		return nil, errs.Invalidf("reversion speed must be non-negative and finite, got %v", kappa)
	}
	if !finite(theta) {
		return nil, errs.Invalidf("long-term mean must be finite, got %v", theta)
	}
	if !finite(sigma) || sigma < 0 {
		return nil, errs.Invalidf("volatility must be non-negative and finite, got %v", sigma)
	}
	return &Vasicek{x0: initial, kappa: kappa, theta: theta, sigma: sigma}, nil
}

func (v *Vasicek) Name() string { return "Vasicek" }

func (v *Vasicek) InitialValue() float64 { return v.x0 }

// ReversionSpeed returns kappa.
func (v *Vasicek) ReversionSpeed() float64 { return v.kappa }

// LongTermMean returns theta.
func (v *Vasicek) LongTermMean() float64 { return v.theta }

// Volatility returns sigma.
func (v *Vasicek) Volatility() float64 { return v.sigma }

func (v *Vasicek) step(x, dt, z float64) float64 {
	return x + v.kappa*(v.theta-x)*dt + v.sigma*math.Sqrt(dt)*z
}

func (v *Vasicek) Step(x, t, dt, z float64) (float64, error) {
	if err := validateStep(dt); err != nil {
		return 0, err
	}
	return v.step(x, dt, z), nil
}

func (v *Vasicek) Path(steps int, dt float64, shocks []float64) ([]float64, error) {
	return simulatePath(v.x0, steps, dt, shocks, func(x, t, z float64) float64 {
		return v.step(x, dt, z)
	})
}

// Mean is the analytical theta + (x0-theta)*exp(-kappa*t).
func (v *Vasicek) Mean(t float64) float64 {
	return v.theta + (v.x0-v.theta)*math.Exp(-v.kappa*t)
}

// Variance is the analytical sigma^2/(2*kappa)*(1-exp(-2*kappa*t)). At
// kappa == 0 the process degenerates to scaled Brownian motion and the
// exact limit sigma^2*t applies.
func (v *Vasicek) Variance(t float64) float64 {
	if v.kappa == 0 {
		return v.sigma * v.sigma * t
	}
	return v.sigma * v.sigma / (2 * v.kappa) * (1 - math.Exp(-2*v.kappa*t))
}
