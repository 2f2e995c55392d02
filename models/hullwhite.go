package models

import (
	"math"

	"github.com/bcdannyboy/stochsim/errs"
)

// ThetaFunc maps elapsed time to the reversion target level.
type ThetaFunc func(t float64) float64

// HullWhite is the Vasicek recursion with a time-dependent target level, for
// processes whose long-run mean moves over the horizon. Each step evaluates
// theta at the time the step starts from.
type HullWhite struct {
	x0    float64
	kappa float64
	sigma float64
	theta ThetaFunc
}

// NewHullWhite validates and builds a time-varying mean-reverting model.
func NewHullWhite(initial, kappa, sigma float64, theta ThetaFunc) (*HullWhite, error) {
	if !finite(initial) {
		return nil, errs.Invalidf("initial value must be finite, got %v", initial)
	}
	if !finite(kappa) || kappa < 0 {
		return nil, errs.Invalidf("reversion speed must be non-negative and finite, got %v", kappa)
	}
	if !finite(sigma) || sigma < 0 {
		return nil, errs.Invalidf("volatility must be non-negative and finite, got %v", sigma)
	}
	if theta == nil {
		return nil, errs.Invalidf("target level function must not be nil")
	}
	return &HullWhite{x0: initial, kappa: kappa, sigma: sigma, theta: theta}, nil
}

func (h *HullWhite) Name() string { return "Hull-White" }

func (h *HullWhite) InitialValue() float64 { return h.x0 }

// ReversionSpeed returns kappa.
func (h *HullWhite) ReversionSpeed() float64 { return h.kappa }

// Volatility returns sigma.
func (h *HullWhite) Volatility() float64 { return h.sigma }

// TargetLevel evaluates theta at time t.
func (h *HullWhite) TargetLevel(t float64) float64 { return h.theta(t) }

func (h *HullWhite) step(x, t, dt, z float64) float64 {
	return x + h.kappa*(h.theta(t)-x)*dt + h.sigma*math.Sqrt(dt)*z
}

func (h *HullWhite) Step(x, t, dt, z float64) (float64, error) {
	if err := validateStep(dt); err != nil {
		return 0, err
	}
	return h.step(x, t, dt, z), nil
}

func (h *HullWhite) Path(steps int, dt float64, shocks []float64) ([]float64, error) {
	return simulatePath(h.x0, steps, dt, shocks, func(x, t, z float64) float64 {
		return h.step(x, t, dt, z)
	})
}
