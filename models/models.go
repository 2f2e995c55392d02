// Package models implements the one-factor stochastic processes that drive
// path simulation. The variants form a closed set behind the Model interface:
// geometric Brownian motion, Vasicek mean reversion, and Hull-White mean
// reversion toward a time-dependent level.
//
// Parameter naming is fixed across the package: mu is drift, kappa is the
// mean-reversion speed, theta the long-run mean, sigma the volatility.
package models

import (
	"math"

	"github.com/bcdannyboy/stochsim/errs"
)

// Model advances a scalar process one increment at a time.
type Model interface {
	Name() string

	// Step produces the next value from x at elapsed time t over the
	// increment dt, using one standard-normal shock z.
	Step(x, t, dt, z float64) (float64, error)

	// Path applies Step once per shock starting from the initial value and
	// records the post-step values: element 0 is the value after the first
	// step, the initial value itself is not part of the output.
	Path(steps int, dt float64, shocks []float64) ([]float64, error)

	InitialValue() float64
}

// Moments is implemented by models with closed-form distribution moments at
// horizon t, used to validate simulated populations.
type Moments interface {
	Mean(t float64) float64
	Variance(t float64) float64
}

var (
	_ Model   = (*GBM)(nil)
	_ Model   = (*Vasicek)(nil)
	_ Model   = (*HullWhite)(nil)
	_ Moments = (*GBM)(nil)
	_ Moments = (*Vasicek)(nil)
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validateStep(dt float64) error {
	if dt <= 0 || !finite(dt) {
		return errs.Invalidf("dt must be positive and finite, got %v", dt)
	}
	return nil
}

// simulatePath runs the shared path loop. step receives the current value,
// the elapsed time at the start of the step, and the shock.
func simulatePath(x0 float64, steps int, dt float64, shocks []float64, step func(x, t, z float64) float64) ([]float64, error) {
	if steps <= 0 {
		return nil, errs.Invalidf("steps must be positive, got %d", steps)
	}
	if err := validateStep(dt); err != nil {
		return nil, err
	}
	if len(shocks) != steps {
		return nil, errs.Invalidf("got %d shocks for %d steps", len(shocks), steps)
	}

	path := make([]float64, steps)
	x := x0
	for i := 0; i < steps; i++ {
		x = step(x, float64(i)*dt, shocks[i])
		path[i] = x
	}
	return path, nil
}
