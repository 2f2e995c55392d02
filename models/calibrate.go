package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/stochsim/errs"
)

// FitGBM estimates an annualized drift and volatility from a historical value
// series via log-return moments. periodsPerYear scales one observation
// interval up to a year (252 for daily trading data, 12 for monthly).
func FitGBM(history []float64, periodsPerYear float64) (drift, volatility float64, err error) {
	if len(history) < 2 {
		return 0, 0, errs.Invalidf("need at least 2 observations to fit, got %d", len(history))
	}
	if !finite(periodsPerYear) || periodsPerYear <= 0 {
		return 0, 0, errs.Invalidf("periods per year must be positive, got %v", periodsPerYear)
	}

	logReturns := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		if history[i-1] <= 0 || history[i] <= 0 {
			return 0, 0, errs.Invalidf("history must be strictly positive to take log returns, got %v at %d", history[i], i)
		}
		logReturns = append(logReturns, math.Log(history[i]/history[i-1]))
	}

	drift = stat.Mean(logReturns, nil) * periodsPerYear
	if len(logReturns) >= 2 {
		volatility = math.Sqrt(stat.Variance(logReturns, nil) * periodsPerYear)
	}
	return drift, volatility, nil
}

// FitVasicek estimates reversion speed, long-term mean and volatility from a
// series sampled at interval dt. The speed and mean come from minimizing the
// one-step squared prediction error with Nelder-Mead; the volatility is then
// backed out of the residuals.
func FitVasicek(history []float64, dt float64) (kappa, theta, sigma float64, err error) {
	if len(history) < 3 {
		return 0, 0, 0, errs.Invalidf("need at least 3 observations to fit, got %d", len(history))
	}
	if !finite(dt) || dt <= 0 {
		return 0, 0, 0, errs.Invalidf("observation interval must be positive, got %v", dt)
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			k, th := p[0], p[1]
			if k < 0 {
				return math.Inf(1)
			}
			sum := 0.0
			for i := 1; i < len(history); i++ {
				pred := history[i-1] + k*(th-history[i-1])*dt
				d := history[i] - pred
				sum += d * d
			}
			return sum
		},
	}

	guess := []float64{1, stat.Mean(history, nil)}
	result, optErr := optimize.Minimize(problem, guess, nil, &optimize.NelderMead{})
	if optErr != nil {
		return 0, 0, 0, fmt.Errorf("vasicek fit failed: %w", optErr)
	}
	kappa, theta = result.X[0], result.X[1]
	if kappa < 0 {
		kappa = 0
	}

	residuals := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		pred := history[i-1] + kappa*(theta-history[i-1])*dt
		residuals = append(residuals, history[i]-pred)
	}
	sigma = math.Sqrt(stat.Variance(residuals, nil) / dt)
	return kappa, theta, sigma, nil
}
