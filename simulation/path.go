package simulation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/stochsim/risk"
)

// PathStats condenses a single trajectory.
type PathStats struct {
	Mean        float64
	StdDev      float64
	Min         float64
	Max         float64
	Final       float64
	MaxDrawdown float64
}

// AnalyzePath summarizes one trajectory. An empty path yields the zero
// value.
func AnalyzePath(path []float64) PathStats {
	if len(path) == 0 {
		return PathStats{}
	}
	ps := PathStats{
		Mean:        stat.Mean(path, nil),
		Min:         floats.Min(path),
		Max:         floats.Max(path),
		Final:       path[len(path)-1],
		MaxDrawdown: risk.CalculateMaxDrawdown(path),
	}
	if len(path) >= 2 {
		ps.StdDev = stat.StdDev(path, nil)
	}
	return ps
}

// PathReturns converts a trajectory to simple per-step returns. Paths
// shorter than two elements have no returns.
func PathReturns(path []float64) []float64 {
	if len(path) < 2 {
		return nil
	}
	returns := make([]float64, len(path)-1)
	for i := 1; i < len(path); i++ {
		returns[i-1] = (path[i] - path[i-1]) / path[i-1]
	}
	return returns
}

// PathLogReturns converts a trajectory to per-step log returns. Pairs with a
// non-positive value contribute a zero return rather than a NaN.
func PathLogReturns(path []float64) []float64 {
	if len(path) < 2 {
		return nil
	}
	returns := make([]float64, len(path)-1)
	for i := 1; i < len(path); i++ {
		if path[i-1] > 0 && path[i] > 0 {
			returns[i-1] = math.Log(path[i] / path[i-1])
		}
	}
	return returns
}
