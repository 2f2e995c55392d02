package simulation

import (
	"time"

	"github.com/bcdannyboy/stochsim/errs"
)

// RunAntithetic simulates numPaths trajectories in mirrored pairs: each odd
// index reuses the preceding path's shock vector with every element exactly
// negated. Pairing damps the variance of the mean estimator for symmetric
// shock distributions. numPaths must be even so every path has a partner.
func (s *Simulator) RunAntithetic(numPaths, numSteps int, dt float64) (*Result, error) {
	start := time.Now()
	if err := validateRun(numPaths, numSteps, dt); err != nil {
		return nil, err
	}
	if numPaths%2 != 0 {
		return nil, errs.Invalidf("antithetic pairing needs an even number of paths, got %d", numPaths)
	}

	base, err := s.drawShocks(numPaths/2, numSteps)
	if err != nil {
		return nil, err
	}
	shocks := make([][]float64, numPaths)
	for i, z := range base {
		mirror := make([]float64, len(z))
		for j, v := range z {
			mirror[j] = -v
		}
		shocks[2*i] = z
		shocks[2*i+1] = mirror
	}

	paths, terminals, err := s.runPaths(shocks, numSteps, dt, 0, numPaths)
	if err != nil {
		return nil, err
	}
	return buildResult(s.model, terminals, paths, numPaths, numSteps, dt, start), nil
}

// RunControlVariate simulates with every drawn shock shifted against a fixed
// reference vector, z[j] - 0.5*reference[j], pulling the sample toward a
// known benchmark. reference must hold one element per step.
func (s *Simulator) RunControlVariate(numPaths, numSteps int, dt float64, reference []float64) (*Result, error) {
	start := time.Now()
	if err := validateRun(numPaths, numSteps, dt); err != nil {
		return nil, err
	}
	if len(reference) != numSteps {
		return nil, errs.Invalidf("got %d reference elements for %d steps", len(reference), numSteps)
	}

	shocks, err := s.drawShocks(numPaths, numSteps)
	if err != nil {
		return nil, err
	}
	for _, z := range shocks {
		for j := range z {
			z[j] -= 0.5 * reference[j]
		}
	}

	paths, terminals, err := s.runPaths(shocks, numSteps, dt, 0, numPaths)
	if err != nil {
		return nil, err
	}
	return buildResult(s.model, terminals, paths, numPaths, numSteps, dt, start), nil
}
