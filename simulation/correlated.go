package simulation

import (
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/bcdannyboy/stochsim/errs"
	"github.com/bcdannyboy/stochsim/logging"
	"github.com/bcdannyboy/stochsim/models"
	"github.com/bcdannyboy/stochsim/random"
)

// CorrelatedSimulator advances several models in lockstep with shocks mixed
// through the Cholesky factor of a correlation matrix, so cross-asset
// co-movement matches the requested correlations.
type CorrelatedSimulator struct {
	models []models.Model
	source random.Source
	lower  *mat.TriDense

	Workers int
	Logger  logging.Logger
}

// NewCorrelatedSimulator factorizes corr eagerly so an unusable matrix is
// rejected before any simulation work happens.
func NewCorrelatedSimulator(ms []models.Model, corr *mat.SymDense, source random.Source) (*CorrelatedSimulator, error) {
	if len(ms) == 0 {
		return nil, errs.Invalidf("need at least one model")
	}
	for i, m := range ms {
		if m == nil {
			return nil, errs.Invalidf("model %d is nil", i)
		}
	}
	if source == nil {
		return nil, errs.Invalidf("shock source must not be nil")
	}
	if corr == nil {
		return nil, errs.Invalidf("correlation matrix must not be nil")
	}
	if n, _ := corr.Dims(); n != len(ms) {
		return nil, errs.Invalidf("correlation matrix is %dx%d for %d models", n, n, len(ms))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(corr); !ok {
		return nil, errs.Invalidf("correlation matrix is not positive definite")
	}
	lower := mat.NewTriDense(len(ms), mat.Lower, nil)
	chol.LTo(lower)

	return &CorrelatedSimulator{
		models: append([]models.Model(nil), ms...),
		source: source,
		lower:  lower,
		Logger: logging.Nop(),
	}, nil
}

// Run returns one Result per model, index-aligned with the constructor's
// model slice. Shocks are drawn model-major then path-major before any
// parallel mixing starts, so fixed seeds reproduce exactly.
func (cs *CorrelatedSimulator) Run(numPaths, numSteps int, dt float64) ([]*Result, error) {
	start := time.Now()
	if err := validateRun(numPaths, numSteps, dt); err != nil {
		return nil, err
	}

	numAssets := len(cs.models)

	shocks := make([][][]float64, numAssets)
	for a := range shocks {
		shocks[a] = make([][]float64, numPaths)
		for p := 0; p < numPaths; p++ {
			v, err := cs.source.DrawVector(numSteps)
			if err != nil {
				return nil, err
			}
			shocks[a][p] = v
		}
	}

	paths := make([][][]float64, numAssets)
	terminals := make([][]float64, numAssets)
	for a := range paths {
		paths[a] = make([][]float64, numPaths)
		terminals[a] = make([]float64, numPaths)
	}

	workers := cs.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > numPaths {
		workers = numPaths
	}
	chunk := (numPaths + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(startIdx int) {
			defer wg.Done()
			end := startIdx + chunk
			if end > numPaths {
				end = numPaths
			}
			raw := mat.NewVecDense(numAssets, nil)
			mixed := mat.NewVecDense(numAssets, nil)
			xs := make([]float64, numAssets)
			for p := startIdx; p < end; p++ {
				for a := 0; a < numAssets; a++ {
					xs[a] = cs.models[a].InitialValue()
					paths[a][p] = make([]float64, numSteps)
				}
				for step := 0; step < numSteps; step++ {
					for a := 0; a < numAssets; a++ {
						raw.SetVec(a, shocks[a][p][step])
					}
					mixed.MulVec(cs.lower, raw)
					t := float64(step) * dt
					for a := 0; a < numAssets; a++ {
						next, err := cs.models[a].Step(xs[a], t, dt, mixed.AtVec(a))
						if err != nil {
							errOnce.Do(func() { firstErr = err })
							return
						}
						xs[a] = next
						paths[a][p][step] = next
					}
				}
				for a := 0; a < numAssets; a++ {
					terminals[a][p] = xs[a]
				}
			}
		}(w * chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	results := make([]*Result, numAssets)
	for a := 0; a < numAssets; a++ {
		results[a] = buildResult(cs.models[a], terminals[a], paths[a], numPaths, numSteps, dt, start)
	}
	cs.logger().Infof("simulated %d correlated paths for %d models in %v", numPaths, numAssets, results[0].Elapsed)
	return results, nil
}

func (cs *CorrelatedSimulator) logger() logging.Logger {
	if cs.Logger == nil {
		return logging.Nop()
	}
	return cs.Logger
}
