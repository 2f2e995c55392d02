// Package simulation drives stochastic models over pre-drawn shock vectors
// to build populations of terminal values and full trajectories.
package simulation

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bcdannyboy/stochsim/errs"
	"github.com/bcdannyboy/stochsim/logging"
	"github.com/bcdannyboy/stochsim/models"
	"github.com/bcdannyboy/stochsim/random"
	"github.com/bcdannyboy/stochsim/stats"
)

// maxRetainedPaths bounds how many full trajectories a batched run keeps for
// inspection. Terminal values and returns are always kept for every path.
const maxRetainedPaths = 100

const logEveryBatches = 10

// Simulator runs a model across many independent paths. All shocks are drawn
// sequentially in path-index order before any parallel work starts, so a
// fixed seed yields bit-identical results regardless of Workers.
type Simulator struct {
	model  models.Model
	source random.Source

	// Workers caps the number of concurrent path builders; zero or negative
	// means one per available CPU.
	Workers int
	// Logger receives run milestones. Defaults to a no-op.
	Logger logging.Logger
	// Progress, when set, is invoked once per finished path with the number
	// of completed paths and the total. Calls may arrive concurrently from
	// worker goroutines.
	Progress func(done, total int)
}

// NewSimulator wires a model to a shock source.
func NewSimulator(model models.Model, source random.Source) (*Simulator, error) {
	if model == nil {
		return nil, errs.Invalidf("model must not be nil")
	}
	if source == nil {
		return nil, errs.Invalidf("shock source must not be nil")
	}
	return &Simulator{model: model, source: source, Logger: logging.Nop()}, nil
}

// Result is the population produced by one run.
type Result struct {
	// Model is the display name of the model that produced the run.
	Model string

	// TerminalValues holds the last value of every path.
	TerminalValues []float64
	// Returns holds (terminal-initial)/initial per path. It is nil when the
	// model's initial value is zero.
	Returns []float64
	// Paths holds full trajectories; batched runs retain only the first
	// maxRetainedPaths of them.
	Paths [][]float64

	TerminalSummary stats.Summary
	ReturnSummary   stats.Summary

	NumPaths int
	NumSteps int
	Dt       float64
	Elapsed  time.Duration
}

// TargetProbability reports the fraction of paths whose terminal value
// reached target or better.
func (r *Result) TargetProbability(target float64) float64 {
	if len(r.TerminalValues) == 0 {
		return 0
	}
	count := 0
	for _, v := range r.TerminalValues {
		if v >= target {
			count++
		}
	}
	return float64(count) / float64(len(r.TerminalValues))
}

// Run simulates numPaths independent trajectories of numSteps steps of size
// dt, keeping every full path. Memory grows as numPaths*numSteps; use
// RunBatched for large populations.
func (s *Simulator) Run(numPaths, numSteps int, dt float64) (*Result, error) {
	start := time.Now()
	if err := validateRun(numPaths, numSteps, dt); err != nil {
		return nil, err
	}
	s.logger().Infof("simulating %d %s paths, %d steps, dt=%v", numPaths, s.model.Name(), numSteps, dt)

	shocks, err := s.drawShocks(numPaths, numSteps)
	if err != nil {
		return nil, err
	}
	paths, terminals, err := s.runPaths(shocks, numSteps, dt, 0, numPaths)
	if err != nil {
		return nil, err
	}

	res := buildResult(s.model, terminals, paths, numPaths, numSteps, dt, start)
	s.logger().Infof("simulated %d paths in %v", numPaths, res.Elapsed)
	return res, nil
}

// RunBatched produces the same population as Run, computed in batchSize
// chunks so peak memory stays bounded. Given the same seed the terminal
// values match Run bit for bit; only the retained path window differs.
func (s *Simulator) RunBatched(numPaths, numSteps int, dt float64, batchSize int) (*Result, error) {
	start := time.Now()
	if err := validateRun(numPaths, numSteps, dt); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, errs.Invalidf("batch size must be positive, got %d", batchSize)
	}

	numBatches := (numPaths + batchSize - 1) / batchSize
	s.logger().Infof("simulating %d %s paths in %d batches of up to %d", numPaths, s.model.Name(), numBatches, batchSize)

	terminals := make([]float64, 0, numPaths)
	retained := make([][]float64, 0, min(numPaths, maxRetainedPaths))
	for b := 0; b < numBatches; b++ {
		count := batchSize
		if remaining := numPaths - b*batchSize; count > remaining {
			count = remaining
		}
		shocks, err := s.drawShocks(count, numSteps)
		if err != nil {
			return nil, err
		}
		paths, batchTerminals, err := s.runPaths(shocks, numSteps, dt, len(terminals), numPaths)
		if err != nil {
			return nil, err
		}
		terminals = append(terminals, batchTerminals...)
		for _, p := range paths {
			if len(retained) == maxRetainedPaths {
				break
			}
			retained = append(retained, p)
		}
		if (b+1)%logEveryBatches == 0 || b+1 == numBatches {
			s.logger().Infof("batch %d/%d done, %d paths simulated", b+1, numBatches, len(terminals))
		}
	}

	return buildResult(s.model, terminals, retained, numPaths, numSteps, dt, start), nil
}

// drawShocks pulls one shock vector per path, strictly in path-index order.
func (s *Simulator) drawShocks(numPaths, numSteps int) ([][]float64, error) {
	shocks := make([][]float64, numPaths)
	for i := range shocks {
		v, err := s.source.DrawVector(numSteps)
		if err != nil {
			return nil, err
		}
		shocks[i] = v
	}
	return shocks, nil
}

// runPaths fans path construction out across workers. Each worker owns a
// disjoint index range, so the shared slices need no locking.
func (s *Simulator) runPaths(shocks [][]float64, numSteps int, dt float64, doneOffset, total int) ([][]float64, []float64, error) {
	numPaths := len(shocks)
	paths := make([][]float64, numPaths)
	terminals := make([]float64, numPaths)

	workers := s.Workers
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
		done     int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			end := start + chunk
			if end > numPaths {
				end = numPaths
			}
			for i := start; i < end; i++ {
				path, err := s.model.Path(numSteps, dt, shocks[i])
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
				paths[i] = path
				terminals[i] = path[numSteps-1]
				if s.Progress != nil {
					n := atomic.AddInt64(&done, 1)
					s.Progress(doneOffset+int(n), total)
				}
			}
		}(w * chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return paths, terminals, nil
}

func (s *Simulator) logger() logging.Logger {
	if s.Logger == nil {
		return logging.Nop()
	}
	return s.Logger
}

func buildResult(model models.Model, terminals []float64, paths [][]float64, numPaths, numSteps int, dt float64, start time.Time) *Result {
	res := &Result{
		Model:           model.Name(),
		TerminalValues:  terminals,
		Paths:           paths,
		TerminalSummary: stats.Describe(terminals),
		NumPaths:        numPaths,
		NumSteps:        numSteps,
		Dt:              dt,
	}
	if x0 := model.InitialValue(); x0 != 0 {
		returns := make([]float64, len(terminals))
		for i, v := range terminals {
			returns[i] = (v - x0) / x0
		}
		res.Returns = returns
		res.ReturnSummary = stats.Describe(returns)
	}
	res.Elapsed = time.Since(start)
	return res
}

func validateRun(numPaths, numSteps int, dt float64) error {
	if numPaths <= 0 {
		return errs.Invalidf("number of paths must be positive, got %d", numPaths)
	}
	if numSteps <= 0 {
		return errs.Invalidf("number of steps must be positive, got %d", numSteps)
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return errs.Invalidf("dt must be positive and finite, got %v", dt)
	}
	return nil
}
