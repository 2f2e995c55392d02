// Package convergence judges whether a simulated population is large enough:
// naive and autocorrelation-aware standard errors, effective sample size, and
// a batch-means convergence check.
package convergence

import (
	"math"

	"github.com/bcdannyboy/stochsim/errs"
	"github.com/bcdannyboy/stochsim/stats"
)

// StandardError returns the sample standard deviation over sqrt(n), 0 for
// fewer than two points.
func StandardError(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stats.StdDev(data) / math.Sqrt(float64(len(data)))
}

// EffectiveSampleSize discounts n for positive autocorrelation at lags
// 1..min(10, n/2): ess = n / (1 + 2*avg positive autocorrelation). Data that
// is short, constant, or has no positive autocorrelation keeps its full n.
// The result never exceeds n.
func EffectiveSampleSize(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return float64(n)
	}
	m := stats.Mean(data)
	variance := stats.Variance(data)
	if variance == 0 {
		return float64(n)
	}

	maxLag := 10
	if n/2 < maxLag {
		maxLag = n / 2
	}

	totalAutocorr := 0.0
	positiveLags := 0
	for lag := 1; lag <= maxLag; lag++ {
		autocov := 0.0
		for i := lag; i < n; i++ {
			autocov += (data[i] - m) * (data[i-lag] - m)
		}
		autocorr := autocov / (float64(n-lag) * variance)
		if autocorr > 0 {
			totalAutocorr += autocorr
			positiveLags++
		}
	}
	if positiveLags == 0 {
		return float64(n)
	}

	ess := float64(n) / (1 + 2*totalAutocorr/float64(positiveLags))
	return math.Min(ess, float64(n))
}

// MonteCarloStandardError is the conservative standard error using the
// effective sample size in place of n.
func MonteCarloStandardError(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	ess := EffectiveSampleSize(data)
	if ess < 1 {
		return 0
	}
	return stats.StdDev(data) / math.Sqrt(ess)
}

func blockMeans(data []float64, numBatches int) []float64 {
	batchSize := len(data) / numBatches
	means := make([]float64, numBatches)
	for i := 0; i < numBatches; i++ {
		sum := 0.0
		for j := 0; j < batchSize; j++ {
			sum += data[i*batchSize+j]
		}
		means[i] = sum / float64(batchSize)
	}
	return means
}

// Check splits the data into numBatches contiguous blocks and declares
// convergence when the relative standard error of the block means falls below
// tolerance. The error is taken relative to the overall mean when that mean
// is distinguishable from zero (|mean| > 1e-10), absolute otherwise.
// Zero-variance data converges trivially.
func Check(data []float64, numBatches int, tolerance float64) (bool, error) {
	if numBatches < 2 {
		return false, errs.Invalidf("need at least 2 batches, got %d", numBatches)
	}
	if tolerance <= 0 {
		return false, errs.Invalidf("tolerance must be positive, got %v", tolerance)
	}
	if len(data) < 2*numBatches {
		return false, errs.Invalidf("need at least %d points for %d batches, got %d", 2*numBatches, numBatches, len(data))
	}

	means := blockMeans(data, numBatches)
	se := StandardError(means)
	overall := stats.Mean(means)

	relative := se
	if math.Abs(overall) > 1e-10 {
		relative = se / math.Abs(overall)
	}
	return relative < tolerance, nil
}

// EstimateConvergenceRate returns the batch-mean standard error for every
// batch count from 2 up to len(data)/minBatchSize, letting a caller watch how
// the error shrinks as batches grow. Returns nil when minBatchSize < 10 or
// the data cannot fill two batches.
func EstimateConvergenceRate(data []float64, minBatchSize int) []float64 {
	if minBatchSize < 10 || len(data) < 2*minBatchSize {
		return nil
	}
	maxBatches := len(data) / minBatchSize
	rates := make([]float64, 0, maxBatches-1)
	for numBatches := 2; numBatches <= maxBatches; numBatches++ {
		rates = append(rates, StandardError(blockMeans(data, numBatches)))
	}
	return rates
}

// GelmanRubin returns the potential scale reduction factor across two or more
// equal-length chains; values near 1 indicate the chains agree. Degenerate
// input (fewer than two chains, chains shorter than two points, unequal
// lengths, or zero within-chain variance) yields 1.
func GelmanRubin(chains [][]float64) float64 {
	if len(chains) < 2 || len(chains[0]) < 2 {
		return 1
	}
	n := len(chains[0])
	for _, chain := range chains[1:] {
		if len(chain) != n {
			return 1
		}
	}

	m := float64(len(chains))
	chainMeans := make([]float64, len(chains))
	for i, chain := range chains {
		chainMeans[i] = stats.Mean(chain)
	}
	overall := stats.Mean(chainMeans)

	between := 0.0
	for _, cm := range chainMeans {
		between += (cm - overall) * (cm - overall)
	}
	between = between / (m - 1) * float64(n)

	within := 0.0
	for _, chain := range chains {
		within += stats.Variance(chain)
	}
	within /= m
	if within == 0 {
		return 1
	}

	nf := float64(n)
	pooled := (nf-1)/nf*within + between/nf
	return math.Sqrt(pooled / within)
}
