// Package stats computes descriptive statistics over simulated populations.
// Every function is a pure pass over the input slice; empty input yields a
// defined zero result rather than an error, and nothing mutates the caller's
// data.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/stochsim/errs"
)

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Summary is the full descriptive record for one population snapshot. It is
// recomputed from scratch by Describe, never updated incrementally.
type Summary struct {
	Count          int      `json:"count"`
	Mean           float64  `json:"mean"`
	Median         float64  `json:"median"`
	Variance       float64  `json:"variance"`
	StdDev         float64  `json:"std_dev"`
	Min            float64  `json:"min"`
	Max            float64  `json:"max"`
	Skewness       float64  `json:"skewness"`
	ExcessKurtosis float64  `json:"excess_kurtosis"`
	Q25            float64  `json:"q25"`
	Q50            float64  `json:"q50"`
	Q75            float64  `json:"q75"`
	CI90           Interval `json:"ci90"`
	CI95           Interval `json:"ci95"`
	CI99           Interval `json:"ci99"`
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// Variance returns the sample variance (n-1 divisor), 0 for fewer than two
// points.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// StdDev returns the sample standard deviation.
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// Min returns the smallest element, 0 for empty input.
func Min(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Min(data)
}

// Max returns the largest element, 0 for empty input.
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return floats.Max(data)
}

// Median averages the two middle order statistics for even-sized input.
func Median(data []float64) float64 {
	return Quantile(data, 0.5)
}

// Quantile linearly interpolates between the order statistics at index
// p*(n-1). p is clamped to [0, 1], so Quantile(data, 0) is the minimum and
// Quantile(data, 1) the maximum. Returns 0 for empty input.
func Quantile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := p * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Skewness returns the third standardized moment, 0 for fewer than three
// points or zero spread.
func Skewness(data []float64) float64 {
	if len(data) < 3 {
		return 0
	}
	m := Mean(data)
	s := StdDev(data)
	if s == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range data {
		d := (x - m) / s
		sum += d * d * d
	}
	return sum / float64(len(data))
}

// ExcessKurtosis returns the fourth standardized moment minus 3, 0 for fewer
// than four points or zero spread.
func ExcessKurtosis(data []float64) float64 {
	if len(data) < 4 {
		return 0
	}
	m := Mean(data)
	s := StdDev(data)
	if s == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range data {
		d := (x - m) / s
		sum += d * d * d * d
	}
	return sum/float64(len(data)) - 3
}

// zScore is the fixed normal-approximation lookup. Levels outside the table
// are rejected by ConfidenceInterval rather than snapped to a neighbour.
func zScore(confidence float64) (float64, bool) {
	switch confidence {
	case 0.80:
		return 1.282, true
	case 0.90:
		return 1.645, true
	case 0.95:
		return 1.960, true
	case 0.99:
		return 2.576, true
	}
	return 0, false
}

// ConfidenceInterval returns mean +/- z*stddev/sqrt(n) for one of the
// canonical confidence levels (0.80, 0.90, 0.95, 0.99). Any other level is an
// invalid-argument error. Empty input yields a zero interval.
func ConfidenceInterval(data []float64, confidence float64) (Interval, error) {
	z, ok := zScore(confidence)
	if !ok {
		return Interval{}, errs.Invalidf("no z-score for confidence level %v", confidence)
	}
	if len(data) == 0 {
		return Interval{}, nil
	}
	m := Mean(data)
	margin := z * StdDev(data) / math.Sqrt(float64(len(data)))
	return Interval{Lower: m - margin, Upper: m + margin}, nil
}

// Describe computes the complete Summary for a population. Empty input yields
// the zero Summary.
func Describe(data []float64) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	ci90, _ := ConfidenceInterval(data, 0.90)
	ci95, _ := ConfidenceInterval(data, 0.95)
	ci99, _ := ConfidenceInterval(data, 0.99)
	return Summary{
		Count:          len(data),
		Mean:           Mean(data),
		Median:         Median(data),
		Variance:       Variance(data),
		StdDev:         StdDev(data),
		Min:            Min(data),
		Max:            Max(data),
		Skewness:       Skewness(data),
		ExcessKurtosis: ExcessKurtosis(data),
		Q25:            Quantile(data, 0.25),
		Q50:            Quantile(data, 0.50),
		Q75:            Quantile(data, 0.75),
		CI90:           ci90,
		CI95:           ci95,
		CI99:           ci99,
	}
}
