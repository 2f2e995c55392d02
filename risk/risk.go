// Package risk derives risk measures from simulated return and price series.
// Series are sorted internally where a measure needs order statistics; the
// caller's slices are never mutated.
package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/stochsim/errs"
	"github.com/bcdannyboy/stochsim/stats"
)

// Report carries the standard measures for one population at one confidence
// level.
type Report struct {
	Confidence  float64 `json:"confidence"`
	VaR         float64 `json:"var"`
	CVaR        float64 `json:"cvar"`
	Volatility  float64 `json:"volatility"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// PortfolioRisk is the measure set for a weighted combination of assets.
type PortfolioRisk struct {
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
	Volatility float64 `json:"volatility"`
}

func validateConfidence(confidence float64) error {
	if confidence <= 0 || confidence >= 1 {
		return errs.Invalidf("confidence level %v outside (0, 1)", confidence)
	}
	return nil
}

// sortedTailIndex returns an ascending copy of returns and the clamped index
// of the (1-confidence) empirical quantile.
func sortedTailIndex(returns []float64, confidence float64) ([]float64, int) {
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	index := int((1 - confidence) * float64(len(sorted)))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted, index
}

// CalculateVaR returns the historical value at risk: the return at the
// (1-confidence) quantile of the ascending-sorted series, so that the
// confidence fraction of outcomes land above it.
func CalculateVaR(returns []float64, confidence float64) (float64, error) {
	if len(returns) == 0 {
		return 0, errs.Invalidf("returns must not be empty")
	}
	if err := validateConfidence(confidence); err != nil {
		return 0, err
	}
	sorted, index := sortedTailIndex(returns, confidence)
	return sorted[index], nil
}

// CalculateCVaR returns the expected shortfall: the mean of every sorted
// return at or below the VaR index.
func CalculateCVaR(returns []float64, confidence float64) (float64, error) {
	if len(returns) == 0 {
		return 0, errs.Invalidf("returns must not be empty")
	}
	if err := validateConfidence(confidence); err != nil {
		return 0, err
	}
	sorted, index := sortedTailIndex(returns, confidence)

	sum := 0.0
	for i := 0; i <= index; i++ {
		sum += sorted[i]
	}
	return sum / float64(index+1), nil
}

// CalculateVolatility returns the sample standard deviation of the series, 0
// for fewer than two points.
func CalculateVolatility(returns []float64) float64 {
	return stats.StdDev(returns)
}

// CalculateSharpeRatio annualizes the mean return by periodsPerYear and the
// volatility by its square root, then returns the excess return per unit of
// volatility. Degenerate inputs (empty series, zero volatility, non-positive
// periods) yield 0 rather than an error.
func CalculateSharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}
	vol := CalculateVolatility(returns)
	if vol == 0 {
		return 0
	}
	annualizedReturn := stats.Mean(returns) * periodsPerYear
	annualizedVol := vol * math.Sqrt(periodsPerYear)
	return (annualizedReturn - riskFreeRate) / annualizedVol
}

// CalculateMaxDrawdown returns the largest peak-to-trough relative decline of
// a price series in time order. Unlike the quantile measures this is
// order-sensitive.
func CalculateMaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	peak := prices[0]
	maxDrawdown := 0.0
	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak == 0 {
			continue
		}
		if drawdown := (peak - price) / peak; drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// CalculatePortfolioRisk combines per-asset return series with the given
// weights into a single portfolio series and measures it. All series must
// have the same length and one weight per asset.
func CalculatePortfolioRisk(assetReturns [][]float64, weights []float64, confidence float64) (PortfolioRisk, error) {
	if len(assetReturns) == 0 || len(assetReturns[0]) == 0 {
		return PortfolioRisk{}, errs.Invalidf("asset returns must not be empty")
	}
	if len(weights) != len(assetReturns) {
		return PortfolioRisk{}, errs.Invalidf("got %d weights for %d assets", len(weights), len(assetReturns))
	}
	periods := len(assetReturns[0])
	for i, series := range assetReturns {
		if len(series) != periods {
			return PortfolioRisk{}, errs.Invalidf("asset %d has %d returns, want %d", i, len(series), periods)
		}
	}

	portfolio := make([]float64, periods)
	for t := 0; t < periods; t++ {
		for j, series := range assetReturns {
			portfolio[t] += weights[j] * series[t]
		}
	}

	v, err := CalculateVaR(portfolio, confidence)
	if err != nil {
		return PortfolioRisk{}, err
	}
	cv, err := CalculateCVaR(portfolio, confidence)
	if err != nil {
		return PortfolioRisk{}, err
	}
	return PortfolioRisk{
		VaR:        v,
		CVaR:       cv,
		Volatility: CalculateVolatility(portfolio),
	}, nil
}

// CovarianceMatrix builds the sample covariance matrix of the per-asset
// return series, assets as columns.
func CovarianceMatrix(assetReturns [][]float64) (*mat.SymDense, error) {
	if len(assetReturns) == 0 || len(assetReturns[0]) < 2 {
		return nil, errs.Invalidf("covariance needs at least one asset with two returns")
	}
	periods := len(assetReturns[0])
	for i, series := range assetReturns {
		if len(series) != periods {
			return nil, errs.Invalidf("asset %d has %d returns, want %d", i, len(series), periods)
		}
	}

	data := mat.NewDense(periods, len(assetReturns), nil)
	for j, series := range assetReturns {
		for t, v := range series {
			data.Set(t, j, v)
		}
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	return &cov, nil
}

// CalculatePortfolioVariance returns w' * Sigma * w for a weight vector and a
// covariance matrix. Empty inputs yield 0; a dimension mismatch is an error.
func CalculatePortfolioVariance(weights []float64, cov *mat.SymDense) (float64, error) {
	if len(weights) == 0 || cov == nil {
		return 0, nil
	}
	r, _ := cov.Dims()
	if r != len(weights) {
		return 0, errs.Invalidf("covariance matrix is %dx%d, want %d weights", r, r, r)
	}
	w := mat.NewVecDense(len(weights), weights)
	var tmp mat.VecDense
	tmp.MulVec(cov, w)
	return mat.Dot(w, &tmp), nil
}

// CalculateBeta returns cov(asset, market) / var(market). The series must
// have the same length with at least two points; zero market variance yields
// a beta of 0.
func CalculateBeta(assetReturns, marketReturns []float64) (float64, error) {
	if len(assetReturns) != len(marketReturns) || len(assetReturns) < 2 {
		return 0, errs.Invalidf("beta needs two equal-length series with at least 2 points")
	}
	marketVariance := stat.Variance(marketReturns, nil)
	if marketVariance == 0 {
		return 0, nil
	}
	return stat.Covariance(assetReturns, marketReturns, nil) / marketVariance, nil
}

// Analyze produces the full Report for a return series, using the price
// series (time order) for the drawdown component.
func Analyze(returns, prices []float64, confidence, riskFreeRate, periodsPerYear float64) (Report, error) {
	v, err := CalculateVaR(returns, confidence)
	if err != nil {
		return Report{}, err
	}
	cv, err := CalculateCVaR(returns, confidence)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Confidence:  confidence,
		VaR:         v,
		CVaR:        cv,
		Volatility:  CalculateVolatility(returns),
		SharpeRatio: CalculateSharpeRatio(returns, riskFreeRate, periodsPerYear),
		MaxDrawdown: CalculateMaxDrawdown(prices),
	}, nil
}
