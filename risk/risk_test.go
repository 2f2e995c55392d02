package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bcdannyboy/stochsim/errs"
)

func sampleReturns() []float64 {
	return []float64{0.12, -0.10, 0.01, 0.05, -0.02, 0.03, -0.05, 0.08, 0.02, 0.0}
}

func TestCalculateVaR(t *testing.T) {
	returns := sampleReturns()

	// 95% tail of ten observations is the single worst outcome.
	v, err := CalculateVaR(returns, 0.95)
	require.NoError(t, err)
	assert.InDelta(t, -0.10, v, 1e-12)

	// Exactly representable confidence picks the middle order statistic.
	v, err = CalculateVaR(returns, 0.50)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, v, 1e-12)

	t.Run("input order preserved", func(t *testing.T) {
		data := []float64{0.3, -0.1, 0.2}
		_, err := CalculateVaR(data, 0.95)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.3, -0.1, 0.2}, data)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := CalculateVaR(nil, 0.95)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
		_, err = CalculateVaR(returns, 0)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
		_, err = CalculateVaR(returns, 1)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestVaRConfidenceOrdering(t *testing.T) {
	returns := sampleReturns()
	confidences := []float64{0.55, 0.75, 0.90, 0.95, 0.99}

	prev := -1.0
	for i, c := range confidences {
		v, err := CalculateVaR(returns, c)
		require.NoError(t, err)
		if i > 0 {
			assert.LessOrEqual(t, v, prev, "VaR at %v should not exceed VaR at %v", c, confidences[i-1])
		}
		prev = v
	}
}

func TestCalculateCVaR(t *testing.T) {
	// Tail of the worst quarter: index 2, mean of the three worst.
	data := []float64{-4, -3, -2, -1, 1, 2, 3, 4}
	cv, err := CalculateCVaR(data, 0.75)
	require.NoError(t, err)
	assert.InDelta(t, -3.0, cv, 1e-12)

	t.Run("never exceeds VaR", func(t *testing.T) {
		returns := sampleReturns()
		for _, c := range []float64{0.55, 0.75, 0.90, 0.95, 0.99} {
			v, err := CalculateVaR(returns, c)
			require.NoError(t, err)
			cv, err := CalculateCVaR(returns, c)
			require.NoError(t, err)
			assert.LessOrEqual(t, cv, v)
		}
	})

	t.Run("validation", func(t *testing.T) {
		_, err := CalculateCVaR(nil, 0.95)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
		_, err = CalculateCVaR(sampleReturns(), 1.5)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestCalculateVolatility(t *testing.T) {
	assert.Zero(t, CalculateVolatility(nil))
	assert.Zero(t, CalculateVolatility([]float64{0.01}))
	assert.Zero(t, CalculateVolatility([]float64{0.01, 0.01, 0.01}))
	assert.InDelta(t, 0.0134164, CalculateVolatility([]float64{0.01, -0.01, 0.01, -0.01, 0.02}), 1e-6)
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01, 0.02}
	assert.InDelta(t, 4.592, CalculateSharpeRatio(returns, 0.03, 252), 1e-3)

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Zero(t, CalculateSharpeRatio(nil, 0.03, 252))
		assert.Zero(t, CalculateSharpeRatio([]float64{0.01, 0.01}, 0.03, 252))
		assert.Zero(t, CalculateSharpeRatio(returns, 0.03, 0))
	})
}

func TestCalculateMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"strictly increasing", []float64{1, 2, 3, 4, 5}, 0},
		{"monotone decline", []float64{100, 90, 80, 70, 60}, 0.4},
		{"recovery keeps the worst trough", []float64{100, 80, 120, 90}, 0.25},
		{"single price", []float64{42}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateMaxDrawdown(tt.prices), 1e-12)
		})
	}
}

func TestCalculatePortfolioRisk(t *testing.T) {
	asset0 := []float64{0.01, -0.02, 0.03, -0.04, 0.05, -0.06, 0.07, -0.08}
	asset1 := []float64{-0.01, 0.02, -0.03, 0.04, -0.05, 0.06, -0.07, 0.08}

	t.Run("single-asset weight reduces to the asset itself", func(t *testing.T) {
		pr, err := CalculatePortfolioRisk([][]float64{asset0, asset1}, []float64{1, 0}, 0.75)
		require.NoError(t, err)
		wantVaR, err := CalculateVaR(asset0, 0.75)
		require.NoError(t, err)
		assert.InDelta(t, wantVaR, pr.VaR, 1e-12)
		assert.InDelta(t, CalculateVolatility(asset0), pr.Volatility, 1e-12)
	})

	t.Run("offsetting assets cancel", func(t *testing.T) {
		pr, err := CalculatePortfolioRisk([][]float64{asset0, asset1}, []float64{0.5, 0.5}, 0.75)
		require.NoError(t, err)
		assert.InDelta(t, 0, pr.VaR, 1e-12)
		assert.InDelta(t, 0, pr.Volatility, 1e-12)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := CalculatePortfolioRisk(nil, []float64{1}, 0.95)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = CalculatePortfolioRisk([][]float64{asset0}, []float64{0.5, 0.5}, 0.95)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = CalculatePortfolioRisk([][]float64{asset0, asset1[:3]}, []float64{0.5, 0.5}, 0.95)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestCovarianceMatrixAndPortfolioVariance(t *testing.T) {
	up := []float64{0.01, 0.02, 0.03, 0.04}
	down := []float64{-0.01, -0.02, -0.03, -0.04}

	cov, err := CovarianceMatrix([][]float64{up, down})
	require.NoError(t, err)
	r, c := cov.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	// Perfectly anti-correlated assets: off-diagonal equals minus the variance.
	assert.InDelta(t, cov.At(0, 0), -cov.At(0, 1), 1e-12)

	t.Run("variance of an offsetting portfolio is zero", func(t *testing.T) {
		v, err := CalculatePortfolioVariance([]float64{0.5, 0.5}, cov)
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-12)
	})

	t.Run("known diagonal covariance", func(t *testing.T) {
		diag := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.09})
		v, err := CalculatePortfolioVariance([]float64{0.5, 0.5}, diag)
		require.NoError(t, err)
		assert.InDelta(t, 0.0325, v, 1e-12)
	})

	t.Run("degenerate and invalid", func(t *testing.T) {
		v, err := CalculatePortfolioVariance(nil, nil)
		require.NoError(t, err)
		assert.Zero(t, v)

		diag := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.09})
		_, err = CalculatePortfolioVariance([]float64{1, 2, 3}, diag)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = CovarianceMatrix([][]float64{up, down[:2]})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestCalculateBeta(t *testing.T) {
	market := []float64{0.01, -0.02, 0.03, -0.01, 0.02}

	b, err := CalculateBeta(market, market)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, b, 1e-12)

	levered := make([]float64, len(market))
	for i, r := range market {
		levered[i] = 2 * r
	}
	b, err = CalculateBeta(levered, market)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, b, 1e-12)

	t.Run("flat market has no beta", func(t *testing.T) {
		b, err := CalculateBeta(market, []float64{0.01, 0.01, 0.01, 0.01, 0.01})
		require.NoError(t, err)
		assert.Zero(t, b)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := CalculateBeta(market, market[:3])
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
		_, err = CalculateBeta([]float64{1}, []float64{1})
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestAnalyze(t *testing.T) {
	returns := sampleReturns()
	prices := []float64{100, 102, 99, 105, 103}

	report, err := Analyze(returns, prices, 0.95, 0.03, 252)
	require.NoError(t, err)

	assert.Equal(t, 0.95, report.Confidence)
	assert.InDelta(t, -0.10, report.VaR, 1e-12)
	assert.LessOrEqual(t, report.CVaR, report.VaR)
	assert.Positive(t, report.Volatility)
	assert.InDelta(t, CalculateMaxDrawdown(prices), report.MaxDrawdown, 1e-12)

	_, err = Analyze(nil, prices, 0.95, 0.03, 252)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
