package convergence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcdannyboy/stochsim/errs"
)

// antiCorrelated has negative autocorrelation at both examined lags (n=4
// caps the lag window at 2), so no positive-lag penalty applies.
func antiCorrelated() []float64 {
	return []float64{1, -1, -1, 1}
}

// trending is strongly positively autocorrelated at every small lag.
func trending(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i)
	}
	return data
}

func TestStandardError(t *testing.T) {
	assert.Zero(t, StandardError(nil))
	assert.Zero(t, StandardError([]float64{5}))

	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.InDelta(t, 3.027650/math.Sqrt(10), StandardError(data), 1e-5)
}

func TestEffectiveSampleSize(t *testing.T) {
	t.Run("short data keeps n", func(t *testing.T) {
		assert.Equal(t, 0.0, EffectiveSampleSize(nil))
		assert.Equal(t, 1.0, EffectiveSampleSize([]float64{3}))
	})

	t.Run("constant data keeps n", func(t *testing.T) {
		assert.Equal(t, 4.0, EffectiveSampleSize([]float64{7, 7, 7, 7}))
	})

	t.Run("negative autocorrelation keeps n", func(t *testing.T) {
		assert.Equal(t, 4.0, EffectiveSampleSize(antiCorrelated()))
	})

	t.Run("positive autocorrelation shrinks n", func(t *testing.T) {
		data := trending(100)
		ess := EffectiveSampleSize(data)
		assert.Less(t, ess, 100.0)
		assert.Positive(t, ess)
	})

	t.Run("never exceeds n", func(t *testing.T) {
		for _, data := range [][]float64{antiCorrelated(), trending(50), {1, 5, 2, 4, 3}} {
			assert.LessOrEqual(t, EffectiveSampleSize(data), float64(len(data)))
		}
	})
}

func TestMonteCarloStandardError(t *testing.T) {
	assert.Zero(t, MonteCarloStandardError([]float64{1}))

	t.Run("equals naive SE without autocorrelation", func(t *testing.T) {
		data := antiCorrelated()
		assert.InDelta(t, StandardError(data), MonteCarloStandardError(data), 1e-12)
	})

	t.Run("exceeds naive SE under autocorrelation", func(t *testing.T) {
		data := trending(100)
		assert.Greater(t, MonteCarloStandardError(data), StandardError(data))
	})
}

func TestCheck(t *testing.T) {
	t.Run("tight data converges", func(t *testing.T) {
		data := make([]float64, 100)
		for i := range data {
			data[i] = 10 + 0.001*float64(i%2)
		}
		converged, err := Check(data, 4, 0.01)
		require.NoError(t, err)
		assert.True(t, converged)
	})

	t.Run("shifting data does not converge", func(t *testing.T) {
		data := make([]float64, 100)
		for i := range data {
			if i < 50 {
				data[i] = 1
			} else {
				data[i] = 2
			}
		}
		converged, err := Check(data, 4, 0.01)
		require.NoError(t, err)
		assert.False(t, converged)
	})

	t.Run("zero variance converges trivially", func(t *testing.T) {
		data := make([]float64, 40)
		for i := range data {
			data[i] = 3.14
		}
		converged, err := Check(data, 4, 1e-9)
		require.NoError(t, err)
		assert.True(t, converged)
	})

	t.Run("validation", func(t *testing.T) {
		data := trending(100)

		_, err := Check(data, 1, 0.01)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = Check(data, 4, 0)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)

		_, err = Check(data[:6], 4, 0.01)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestEstimateConvergenceRate(t *testing.T) {
	data := trending(1000)

	rates := EstimateConvergenceRate(data, 100)
	require.Len(t, rates, 9)
	for _, r := range rates {
		assert.GreaterOrEqual(t, r, 0.0)
	}

	assert.Nil(t, EstimateConvergenceRate(data, 5))
	assert.Nil(t, EstimateConvergenceRate(data[:150], 100))
}

func TestGelmanRubin(t *testing.T) {
	t.Run("agreeing chains are near one", func(t *testing.T) {
		chain := trending(100)
		rhat := GelmanRubin([][]float64{chain, chain, chain})
		assert.InDelta(t, 1.0, rhat, 0.01)
	})

	t.Run("diverging chains exceed one", func(t *testing.T) {
		low := make([]float64, 50)
		high := make([]float64, 50)
		for i := range low {
			low[i] = float64(i % 2)
			high[i] = 100 + float64(i%2)
		}
		assert.Greater(t, GelmanRubin([][]float64{low, high}), 1.5)
	})

	t.Run("degenerate inputs collapse to one", func(t *testing.T) {
		assert.Equal(t, 1.0, GelmanRubin(nil))
		assert.Equal(t, 1.0, GelmanRubin([][]float64{trending(10)}))
		assert.Equal(t, 1.0, GelmanRubin([][]float64{trending(10), trending(5)}))
		assert.Equal(t, 1.0, GelmanRubin([][]float64{{2, 2, 2}, {2, 2, 2}}))
	})
}
