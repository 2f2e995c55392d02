package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/bcdannyboy/stochsim/errs"
)

func TestNormalSourceReproducible(t *testing.T) {
	a, err := NewNormalSource(42).DrawVector(64)
	require.NoError(t, err)
	b, err := NewNormalSource(42).DrawVector(64)
	require.NoError(t, err)

	assert.Equal(t, a, b, "equal seeds must replay identical draws")
}

func TestNormalSourceSeedRewinds(t *testing.T) {
	s := NewNormalSource(42)
	a, err := s.DrawVector(16)
	require.NoError(t, err)

	s.Seed(42)
	b, err := s.DrawVector(16)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNormalSourceSeedsDiffer(t *testing.T) {
	a, err := NewNormalSource(1).DrawVector(8)
	require.NoError(t, err)
	b, err := NewNormalSource(2).DrawVector(8)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNormalSourceMoments(t *testing.T) {
	draws, err := NewNormalSource(7).DrawVector(200000)
	require.NoError(t, err)

	assert.InDelta(t, 0, stat.Mean(draws, nil), 0.02)
	assert.InDelta(t, 1, stat.StdDev(draws, nil), 0.02)
}

func TestNormalSourceVectorValidation(t *testing.T) {
	s := NewNormalSource(1)

	_, err := s.DrawVector(0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = s.DrawVector(-3)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestSobolFirstPoints(t *testing.T) {
	s := NewSobolSource()

	// The radical-inverse sequence starts 1/2, 1/4, 3/4, so the mapped
	// draws start at the median and the quartiles.
	assert.Equal(t, 0.0, s.Draw())

	lower := s.Draw()
	upper := s.Draw()
	assert.InDelta(t, -0.6744897501960817, lower, 1e-9)
	assert.InDelta(t, 0.6744897501960817, upper, 1e-9)
	assert.InDelta(t, -upper, lower, 1e-15, "quartile draws mirror each other")
}

func TestSobolSeedRewinds(t *testing.T) {
	s := NewSobolSource()
	a, err := s.DrawVector(5)
	require.NoError(t, err)

	s.Seed(0)
	b, err := s.DrawVector(5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSobolSeedSkipsAhead(t *testing.T) {
	ahead := NewSobolSource()
	ahead.Seed(3)

	fresh := NewSobolSource()
	for i := 0; i < 3; i++ {
		fresh.Draw()
	}

	assert.Equal(t, fresh.Draw(), ahead.Draw())
}

func TestSobolBlockIsBalanced(t *testing.T) {
	// The first 2^k-1 points enumerate {i/2^k}, a set symmetric about 1/2,
	// so the mapped draws cancel almost exactly and their spread is close
	// to a unit normal's.
	s := NewSobolSource()
	draws, err := s.DrawVector(1023)
	require.NoError(t, err)

	assert.InDelta(t, 0, stat.Mean(draws, nil), 1e-9)
	assert.InDelta(t, 1, stat.StdDev(draws, nil), 0.05)
}

func TestSobolVectorValidation(t *testing.T) {
	_, err := NewSobolSource().DrawVector(0)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}
