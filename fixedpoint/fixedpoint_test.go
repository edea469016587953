package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromIntToInt(t *testing.T) {
	require.Equal(t, 5, FromInt(5).ToInt())
	require.Equal(t, -5, FromInt(-5).ToInt())
	require.Equal(t, 0, FromInt(0).ToInt())
}

func TestToIntRound(t *testing.T) {
	half := FromInt(1).DivInt(2)
	require.Equal(t, 1, half.ToIntRound())

	negHalf := FromInt(-1).DivInt(2)
	require.Equal(t, -1, negHalf.ToIntRound())

	require.Equal(t, 3, FromInt(3).ToIntRound())
}

func TestArithmetic(t *testing.T) {
	a := FromInt(3)
	b := FromInt(2)

	require.Equal(t, 5, a.Add(b).ToInt())
	require.Equal(t, 1, a.Sub(b).ToInt())
	require.Equal(t, 6, a.Mul(b).ToInt())
	require.Equal(t, 2, a.Div(b).ToIntRound())
	require.Equal(t, 9, a.MulInt(3).ToInt())
	require.Equal(t, 1, a.DivInt(3).ToInt())
}

func TestLoadDecayConverges(t *testing.T) {
	decay := FromInt(59).Div(FromInt(60))
	comp := FromInt(1).Sub(decay)

	avg := FromInt(0)
	for i := 0; i < 2000; i++ {
		avg = avg.Mul(decay).Add(FromInt(1).Mul(comp))
	}
	// A constant input of 1 every tick should converge close to 1.
	require.InDelta(t, 1.0, float64(avg)/float64(scale), 0.01)
}
