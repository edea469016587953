package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinMax(t *testing.T) {
	require.Equal(t, 3, Min(3, 9))
	require.Equal(t, 9, Min(9, 3))
	require.Equal(t, 9, Max(3, 9))
	require.Equal(t, 9, Max(9, 3))
}

func TestRounddownAndRoundup(t *testing.T) {
	require.Equal(t, 4096, Rounddown(4100, 4096))
	require.Equal(t, 4096, Rounddown(4096, 4096))
	require.Equal(t, 8192, Roundup(4100, 4096))
	require.Equal(t, 4096, Roundup(4096, 4096))
	require.Equal(t, 0, Roundup(0, 4096))
}

func TestReadnWritenRoundtripEverySize(t *testing.T) {
	for _, sz := range []int{1, 2, 4, 8} {
		buf := make([]uint8, sz+3)
		Writen(buf, sz, 1, 0x2A)
		require.Equal(t, 0x2A, Readn(buf, sz, 1))
	}
}

func TestReadnOutOfBoundsPanics(t *testing.T) {
	buf := make([]uint8, 4)
	require.Panics(t, func() { Readn(buf, 8, 0) })
	require.Panics(t, func() { Readn(buf, 4, -1) })
}

func TestWritenOutOfBoundsPanics(t *testing.T) {
	buf := make([]uint8, 4)
	require.Panics(t, func() { Writen(buf, 8, 0, 1) })
}

func TestReadnUnsupportedSizePanics(t *testing.T) {
	buf := make([]uint8, 8)
	require.Panics(t, func() { Readn(buf, 3, 0) })
}
