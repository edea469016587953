package ustr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsdotAndIsdotdot(t *testing.T) {
	require.True(t, Ustr(".").Isdot())
	require.False(t, Ustr("..").Isdot())
	require.False(t, Ustr("a").Isdot())

	require.True(t, Ustr("..").Isdotdot())
	require.False(t, Ustr(".").Isdotdot())
	require.False(t, Ustr("a").Isdotdot())
}

func TestEq(t *testing.T) {
	require.True(t, Ustr("abc").Eq(Ustr("abc")))
	require.False(t, Ustr("abc").Eq(Ustr("abd")))
	require.False(t, Ustr("abc").Eq(Ustr("ab")))
}

func TestMkUstrHelpers(t *testing.T) {
	require.Equal(t, 0, len(MkUstr()))
	require.True(t, MkUstrDot().Isdot())
	require.Equal(t, "/", MkUstrRoot().String())
	require.True(t, DotDot.Isdotdot())
}

func TestMkUstrSliceTruncatesAtNul(t *testing.T) {
	buf := []uint8{'a', 'b', 0, 'c'}
	require.Equal(t, "ab", MkUstrSlice(buf).String())

	noNul := []uint8{'x', 'y', 'z'}
	require.Equal(t, "xyz", MkUstrSlice(noNul).String())
}

func TestExtendAndExtendStr(t *testing.T) {
	base := Ustr("a")
	require.Equal(t, "a/b", base.Extend(Ustr("b")).String())
	require.Equal(t, "a/b", base.ExtendStr("b").String())
	// original must not be mutated by appending
	require.Equal(t, "a", base.String())
}

func TestIsAbsolute(t *testing.T) {
	require.True(t, Ustr("/a/b").IsAbsolute())
	require.False(t, Ustr("a/b").IsAbsolute())
	require.False(t, MkUstr().IsAbsolute())
}

func TestIndexByte(t *testing.T) {
	require.Equal(t, 2, Ustr("ab/cd").IndexByte('/'))
	require.Equal(t, -1, Ustr("abcd").IndexByte('/'))
}

func TestComponentsSplitsAndDropsEmpty(t *testing.T) {
	require.Equal(t, []Ustr{Ustr("a"), Ustr("b")}, Ustr("/a//b/").Components())
	require.Nil(t, Ustr("/").Components())
	require.Equal(t, []Ustr{Ustr("a")}, Ustr("a").Components())
}
