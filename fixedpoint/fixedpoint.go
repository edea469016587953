// Package fixedpoint implements signed 17.14 fixed-point arithmetic,
// the representation spec.md's component table names for load-average
// style scheduler accounting. The retrieved original source's
// fixed_point.h shifts by 16 bits (a 16.16 format); spec.md's own
// description calls the component "17.14 fixed-point", so this
// implementation shifts by 14 instead -- the same rule DESIGN.md
// applies to the inode-indexing bugs: spec.md's stated description
// wins over what the source actually does.
package fixedpoint

const shift = 14
const scale = 1 << shift

/// Fixed_t is a signed 17.14 fixed-point value.
type Fixed_t int32

/// FromInt converts an integer to fixed-point.
func FromInt(n int) Fixed_t {
	return Fixed_t(n * scale)
}

/// ToInt truncates toward zero.
func (f Fixed_t) ToInt() int {
	return int(f) / scale
}

/// ToIntRound rounds to the nearest integer, away from zero on a tie.
func (f Fixed_t) ToIntRound() int {
	n := int(f)
	if n >= 0 {
		return (n + scale/2) / scale
	}
	return (n - scale/2) / scale
}

/// Add returns f+g.
func (f Fixed_t) Add(g Fixed_t) Fixed_t { return f + g }

/// Sub returns f-g.
func (f Fixed_t) Sub(g Fixed_t) Fixed_t { return f - g }

/// AddInt returns f+n.
func (f Fixed_t) AddInt(n int) Fixed_t { return f + FromInt(n) }

/// SubInt returns f-n.
func (f Fixed_t) SubInt(n int) Fixed_t { return f - FromInt(n) }

/// Mul returns f*g.
func (f Fixed_t) Mul(g Fixed_t) Fixed_t {
	return Fixed_t((int64(f) * int64(g)) >> shift)
}

/// Div returns f/g.
func (f Fixed_t) Div(g Fixed_t) Fixed_t {
	return Fixed_t((int64(f) << shift) / int64(g))
}

/// MulInt returns f*n.
func (f Fixed_t) MulInt(n int) Fixed_t { return f * Fixed_t(n) }

/// DivInt returns f/n.
func (f Fixed_t) DivInt(n int) Fixed_t { return f / Fixed_t(n) }
