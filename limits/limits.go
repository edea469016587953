// Package limits tracks system-wide resource limits for the subset of
// kernel resources this module models: open inodes, cached filesystem
// pages, and block-cache slots. The teacher's Syslimit_t also tracked
// socket/ARP/route-table limits for its networking stack; those fields
// are dropped here since networking is out of scope (see DESIGN.md).
package limits

import "sync/atomic"

/// Lhits counts limit hits.
var Lhits int

/// Sysatomic_t is a numeric limit that can be atomically updated.
type Sysatomic_t struct {
	v atomic.Int64
}

/// Syslimit_t tracks system wide resource limits.
type Syslimit_t struct {
	// Sysprocs is the configured ceiling; Nprocs is the live count taken
	// against it by proc.Table_t as processes are created and exited.
	Sysprocs int
	Nprocs   Sysatomic_t
	// number of live in-memory inodes, protected by the open-inode set lock
	Vnodes int
	// additional memory filesystem per-page objects; each file gets one
	// freebie.
	Mfspgs Sysatomic_t
	// block cache slots
	Blocks int
}

/// Syslimit describes the configured system wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

/// MkSysLimit returns a pointer to the default set of limits.
func MkSysLimit() *Syslimit_t {
	s := &Syslimit_t{
		Sysprocs: 1e4,
		Vnodes:   20000,
		Blocks:   100000,
	}
	s.Nprocs.Given(uint(s.Sysprocs))
	return s
}

/// Given increases the limit by the provided amount.
func (s *Sysatomic_t) Given(_n uint) {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	s.v.Add(n)
}

/// Taken tries to decrement the limit by the provided amount.
/// It returns true on success.
func (s *Sysatomic_t) Taken(_n uint) bool {
	n := int64(_n)
	if n < 0 {
		panic("too mighty")
	}
	g := s.v.Add(-n)
	if g >= 0 {
		return true
	}
	s.v.Add(n)
	return false
}

/// Take decrements the limit and reports whether it succeeded.
func (s *Sysatomic_t) Take() bool {
	return s.Taken(1)
}

/// Give increments the limit by one.
func (s *Sysatomic_t) Give() {
	s.Given(1)
}
