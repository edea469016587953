// Package bounds names the kernel-heap cost of the small number of call
// sites that loop while holding the per-process page-table lock (vm's user
// buffer copy loops). The real kernel must know, ahead of time, the most
// heap it could possibly need per loop iteration so it can refuse the
// operation up front (ENOHEAP) instead of blocking on allocation while
// holding a lock another thread needs to make forward progress -- blocking
// there could deadlock the allocator against itself.
//
// This package was referenced by the teacher's vm/as.go and
// vm/userbuf.go (res.Resadd_noblock(bounds.Bounds(...))) but its source
// was not part of the retrieval pack; it is rebuilt here from those call
// sites plus the obvious invariant (each loop iteration touches at most a
// handful of small kernel objects, so the bound is a small constant).
package bounds

/// Bound_t identifies a call site whose per-iteration heap cost is known
/// statically.
type Bound_t int

const (
	B_ASPACE_T_K2USER_INNER Bound_t = iota
	B_ASPACE_T_USER2K_INNER
	B_USERBUF_T__TX
	B_USERIOVEC_T_IOV_INIT
	B_USERIOVEC_T__TX
)

// costs holds the heap-unit cost charged per iteration for each site. The
// exact numbers are not load-bearing -- what matters is that every looping
// copy charges a bounded, known cost before it runs an iteration that
// might need to fault in a page table entry.
var costs = map[Bound_t]int{
	B_ASPACE_T_K2USER_INNER: 2,
	B_ASPACE_T_USER2K_INNER: 2,
	B_USERBUF_T__TX:         2,
	B_USERIOVEC_T_IOV_INIT:  1,
	B_USERIOVEC_T__TX:       2,
}

/// Bounds returns the heap-unit cost of one iteration at the named call
/// site.
func Bounds(b Bound_t) int {
	c, ok := costs[b]
	if !ok {
		panic("unbounded call site")
	}
	return c
}
