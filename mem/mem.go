// Package mem simulates physical memory allocation: a fixed pool of
// fixed-size pages, refcounted and handed out from a free list, the way
// the teacher's Physmem_t does on bare metal. This module runs as an
// ordinary user-mode process rather than as its own kernel, so there is
// no direct-mapped virtual memory, no per-CPU TLB bookkeeping, and no
// custom-runtime hooks (runtime.Get_phys/CPUHint/MAXCPUS): a "physical
// address" here is just an index into an in-process page pool, and
// Dmap resolves it with a plain slice index instead of pointer
// arithmetic into a direct map.
package mem

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"
)

/// PGSHIFT is the base-2 exponent for the page size.
const PGSHIFT uint = 12

/// PGSIZE is the size of a single page in bytes.
const PGSIZE int = 1 << PGSHIFT

/// PGOFFSET masks offsets within a page.
const PGOFFSET Pa_t = 0xfff

/// PGMASK masks the page number of an address.
const PGMASK Pa_t = ^(PGOFFSET)

/// Page table entry bits, preserved for the page-directory structures
/// vm builds on top of this allocator.
const (
	PTE_P    Pa_t = 1 << 0
	PTE_W    Pa_t = 1 << 1
	PTE_U    Pa_t = 1 << 2
	PTE_PCD  Pa_t = 1 << 4
	PTE_PS   Pa_t = 1 << 7
	PTE_G    Pa_t = 1 << 8
	PTE_ADDR Pa_t = PGMASK
)

/// Pa_t represents a simulated physical address: a page index shifted
/// left by PGSHIFT, exactly as a real physical address would be, so the
/// PTE_ADDR masking logic above continues to work unmodified.
type Pa_t uintptr

/// Bytepg_t is a byte addressed page.
type Bytepg_t [PGSIZE]uint8

/// Pg_t is a generic page of ints.
type Pg_t [512]int

/// Pmap_t is a page table page.
type Pmap_t [512]Pa_t

/// Unpin_i allows unpinning of physical pages.
type Unpin_i interface {
	Unpin(Pa_t)
}

/// Page_i abstracts physical page allocation.
type Page_i interface {
	Refpg_new() (*Pg_t, Pa_t, bool)
	Refpg_new_nozero() (*Pg_t, Pa_t, bool)
	Refcnt(Pa_t) int
	Dmap(Pa_t) *Pg_t
	Refup(Pa_t)
	Refdown(Pa_t) bool
}

/// Pg2bytes reinterprets a page of ints as a page of bytes. This is a
/// view onto the same backing array, not a copy: writes through the
/// returned pointer are writes to the frame pg itself, which every vm
/// caller (Pagefault's file-backed fill, Userdmap8, Unmap's write-back)
/// relies on.
func Pg2bytes(pg *Pg_t) *Bytepg_t {
	return (*Bytepg_t)(unsafe.Pointer(pg))
}

func _pg2pgn(p_pg Pa_t) uint32 {
	return uint32(p_pg >> PGSHIFT)
}

/// Physpg_t describes a single simulated physical page.
type Physpg_t struct {
	page   Pg_t
	Refcnt int32
	nexti  uint32 // index into pgs of next page on free list
}

/// Physmem_t manages all simulated physical memory for the system: a
/// fixed-size page pool with a singly linked free list and per-page
/// refcounts, protected by one mutex (there is no real multicore
/// contention to stripe across here).
type Physmem_t struct {
	sync.Mutex
	Pgs     []Physpg_t
	startn  uint32
	freei   uint32
	freelen int32
}

/// Refaddr returns the refcount pointer and index for the given page.
func (phys *Physmem_t) Refaddr(p_pg Pa_t) (*int32, uint32) {
	idx := _pg2pgn(p_pg) - phys.startn
	return &phys.Pgs[idx].Refcnt, idx
}

func (phys *Physmem_t) _refpg_new() (*Pg_t, Pa_t, bool) {
	phys.Lock()
	defer phys.Unlock()

	ff := phys.freei
	if ff == ^uint32(0) {
		return nil, 0, false
	}
	phys.freei = phys.Pgs[ff].nexti
	phys.freelen--
	if phys.freelen < 0 {
		panic("no")
	}
	if phys.Pgs[ff].Refcnt < 0 {
		panic("negative ref count")
	}
	p_pg := Pa_t(ff+phys.startn) << PGSHIFT
	return &phys.Pgs[ff].page, p_pg, true
}

/// Refcnt returns the current reference count of a page.
func (phys *Physmem_t) Refcnt(p_pg Pa_t) int {
	ref, _ := phys.Refaddr(p_pg)
	return int(atomic.LoadInt32(ref))
}

/// Refup increments the reference count of a page.
func (phys *Physmem_t) Refup(p_pg Pa_t) {
	ref, _ := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, 1)
	if c <= 0 {
		panic("wut")
	}
}

func (phys *Physmem_t) _refdec(p_pg Pa_t) (bool, uint32) {
	ref, idx := phys.Refaddr(p_pg)
	c := atomic.AddInt32(ref, -1)
	if c < 0 {
		panic("wut")
	}
	return c == 0, idx
}

/// Refdown decrements the reference count of a page, returning true
/// when the page was freed (refcount hit zero).
func (phys *Physmem_t) Refdown(p_pg Pa_t) bool {
	add, idx := phys._refdec(p_pg)
	if !add {
		return false
	}
	phys.Lock()
	phys.Pgs[idx].nexti = phys.freei
	phys.freei = idx
	phys.freelen++
	phys.Unlock()
	return true
}

/// Zeropg is a zero-filled page used to initialize fresh allocations.
var Zeropg = &Pg_t{}

/// Refpg_new allocates a zeroed page and returns its address. The
/// returned page's refcount is not incremented by this call.
func (phys *Physmem_t) Refpg_new() (*Pg_t, Pa_t, bool) {
	pg, p_pg, ok := phys._refpg_new()
	if !ok {
		return nil, 0, false
	}
	*pg = *Zeropg
	return pg, p_pg, true
}

/// Refpg_new_nozero allocates an uninitialised page.
func (phys *Physmem_t) Refpg_new_nozero() (*Pg_t, Pa_t, bool) {
	return phys._refpg_new()
}

/// Pmap_new allocates a new page-table page, falling back to the
/// ordinary page free list (there is no separate pmap free list in
/// this simulation).
func (phys *Physmem_t) Pmap_new() (*Pmap_t, Pa_t, bool) {
	pg, p_pg, ok := phys.Refpg_new()
	if !ok {
		return nil, 0, false
	}
	return (*Pmap_t)(pg2pmapptr(pg)), p_pg, true
}

func pg2pmapptr(pg *Pg_t) *[512]Pa_t {
	var pm [512]Pa_t
	for i := range pm {
		pm[i] = Pa_t(pg[i])
	}
	return &pm
}

/// Dmap resolves a simulated physical address to its backing page.
func (phys *Physmem_t) Dmap(p Pa_t) *Pg_t {
	idx := _pg2pgn(p) - phys.startn
	return &phys.Pgs[idx].page
}

/// Dmap8 returns a byte slice view of the page backing p, starting at
/// p's in-page offset.
func (phys *Physmem_t) Dmap8(p Pa_t) []uint8 {
	bpg := Pg2bytes(phys.Dmap(p))
	off := p & PGOFFSET
	return bpg[off:]
}

/// Pgcount reports the number of free pages remaining in the pool.
func (phys *Physmem_t) Pgcount() int {
	phys.Lock()
	defer phys.Unlock()
	return int(phys.freelen)
}

/// Physmem is the global physical memory allocator instance.
var Physmem = &Physmem_t{}

/// Phys_init initializes the global physical memory allocator with a
/// pool of respgs pages, all plain Go-heap allocations.
func Phys_init(respgs int) *Physmem_t {
	if respgs <= 0 {
		respgs = 1 << 14
	}
	phys := Physmem
	phys.Pgs = make([]Physpg_t, respgs)
	phys.startn = 0
	phys.freei = 0
	phys.freelen = int32(respgs)
	for i := range phys.Pgs {
		if i == respgs-1 {
			phys.Pgs[i].nexti = ^uint32(0)
		} else {
			phys.Pgs[i].nexti = uint32(i + 1)
		}
	}
	fmt.Printf("reserved %v simulated pages (%vMB)\n", respgs, respgs>>8)
	return phys
}
