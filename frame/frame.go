// Package frame hands physical frames out to address spaces and, when
// the pool is exhausted, evicts one to swap on their behalf. It knows
// nothing about page tables or fault handling -- that lives in vm --
// only which frame belongs to which upage and whether that frame may
// currently be chosen as an eviction victim (spec §4.5).
package frame

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/stats"
	"github.com/laonahongchen/PintOS-SJTU/swap"
)

/// Upage_t names the user page a frame backs: an address space plus a
/// page-aligned virtual address.
type Upage_t struct {
	Tid defs.Tid_t
	Va  int
}

/// Victim_i is implemented by an address space so the frame table can
/// evict one of its pages without importing vm back; vm imports frame,
/// never the reverse.
type Victim_i interface {
	EvictPage(upage Upage_t, swapidx int)
}

type entry_t struct {
	upage    Upage_t
	owner    Victim_i
	swapable bool
}

/// Table_t is the system-wide frame table: one entry per allocated
/// physical page, scanned in approximate clock order when eviction is
/// needed.
type Table_t struct {
	sync.Mutex
	phys    *mem.Physmem_t
	sd      *swap.Device_t
	entries map[mem.Pa_t]*entry_t
	order   []mem.Pa_t
	hand    int

	Stats Stats_t
}

/// Stats_t counts frame-table activity, exported via
/// stats.PrometheusGauges by cmd/kernelctl's serve subcommand.
type Stats_t struct {
	Allocations stats.Counter_t
	Evictions   stats.Counter_t
}

/// MkTable builds a frame table over phys, evicting to sd when phys
/// runs out of free pages.
func MkTable(phys *mem.Physmem_t, sd *swap.Device_t) *Table_t {
	return &Table_t{phys: phys, sd: sd, entries: make(map[mem.Pa_t]*entry_t)}
}

/// Get hands back a fresh frame for upage, evicting another frame to
/// swap first if the physical pool is exhausted. The returned frame
/// starts non-swapable: a caller that has not yet finished installing
/// its supplemental page table entry must not have this frame chosen
/// as an eviction victim out from under it. Call SetSwapable once the
/// mapping is complete.
func (t *Table_t) Get(upage Upage_t, owner Victim_i) (*mem.Pg_t, mem.Pa_t, bool) {
	t.Lock()
	defer t.Unlock()

	pg, pa, ok := t.phys.Refpg_new()
	if !ok {
		if !t.evict() {
			return nil, 0, false
		}
		pg, pa, ok = t.phys.Refpg_new()
		if !ok {
			return nil, 0, false
		}
	}
	t.phys.Refup(pa)
	t.entries[pa] = &entry_t{upage: upage, owner: owner, swapable: false}
	t.order = append(t.order, pa)
	t.Stats.Allocations.Inc()
	return pg, pa, true
}

// evict runs one approximate-clock scan over allocated frames looking
// for a swapable one, writes it to swap, and lets its owner update its
// supplemental entry before the physical page is reclaimed.
func (t *Table_t) evict() bool {
	n := len(t.order)
	for i := 0; i < n; i++ {
		idx := (t.hand + i) % n
		pa := t.order[idx]
		ent, ok := t.entries[pa]
		if !ok || !ent.swapable {
			continue
		}
		t.hand = (idx + 1) % n

		swapidx, ok := t.sd.Store(t.phys.Dmap(pa))
		if !ok {
			return false
		}
		ent.owner.EvictPage(ent.upage, swapidx)

		delete(t.entries, pa)
		t.order = append(t.order[:idx], t.order[idx+1:]...)
		t.phys.Refdown(pa)
		t.Stats.Evictions.Inc()
		return true
	}
	return false
}

/// Free releases a previously allocated frame back to the physical
/// pool, removing its frame table entry.
func (t *Table_t) Free(pa mem.Pa_t) {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.entries[pa]; !ok {
		return
	}
	delete(t.entries, pa)
	for i, p := range t.order {
		if p == pa {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.phys.Refdown(pa)
}

/// SetSwapable marks pa as eligible for eviction.
func (t *Table_t) SetSwapable(pa mem.Pa_t) {
	t.Lock()
	defer t.Unlock()
	if ent, ok := t.entries[pa]; ok {
		ent.swapable = true
	}
}

/// SetUnswapable marks pa as temporarily ineligible for eviction, for
/// example while a caller is mid-install of its mapping.
func (t *Table_t) SetUnswapable(pa mem.Pa_t) {
	t.Lock()
	defer t.Unlock()
	if ent, ok := t.entries[pa]; ok {
		ent.swapable = false
	}
}

/// Dmap resolves pa to its backing page, passing through to the
/// physical memory allocator.
func (t *Table_t) Dmap(pa mem.Pa_t) *mem.Pg_t {
	return t.phys.Dmap(pa)
}

/// LoadSwap reads slot idx of the swap device into pg, releasing the
/// slot. vm calls this on a swap refault rather than importing swap
/// directly, keeping the dependency edge at vm -> frame only.
func (t *Table_t) LoadSwap(idx int, pg *mem.Pg_t) {
	t.sd.Load(idx, pg)
}

/// FreeSwap releases swap slot idx without reading it, for a
/// swapped-out page whose owning address space is being torn down.
func (t *Table_t) FreeSwap(idx int) {
	t.sd.Free(idx)
}
