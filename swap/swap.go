// Package swap backs the frame table's eviction path with a fixed
// number of on-disk-sized slots. This module runs as a hosted process
// rather than its own kernel, so there is no raw swap partition to
// write through a block driver; a slot is simply a page held in
// memory, addressed the same way the frame table addresses a
// simulated physical page (spec §4.6).
package swap

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/mem"
)

/// Device_t is a fixed-size pool of swap slots, each holding exactly
/// one page.
type Device_t struct {
	sync.Mutex
	slots []mem.Pg_t
	used  []bool
	next  int
}

/// MkDevice allocates a swap device with room for nslots pages.
func MkDevice(nslots int) *Device_t {
	return &Device_t{slots: make([]mem.Pg_t, nslots), used: make([]bool, nslots)}
}

/// Store copies pg into a free slot and returns its index. It fails
/// only when every slot is occupied.
func (sd *Device_t) Store(pg *mem.Pg_t) (int, bool) {
	sd.Lock()
	defer sd.Unlock()

	n := len(sd.used)
	for i := 0; i < n; i++ {
		idx := (sd.next + i) % n
		if !sd.used[idx] {
			sd.used[idx] = true
			sd.slots[idx] = *pg
			sd.next = (idx + 1) % n
			return idx, true
		}
	}
	return 0, false
}

/// Load copies slot idx's contents into pg and releases the slot, the
/// way a PintOS swap_in both reads and frees the backing slot.
func (sd *Device_t) Load(idx int, pg *mem.Pg_t) {
	sd.Lock()
	defer sd.Unlock()
	*pg = sd.slots[idx]
	sd.used[idx] = false
}

/// Free releases slot idx without reading it, for a swapped-out page
/// whose address space is being torn down.
func (sd *Device_t) Free(idx int) {
	sd.Lock()
	defer sd.Unlock()
	sd.used[idx] = false
}
