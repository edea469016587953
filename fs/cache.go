package fs

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/stats"
)

// cacheSize is the fixed number of cache entries, per spec §3.
const cacheSize = 64

type cacheEntry struct {
	sector  int
	buf     Blockbuf_t
	valid   bool
	dirty   bool
	recency int
}

/// Bcache_t is the write-back block cache described in spec §4.1: a
/// fixed 64-entry cache using approximate LRU (every lookup bumps
/// every entry's recency counter; the touched entry resets to zero;
/// eviction takes an empty entry if there is one, else the
/// maximum-recency entry), matching
/// PintOS's filesys/cache.c entry for entry.
type Bcache_t struct {
	sync.Mutex
	disk    Disk_i
	entries [cacheSize]cacheEntry

	Stats CacheStats_t
}

/// CacheStats_t counts cache activity, exported via
/// stats.PrometheusGauges by cmd/kernelctl's serve subcommand.
type CacheStats_t struct {
	Hits       stats.Counter_t
	Misses     stats.Counter_t
	Writebacks stats.Counter_t
}

/// MkCache constructs an empty cache backed by disk.
func MkCache(disk Disk_i) *Bcache_t {
	return &Bcache_t{disk: disk}
}

func (bc *Bcache_t) lookup(sector int) *cacheEntry {
	var found *cacheEntry
	for i := range bc.entries {
		e := &bc.entries[i]
		e.recency++
		if e.valid && e.sector == sector {
			found = e
		}
	}
	return found
}

// evict picks the entry with the highest recency counter (least
// recently touched), writing it back first if dirty, and returns it
// ready for reuse.
func (bc *Bcache_t) evict() *cacheEntry {
	victim := &bc.entries[0]
	for i := range bc.entries {
		e := &bc.entries[i]
		if !e.valid {
			victim = e
			break
		}
		if e.recency > victim.recency {
			victim = e
		}
	}
	if victim.valid && victim.dirty {
		bc.writeback(victim)
		bc.Stats.Writebacks.Inc()
	}
	victim.valid = false
	return victim
}

func (bc *Bcache_t) writeback(e *cacheEntry) {
	b := MkBlock(e.sector, "writeback", bc.disk, nil)
	b.Data = &e.buf
	b.Write()
	e.dirty = false
}

func (bc *Bcache_t) fill(e *cacheEntry, sector int) {
	e.valid = true
	e.dirty = false
	e.sector = sector
	b := MkBlock(sector, "fill", bc.disk, nil)
	b.Read()
	e.buf = *b.Data
}

/// Read copies sector's contents into out, a BSIZE-byte buffer.
func (bc *Bcache_t) Read(sector int, out []uint8) {
	bc.Lock()
	defer bc.Unlock()

	e := bc.lookup(sector)
	if e == nil {
		bc.Stats.Misses.Inc()
		e = bc.evict()
		bc.fill(e, sector)
	} else {
		bc.Stats.Hits.Inc()
	}
	e.recency = 0
	copy(out, e.buf[:])
}

/// Write stores in's contents (BSIZE bytes) into sector, marking the
/// entry dirty. A write miss first loads the sector so that a caller
/// writing fewer than BSIZE bytes via a bounce buffer never clobbers
/// untouched bytes.
func (bc *Bcache_t) Write(sector int, in []uint8) {
	bc.Lock()
	defer bc.Unlock()

	e := bc.lookup(sector)
	if e == nil {
		bc.Stats.Misses.Inc()
		e = bc.evict()
		bc.fill(e, sector)
	} else {
		bc.Stats.Hits.Inc()
	}
	e.recency = 0
	e.dirty = true
	copy(e.buf[:], in)
}

/// Close flushes every dirty valid entry to disk.
func (bc *Bcache_t) Close() {
	bc.Lock()
	defer bc.Unlock()

	for i := range bc.entries {
		e := &bc.entries[i]
		if e.valid && e.dirty {
			bc.writeback(e)
		}
	}
}
