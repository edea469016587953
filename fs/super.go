package fs

import "github.com/laonahongchen/PintOS-SJTU/util"

// Well-known reserved sectors, per spec §6 "Persistent layout".
const (
	SuperblockSector = 0
	FreemapSector    = 1
	RootdirSector    = 2
)

/// Superblock_t records the handful of facts about a formatted volume
/// that aren't implied by the fixed reserved-sector layout: the total
/// sector count and the number of sectors the free-map bitmap spans.
/// The teacher's Superblock_t additionally tracked a journal length and
/// an orphan-inode map; both are dropped since journaling/crash
/// consistency is a non-goal (spec §1).
type Superblock_t struct {
	Data *Blockbuf_t
}

func fieldr(d *Blockbuf_t, field int) int {
	return util.Readn(d[:], 4, field*4)
}

func fieldw(d *Blockbuf_t, field int, v int) {
	util.Writen(d[:], 4, field*4, v)
}

/// Freemaplen returns the number of sectors used by the free-map bitmap.
func (sb *Superblock_t) Freemaplen() int {
	return fieldr(sb.Data, 0)
}

/// SetFreemaplen records the free-map bitmap's length in sectors.
func (sb *Superblock_t) SetFreemaplen(n int) {
	fieldw(sb.Data, 0, n)
}

/// Lastblock returns the address of the last usable sector.
func (sb *Superblock_t) Lastblock() int {
	return fieldr(sb.Data, 1)
}

/// SetLastblock records the address of the last usable sector.
func (sb *Superblock_t) SetLastblock(n int) {
	fieldw(sb.Data, 1, n)
}
