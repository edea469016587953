// The multi-level indexed on-disk inode: 122 direct pointers plus
// single-, double- and triple-indirect pointers, each indirect sector
// holding 128 four-byte pointers. Grounded on original_source/src/
// filesys/inode.c's index_to_sector/inode_allocate/
// inode_allocate_index, with the triple-indirect read divisor and
// inode_allocate's triple-indirect size cap corrected rather than
// reproduced (see DESIGN.md).
package fs

import (
	"github.com/laonahongchen/PintOS-SJTU/hashtable"
	"github.com/laonahongchen/PintOS-SJTU/util"
)

const (
	Magic = 0x494e4f44

	NDIRECT   = 122
	NINDIRECT = BSIZE / 4 // 128 four-byte pointers per indirect sector

	offDirect  = 0
	offIndir1  = NDIRECT * 4
	offIndir2  = offIndir1 + 4
	offIndir3  = offIndir2 + 4
	offMagic   = offIndir3 + 4
	offLength  = offMagic + 4
	offIsdir   = offLength + 4

	firstLevel  = NDIRECT + NINDIRECT
	secondLevel = firstLevel + NINDIRECT*NINDIRECT
	thirdLevel  = secondLevel + NINDIRECT*NINDIRECT*NINDIRECT
)

/// Ondisk_t is the exactly-one-sector on-disk inode image.
type Ondisk_t struct {
	buf Blockbuf_t
}

func (d *Ondisk_t) direct(i int) int      { return util.Readn(d.buf[:], 4, offDirect+i*4) }
func (d *Ondisk_t) setDirect(i, v int)    { util.Writen(d.buf[:], 4, offDirect+i*4, v) }
func (d *Ondisk_t) indir1() int           { return util.Readn(d.buf[:], 4, offIndir1) }
func (d *Ondisk_t) setIndir1(v int)       { util.Writen(d.buf[:], 4, offIndir1, v) }
func (d *Ondisk_t) indir2() int           { return util.Readn(d.buf[:], 4, offIndir2) }
func (d *Ondisk_t) setIndir2(v int)       { util.Writen(d.buf[:], 4, offIndir2, v) }
func (d *Ondisk_t) indir3() int           { return util.Readn(d.buf[:], 4, offIndir3) }
func (d *Ondisk_t) setIndir3(v int)       { util.Writen(d.buf[:], 4, offIndir3, v) }

/// Length returns the file's logical length in bytes.
func (d *Ondisk_t) Length() int { return util.Readn(d.buf[:], 4, offLength) }

/// SetLength records the file's logical length in bytes.
func (d *Ondisk_t) SetLength(n int) { util.Writen(d.buf[:], 4, offLength, n) }

/// IsDir reports whether this inode represents a directory.
func (d *Ondisk_t) IsDir() bool { return util.Readn(d.buf[:], 4, offIsdir) != 0 }

/// SetIsDir records whether this inode represents a directory.
func (d *Ondisk_t) SetIsDir(v bool) {
	n := 0
	if v {
		n = 1
	}
	util.Writen(d.buf[:], 4, offIsdir, n)
}

func (d *Ondisk_t) magic() int    { return util.Readn(d.buf[:], 4, offMagic) }
func (d *Ondisk_t) setMagic(v int) { util.Writen(d.buf[:], 4, offMagic, v) }

func readIndirect(bc *Bcache_t, sector int) [NINDIRECT]uint32 {
	var arr [NINDIRECT]uint32
	if sector == 0 {
		return arr
	}
	buf := make([]uint8, BSIZE)
	bc.Read(sector, buf)
	for i := 0; i < NINDIRECT; i++ {
		arr[i] = uint32(util.Readn(buf, 4, i*4))
	}
	return arr
}

func writeIndirect(bc *Bcache_t, sector int, arr [NINDIRECT]uint32) {
	buf := make([]uint8, BSIZE)
	for i := 0; i < NINDIRECT; i++ {
		util.Writen(buf, 4, i*4, int(arr[i]))
	}
	bc.Write(sector, buf)
}

// index_to_sector maps a zero-based sector index into the inode to a
// device sector, or 0 if that index is an unallocated hole, or -1 if
// out of range. The triple-indirect branch below divides by NINDIRECT²
// for the top tier and NINDIRECT for the middle tier — the source this
// is grounded on divides by NINDIRECT at the top tier too, which is the
// bug spec §9 calls out; this implementation does not reproduce it.
func index_to_sector(bc *Bcache_t, d *Ondisk_t, index int) int {
	switch {
	case index < NDIRECT:
		return d.direct(index)
	case index < firstLevel:
		i1 := index - NDIRECT
		a1 := readIndirect(bc, d.indir1())
		return int(a1[i1])
	case index < secondLevel:
		rel := index - firstLevel
		i1 := rel / NINDIRECT
		i2 := rel % NINDIRECT
		a1 := readIndirect(bc, d.indir2())
		if a1[i1] == 0 {
			return 0
		}
		a2 := readIndirect(bc, int(a1[i1]))
		return int(a2[i2])
	case index < thirdLevel:
		rel := index - secondLevel
		i1 := rel / (NINDIRECT * NINDIRECT)
		rem := rel % (NINDIRECT * NINDIRECT)
		i2 := rem / NINDIRECT
		i3 := rem % NINDIRECT
		a1 := readIndirect(bc, d.indir3())
		if a1[i1] == 0 {
			return 0
		}
		a2 := readIndirect(bc, int(a1[i1]))
		if a2[i2] == 0 {
			return 0
		}
		a3 := readIndirect(bc, int(a2[i2]))
		return int(a3[i3])
	default:
		return -1
	}
}

func bytesToSectors(length int) int {
	return (length + BSIZE - 1) / BSIZE
}

func zeroSector(bc *Bcache_t, sector int) {
	bc.Write(sector, make([]uint8, BSIZE))
}

// allocateIndex mirrors inode_allocate_index: *ptr names a sector that,
// at level 0, is itself a direct data sector; at level L>0, is an
// indirect sector holding up to NINDIRECT pointers each covering
// NINDIRECT^(L-1) sectors.
func allocateIndex(bc *Bcache_t, fm *Freemap_t, ptr *int, sectors int, level int) bool {
	if level == 0 {
		if *ptr == 0 {
			s, ok := fm.Allocate()
			if !ok {
				return false
			}
			zeroSector(bc, s)
			*ptr = s
		}
		return true
	}

	var blocks [NINDIRECT]uint32
	if *ptr == 0 {
		s, ok := fm.Allocate()
		if !ok {
			return false
		}
		*ptr = s
	} else {
		blocks = readIndirect(bc, *ptr)
	}

	switch level {
	case 1:
		for i := 0; i < sectors; i++ {
			p := int(blocks[i])
			if !allocateIndex(bc, fm, &p, 1, 0) {
				return false
			}
			blocks[i] = uint32(p)
		}
	case 2:
		num := (sectors + NINDIRECT - 1) / NINDIRECT
		for i := 0; i < num; i++ {
			sub := sectors
			if sub > NINDIRECT {
				sub = NINDIRECT
			}
			p := int(blocks[i])
			if !allocateIndex(bc, fm, &p, sub, 1) {
				return false
			}
			blocks[i] = uint32(p)
			sectors -= sub
		}
	case 3:
		num := (sectors + NINDIRECT*NINDIRECT - 1) / (NINDIRECT * NINDIRECT)
		for i := 0; i < num; i++ {
			sub := sectors
			if sub > NINDIRECT*NINDIRECT {
				sub = NINDIRECT * NINDIRECT
			}
			p := int(blocks[i])
			if !allocateIndex(bc, fm, &p, sub, 2) {
				return false
			}
			blocks[i] = uint32(p)
			sectors -= sub
		}
	}

	writeIndirect(bc, *ptr, blocks)
	return true
}

// allocate grows d to cover `length` bytes, allocating only the
// sectors it does not already have. The fourth branch's cap is
// NINDIRECT³, correcting the source's use of a bare NINDIRECT there
// (spec §9's second flagged bug).
func allocate(bc *Bcache_t, fm *Freemap_t, d *Ondisk_t, length int) bool {
	sectors := bytesToSectors(length)

	num := sectors
	if num > NDIRECT {
		num = NDIRECT
	}
	for i := 0; i < num; i++ {
		if d.direct(i) == 0 {
			s, ok := fm.Allocate()
			if !ok {
				return false
			}
			zeroSector(bc, s)
			d.setDirect(i, s)
		}
	}
	sectors -= num
	if sectors == 0 {
		return true
	}

	num = sectors
	if num > NINDIRECT {
		num = NINDIRECT
	}
	p := d.indir1()
	if !allocateIndex(bc, fm, &p, num, 1) {
		return false
	}
	d.setIndir1(p)
	sectors -= num
	if sectors == 0 {
		return true
	}

	num = sectors
	if num > NINDIRECT*NINDIRECT {
		num = NINDIRECT * NINDIRECT
	}
	p = d.indir2()
	if !allocateIndex(bc, fm, &p, num, 2) {
		return false
	}
	d.setIndir2(p)
	sectors -= num
	if sectors == 0 {
		return true
	}

	num = sectors
	if num > NINDIRECT*NINDIRECT*NINDIRECT {
		num = NINDIRECT * NINDIRECT * NINDIRECT
	}
	p = d.indir3()
	if !allocateIndex(bc, fm, &p, num, 3) {
		return false
	}
	d.setIndir3(p)
	sectors -= num
	return sectors == 0
}

/// Inode_t is the in-memory inode: owning sector, reference counts and
/// a cached copy of the on-disk image. Mutation is serialized by the
/// caller's file-system lock (spec's non-goal of fine-grained per-inode
/// locking).
type Inode_t struct {
	Sector         int
	Opencount      int
	Removed        bool
	DenyWriteCount int
	Disk           Ondisk_t
}

/// Set_t is the open-inode set: a hashtable keyed by sector number that
/// coalesces concurrent opens of the same inode onto one Inode_t.
type Set_t struct {
	ht *hashtable.Hashtable_t
}

/// MkSet allocates an empty open-inode set.
func MkSet() *Set_t {
	return &Set_t{ht: hashtable.MkHash(64)}
}

func diskRead(bc *Bcache_t, sector int) Ondisk_t {
	var d Ondisk_t
	bc.Read(sector, d.buf[:])
	return d
}

func diskWrite(bc *Bcache_t, sector int, d *Ondisk_t) {
	bc.Write(sector, d.buf[:])
}

/// Create writes a fresh on-disk inode to sector, allocating enough
/// data sectors to cover length (zero-filled) and flushing the inode.
func Create(bc *Bcache_t, fm *Freemap_t, sector int, length int, isdir bool) bool {
	var d Ondisk_t
	d.setMagic(Magic)
	d.SetIsDir(isdir)
	if !allocate(bc, fm, &d, length) {
		return false
	}
	d.SetLength(length)
	diskWrite(bc, sector, &d)
	return true
}

/// Open returns the in-memory inode for sector, incrementing its
/// open-count, reading the on-disk image on first open.
func (s *Set_t) Open(bc *Bcache_t, sector int) *Inode_t {
	if v, ok := s.ht.Get(uint(sector)); ok {
		ino := v.(*Inode_t)
		ino.Opencount++
		return ino
	}
	ino := &Inode_t{Sector: sector, Opencount: 1, Disk: diskRead(bc, sector)}
	s.ht.Set(uint(sector), ino)
	return ino
}

/// Read_at copies up to len(dst) bytes starting at off into dst,
/// sector by sector via the block cache, using a bounce buffer for
/// partial sectors. It returns the number of bytes actually read.
func (ino *Inode_t) Read_at(bc *Bcache_t, dst []uint8, off int) int {
	length := ino.Disk.Length()
	n := 0
	for n < len(dst) && off+n < length {
		idx := (off + n) / BSIZE
		secoff := (off + n) % BSIZE
		sector := index_to_sector(bc, &ino.Disk, idx)
		chunk := BSIZE - secoff
		if rem := len(dst) - n; chunk > rem {
			chunk = rem
		}
		if rem := length - (off + n); chunk > rem {
			chunk = rem
		}
		if sector == 0 {
			// hole: reads as zero
			for i := 0; i < chunk; i++ {
				dst[n+i] = 0
			}
		} else if secoff == 0 && chunk == BSIZE {
			bc.Read(sector, dst[n:n+chunk])
		} else {
			bounce := make([]uint8, BSIZE)
			bc.Read(sector, bounce)
			copy(dst[n:n+chunk], bounce[secoff:secoff+chunk])
		}
		n += chunk
	}
	return n
}

/// Write_at writes src starting at off, growing the inode (allocating
/// new sectors, zero-filling any gap) if off+len(src) exceeds the
/// current length. It returns the number of bytes written; a partial
/// growth failure leaves length unchanged and returns bytes written so
/// far.
func (ino *Inode_t) Write_at(bc *Bcache_t, fm *Freemap_t, src []uint8, off int) int {
	end := off + len(src)
	if end > ino.Disk.Length() {
		if !allocate(bc, fm, &ino.Disk, end) {
			return ino.writeWithinCurrentLength(bc, src, off)
		}
		ino.Disk.SetLength(end)
		diskWrite(bc, ino.Sector, &ino.Disk)
	}
	return ino.writeWithinCurrentLength(bc, src, off)
}

func (ino *Inode_t) writeWithinCurrentLength(bc *Bcache_t, src []uint8, off int) int {
	n := 0
	for n < len(src) {
		idx := (off + n) / BSIZE
		secoff := (off + n) % BSIZE
		sector := index_to_sector(bc, &ino.Disk, idx)
		if sector <= 0 {
			break
		}
		chunk := BSIZE - secoff
		if rem := len(src) - n; chunk > rem {
			chunk = rem
		}
		if secoff == 0 && chunk == BSIZE {
			bc.Write(sector, src[n:n+chunk])
		} else {
			bounce := make([]uint8, BSIZE)
			bc.Read(sector, bounce)
			copy(bounce[secoff:secoff+chunk], src[n:n+chunk])
			bc.Write(sector, bounce)
		}
		n += chunk
	}
	return n
}

/// Deny_write increments the deny-write counter, bounded by open-count.
func (ino *Inode_t) Deny_write() {
	ino.DenyWriteCount++
	if ino.DenyWriteCount > ino.Opencount {
		panic("deny_write_cnt > open_cnt")
	}
}

/// Allow_write decrements the deny-write counter.
func (ino *Inode_t) Allow_write() {
	ino.DenyWriteCount--
	if ino.DenyWriteCount < 0 {
		panic("deny_write_cnt < 0")
	}
}

// deallocateIndex mirrors allocateIndex but frees sectors instead of
// allocating them, recursing the same way.
func deallocateIndex(bc *Bcache_t, fm *Freemap_t, ptr int, sectors int, level int) {
	if ptr == 0 {
		return
	}
	if level == 0 {
		fm.Release(ptr)
		return
	}
	blocks := readIndirect(bc, ptr)
	switch level {
	case 1:
		for i := 0; i < sectors; i++ {
			deallocateIndex(bc, fm, int(blocks[i]), 1, 0)
		}
	case 2:
		num := (sectors + NINDIRECT - 1) / NINDIRECT
		for i := 0; i < num; i++ {
			sub := sectors
			if sub > NINDIRECT {
				sub = NINDIRECT
			}
			deallocateIndex(bc, fm, int(blocks[i]), sub, 1)
			sectors -= sub
		}
	case 3:
		num := (sectors + NINDIRECT*NINDIRECT - 1) / (NINDIRECT * NINDIRECT)
		for i := 0; i < num; i++ {
			sub := sectors
			if sub > NINDIRECT*NINDIRECT {
				sub = NINDIRECT * NINDIRECT
			}
			deallocateIndex(bc, fm, int(blocks[i]), sub, 2)
			sectors -= sub
		}
	}
	fm.Release(ptr)
}

func deallocate(bc *Bcache_t, fm *Freemap_t, d *Ondisk_t) {
	sectors := bytesToSectors(d.Length())

	num := sectors
	if num > NDIRECT {
		num = NDIRECT
	}
	for i := 0; i < num; i++ {
		if s := d.direct(i); s != 0 {
			fm.Release(s)
		}
	}
	sectors -= num
	if sectors <= 0 {
		return
	}

	num = sectors
	if num > NINDIRECT {
		num = NINDIRECT
	}
	deallocateIndex(bc, fm, d.indir1(), num, 1)
	sectors -= num
	if sectors <= 0 {
		return
	}

	num = sectors
	if num > NINDIRECT*NINDIRECT {
		num = NINDIRECT * NINDIRECT
	}
	deallocateIndex(bc, fm, d.indir2(), num, 2)
	sectors -= num
	if sectors <= 0 {
		return
	}

	num = sectors
	if num > NINDIRECT*NINDIRECT*NINDIRECT {
		num = NINDIRECT * NINDIRECT * NINDIRECT
	}
	deallocateIndex(bc, fm, d.indir3(), num, 3)
}

/// Close decrements open-count; at zero, if Removed, releases the
/// inode's sector and all its data sectors to the free-map and drops
/// it from the open-inode set; otherwise the on-disk state is left
/// intact.
func (s *Set_t) Close(bc *Bcache_t, fm *Freemap_t, ino *Inode_t) {
	ino.Opencount--
	if ino.Opencount < 0 {
		panic("close of unopened inode")
	}
	if ino.Opencount > 0 {
		return
	}
	if ino.Removed {
		deallocate(bc, fm, &ino.Disk)
		fm.Release(ino.Sector)
	}
	s.ht.Del(uint(ino.Sector))
}
