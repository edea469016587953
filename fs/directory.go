// The directory layer: a directory is an ordinary file whose content
// is a sequence of fixed-size entries (in_use:1, inode_sector:4,
// name:14 incl. NUL) — 19 bytes in all.
package fs

import (
	"github.com/laonahongchen/PintOS-SJTU/ustr"
)

const (
	NameMax    = 14 // includes the trailing NUL
	EntrySize  = 1 + 4 + NameMax
	offInUse   = 0
	offSector  = 1
	offName    = 5
)

/// Dirdata_t is one directory entry, decoded from its 19-byte on-disk
/// form.
type Dirdata_t struct {
	InUse  bool
	Sector int
	Name   ustr.Ustr
}

func decode(b []uint8) Dirdata_t {
	var e Dirdata_t
	e.InUse = b[offInUse] != 0
	e.Sector = int(b[offSector]) | int(b[offSector+1])<<8 | int(b[offSector+2])<<16 | int(b[offSector+3])<<24
	n := 0
	for n < NameMax && b[offName+n] != 0 {
		n++
	}
	e.Name = append(ustr.Ustr{}, b[offName:offName+n]...)
	return e
}

func encode(e Dirdata_t) []uint8 {
	b := make([]uint8, EntrySize)
	if e.InUse {
		b[offInUse] = 1
	}
	s := uint32(e.Sector)
	b[offSector] = uint8(s)
	b[offSector+1] = uint8(s >> 8)
	b[offSector+2] = uint8(s >> 16)
	b[offSector+3] = uint8(s >> 24)
	n := len(e.Name)
	if n > NameMax-1 {
		n = NameMax - 1
	}
	copy(b[offName:offName+n], e.Name[:n])
	return b
}

/// Lookup scans dir's entries for name, returning its sector if found.
func Lookup(bc *Bcache_t, dir *Inode_t, name ustr.Ustr) (int, bool) {
	nent := dir.Disk.Length() / EntrySize
	buf := make([]uint8, EntrySize)
	for i := 0; i < nent; i++ {
		dir.Read_at(bc, buf, i*EntrySize)
		e := decode(buf)
		if e.InUse && e.Name.Eq(name) {
			return e.Sector, true
		}
	}
	return 0, false
}

/// Add inserts a new entry mapping name to sector, reusing the first
/// free slot if one exists, else appending. It fails if name already
/// exists.
func Add(bc *Bcache_t, fm *Freemap_t, dir *Inode_t, name ustr.Ustr, sector int) bool {
	if _, ok := Lookup(bc, dir, name); ok {
		return false
	}
	nent := dir.Disk.Length() / EntrySize
	buf := make([]uint8, EntrySize)
	slot := -1
	for i := 0; i < nent; i++ {
		dir.Read_at(bc, buf, i*EntrySize)
		if !decode(buf).InUse {
			slot = i
			break
		}
	}
	if slot == -1 {
		slot = nent
	}
	e := Dirdata_t{InUse: true, Sector: sector, Name: name}
	n := dir.Write_at(bc, fm, encode(e), slot*EntrySize)
	return n == EntrySize
}

/// Remove clears the entry for name, if present.
func Remove(bc *Bcache_t, fm *Freemap_t, dir *Inode_t, name ustr.Ustr) bool {
	nent := dir.Disk.Length() / EntrySize
	buf := make([]uint8, EntrySize)
	for i := 0; i < nent; i++ {
		dir.Read_at(bc, buf, i*EntrySize)
		e := decode(buf)
		if e.InUse && e.Name.Eq(name) {
			e.InUse = false
			dir.Write_at(bc, fm, encode(e), i*EntrySize)
			return true
		}
	}
	return false
}

/// IsEmpty reports whether dir has no live entries besides "." and "..".
func IsEmpty(bc *Bcache_t, dir *Inode_t) bool {
	nent := dir.Disk.Length() / EntrySize
	buf := make([]uint8, EntrySize)
	for i := 0; i < nent; i++ {
		dir.Read_at(bc, buf, i*EntrySize)
		e := decode(buf)
		if e.InUse && !e.Name.Isdot() && !e.Name.Isdotdot() {
			return false
		}
	}
	return true
}

/// Readdir returns the name of the next in-use entry at or after
/// index idx (skipping "." and ".."), and the index to resume from.
func Readdir(bc *Bcache_t, dir *Inode_t, idx int) (ustr.Ustr, int, bool) {
	nent := dir.Disk.Length() / EntrySize
	buf := make([]uint8, EntrySize)
	for i := idx; i < nent; i++ {
		dir.Read_at(bc, buf, i*EntrySize)
		e := decode(buf)
		if e.InUse && !e.Name.Isdot() && !e.Name.Isdotdot() {
			return e.Name, i + 1, true
		}
	}
	return nil, nent, false
}
