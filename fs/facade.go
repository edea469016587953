// Fs_t resolves canonical paths against the directory tree and
// serializes every file-system operation behind one coarse lock, per
// spec §5's "single global file-system lock, no fine-grained per-inode
// locking" resource model. ufs/ufs.go calls Fs_t's Fs_open/Fs_mkdir/
// Fs_unlink/Fs_stat but never defines them; built fresh here against
// spec §4.4 and §6.
package fs

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/stat"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
)

/// Fs_t is the file-system facade: one block cache, one free-map, one
/// open-inode set, one lock.
type Fs_t struct {
	sync.Mutex
	Bc   *Bcache_t
	Fm   *Freemap_t
	Set  *Set_t
	root int
}

/// MkFS formats a fresh volume of `total` sectors on disk and returns a
/// booted facade rooted at an empty root directory.
func MkFS(disk Disk_i, total int) *Fs_t {
	bc := MkCache(disk)
	fm := Format(bc, FreemapSector, total)
	set := MkSet()

	if !Create(bc, fm, RootdirSector, 0, true) {
		panic("cannot format root directory")
	}
	sb := &Superblock_t{Data: &Blockbuf_t{}}
	sb.SetFreemaplen(fm.nsec)
	sb.SetLastblock(total - 1)
	bc.Write(SuperblockSector, sb.Data[:])
	bc.Close()

	return &Fs_t{Bc: bc, Fm: fm, Set: set, root: RootdirSector}
}

/// StartFS boots the facade from an already-formatted volume, reading
/// the volume's total sector count back out of its superblock rather
/// than requiring the caller to already know it.
func StartFS(disk Disk_i) *Fs_t {
	bc := MkCache(disk)

	sb := &Superblock_t{Data: &Blockbuf_t{}}
	buf := make([]uint8, BSIZE)
	bc.Read(SuperblockSector, buf)
	copy(sb.Data[:], buf)
	total := sb.Lastblock() + 1

	fm := Load(bc, FreemapSector, total)
	set := MkSet()
	return &Fs_t{Bc: bc, Fm: fm, Set: set, root: RootdirSector}
}

/// StopFS flushes the free-map and block cache.
func (fs *Fs_t) StopFS() {
	fs.Lock()
	defer fs.Unlock()
	fs.Fm.Flush()
	fs.Bc.Close()
}

// resolveDir walks p's components but the last one, returning the
// directory inode that should contain it (opened, caller must Close),
// or an error if any intermediate component is missing or not a
// directory.
func (fsys *Fs_t) resolveDir(p ustr.Ustr) (*Inode_t, ustr.Ustr, defs.Err_t) {
	comps := p.Components()
	dir := fsys.Set.Open(fsys.Bc, fsys.root)
	if len(comps) == 0 {
		return dir, nil, 0
	}
	for _, c := range comps[:len(comps)-1] {
		if !dir.Disk.IsDir() {
			fsys.Set.Close(fsys.Bc, fsys.Fm, dir)
			return nil, nil, defs.ENOTDIR
		}
		sector, ok := Lookup(fsys.Bc, dir, c)
		fsys.Set.Close(fsys.Bc, fsys.Fm, dir)
		if !ok {
			return nil, nil, defs.ENOENT
		}
		dir = fsys.Set.Open(fsys.Bc, sector)
	}
	return dir, comps[len(comps)-1], 0
}

/// Fs_open resolves p, optionally creating it (O_CREAT), and returns a
/// File_t wrapping the opened inode.
func (fsys *Fs_t) Fs_open(p ustr.Ustr, flags int, mode int) (*File_t, defs.Err_t) {
	fsys.Lock()
	defer fsys.Unlock()

	dir, name, err := fsys.resolveDir(p)
	if err != 0 {
		return nil, err
	}
	if name == nil {
		// opening the root itself
		return &File_t{fsys: fsys, ino: dir}, 0
	}
	defer fsys.Set.Close(fsys.Bc, fsys.Fm, dir)

	sector, ok := Lookup(fsys.Bc, dir, name)
	if !ok {
		if flags&defs.O_CREAT == 0 {
			return nil, defs.ENOENT
		}
		newSector, aerr := fsys.Fm.Allocate()
		if !aerr {
			return nil, defs.ENOSPC
		}
		if !Create(fsys.Bc, fsys.Fm, newSector, 0, false) {
			fsys.Fm.Release(newSector)
			return nil, defs.ENOSPC
		}
		if !Add(fsys.Bc, fsys.Fm, dir, name, newSector) {
			fsys.Fm.Release(newSector)
			return nil, defs.EEXIST
		}
		sector = newSector
	} else if flags&defs.O_CREAT != 0 {
		return nil, defs.EEXIST
	}

	ino := fsys.Set.Open(fsys.Bc, sector)
	return &File_t{fsys: fsys, ino: ino}, 0
}

/// Fs_mkdir creates an empty directory at p containing "." and "..".
func (fsys *Fs_t) Fs_mkdir(p ustr.Ustr) defs.Err_t {
	fsys.Lock()
	defer fsys.Unlock()

	dir, name, err := fsys.resolveDir(p)
	if err != 0 {
		return err
	}
	if name == nil {
		fsys.Set.Close(fsys.Bc, fsys.Fm, dir)
		return defs.EEXIST
	}
	defer fsys.Set.Close(fsys.Bc, fsys.Fm, dir)

	if _, ok := Lookup(fsys.Bc, dir, name); ok {
		return defs.EEXIST
	}

	sector, ok := fsys.Fm.Allocate()
	if !ok {
		return defs.ENOSPC
	}
	if !Create(fsys.Bc, fsys.Fm, sector, 0, true) {
		fsys.Fm.Release(sector)
		return defs.ENOSPC
	}
	newdir := fsys.Set.Open(fsys.Bc, sector)
	Add(fsys.Bc, fsys.Fm, newdir, ustr.MkUstrDot(), sector)
	Add(fsys.Bc, fsys.Fm, newdir, ustr.Ustr(".."), dir.Sector)
	fsys.Set.Close(fsys.Bc, fsys.Fm, newdir)

	if !Add(fsys.Bc, fsys.Fm, dir, name, sector) {
		return defs.EEXIST
	}
	return 0
}

/// Fs_unlink removes the directory entry for p. A directory target
/// must be empty (besides "." and "..") and have no other openers; the
/// latter check is folded into Opencount==1 after Open, since a cwd
/// reference keeps an inode open exactly like any other opener.
func (fsys *Fs_t) Fs_unlink(p ustr.Ustr) defs.Err_t {
	fsys.Lock()
	defer fsys.Unlock()

	dir, name, err := fsys.resolveDir(p)
	if err != 0 {
		return err
	}
	if name == nil {
		fsys.Set.Close(fsys.Bc, fsys.Fm, dir)
		return defs.EPERM
	}
	defer fsys.Set.Close(fsys.Bc, fsys.Fm, dir)

	sector, ok := Lookup(fsys.Bc, dir, name)
	if !ok {
		return defs.ENOENT
	}

	target := fsys.Set.Open(fsys.Bc, sector)
	if target.Disk.IsDir() {
		if !IsEmpty(fsys.Bc, target) {
			fsys.Set.Close(fsys.Bc, fsys.Fm, target)
			return defs.ENOTEMPTY
		}
		if target.Opencount > 1 {
			fsys.Set.Close(fsys.Bc, fsys.Fm, target)
			return defs.EBUSY
		}
	}
	Remove(fsys.Bc, fsys.Fm, dir, name)
	target.Removed = true
	fsys.Set.Close(fsys.Bc, fsys.Fm, target)
	return 0
}

/// Fs_stat resolves p and fills st with its inode metadata.
func (fsys *Fs_t) Fs_stat(p ustr.Ustr, st *stat.Stat_t) defs.Err_t {
	f, err := fsys.Fs_open(p, defs.O_RDONLY, 0)
	if err != 0 {
		return err
	}
	defer f.Close()
	return f.Fstat(st)
}
