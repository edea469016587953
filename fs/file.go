// File_t wraps an open inode behind fdops.Fdops_i, the interface
// fd.Fd_t.Fops holds. It is the one place write permission checks
// against an inode's deny-write count are enforced (spec §4.3).
package fs

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/fdops"
	"github.com/laonahongchen/PintOS-SJTU/stat"
)

/// File_t is a regular-file or directory file descriptor backed by an
/// inode opened through Fs_t.
type File_t struct {
	sync.Mutex
	fsys     *Fs_t
	ino      *Inode_t
	off      int
	readdiri int
	denied   bool
}

var _ fdops.Fdops_i = (*File_t)(nil)

/// Close releases the underlying inode, deallocating it if it was the
/// last opener of a removed inode.
func (f *File_t) Close() defs.Err_t {
	f.fsys.Lock()
	defer f.fsys.Unlock()
	if f.denied {
		f.ino.Allow_write()
	}
	f.fsys.Set.Close(f.fsys.Bc, f.fsys.Fm, f.ino)
	return 0
}

/// Fstat fills st with the inode's metadata.
func (f *File_t) Fstat(st *stat.Stat_t) defs.Err_t {
	f.Lock()
	defer f.Unlock()
	mode := uint(0100000)
	if f.ino.Disk.IsDir() {
		mode = 040000
	}
	st.Wino(uint(f.ino.Sector))
	st.Wmode(mode)
	st.Wsize(uint(f.ino.Disk.Length()))
	return 0
}

/// Lseek repositions the file offset.
func (f *File_t) Lseek(off int, whence int) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	switch whence {
	case defs.SEEK_SET:
		f.off = off
	case defs.SEEK_CUR:
		f.off += off
	case defs.SEEK_END:
		f.off = f.ino.Disk.Length() + off
	default:
		return 0, defs.EINVAL
	}
	if f.off < 0 {
		f.off = 0
	}
	return f.off, 0
}

/// Read copies bytes from the current offset into dst.
func (f *File_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	if f.ino.Disk.IsDir() {
		return 0, defs.EISDIR
	}

	buf := make([]uint8, dst.Remain())
	f.fsys.Lock()
	n := f.ino.Read_at(f.fsys.Bc, buf, f.off)
	f.fsys.Unlock()

	wrote, err := dst.Uiowrite(buf[:n])
	if err != 0 {
		return 0, err
	}
	f.off += wrote
	return wrote, 0
}

/// Write copies bytes from src to the current offset, enforcing any
/// outstanding deny-write hold on the inode (an executable image
/// currently mapped for execution, for instance).
func (f *File_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	if f.ino.Disk.IsDir() {
		return 0, defs.EISDIR
	}
	if f.ino.DenyWriteCount > 0 && !f.denied {
		return 0, defs.EPERM
	}

	buf := make([]uint8, src.Remain())
	n, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}

	f.fsys.Lock()
	wrote := f.ino.Write_at(f.fsys.Bc, f.fsys.Fm, buf[:n], f.off)
	f.fsys.Unlock()

	f.off += wrote
	return wrote, 0
}

/// Reopen increments the underlying inode's open-count for a
/// duplicated descriptor.
func (f *File_t) Reopen() defs.Err_t {
	f.fsys.Lock()
	defer f.fsys.Unlock()
	f.ino.Opencount++
	return 0
}

/// Dup returns an independent File_t over the same inode, with its own
/// seek offset, coalesced through the open-inode set like any other
/// concurrent opener. Used by the mmap manager so a mapping survives
/// the mapping fd being closed, and so the mapping's own Lseek calls
/// don't disturb the caller's file offset.
func (f *File_t) Dup() (*File_t, defs.Err_t) {
	f.fsys.Lock()
	defer f.fsys.Unlock()
	ino := f.fsys.Set.Open(f.fsys.Bc, f.ino.Sector)
	return &File_t{fsys: f.fsys, ino: ino}, 0
}

/// Readdir writes the next non-"."/".." entry's name into dst.
func (f *File_t) Readdir(dst fdops.Userio_i) (bool, defs.Err_t) {
	f.Lock()
	defer f.Unlock()
	if !f.ino.Disk.IsDir() {
		return false, defs.ENOTDIR
	}

	f.fsys.Lock()
	name, next, ok := Readdir(f.fsys.Bc, f.ino, f.readdiri)
	f.fsys.Unlock()
	if !ok {
		return false, 0
	}
	f.readdiri = next
	if _, err := dst.Uiowrite(name); err != 0 {
		return false, err
	}
	return true, 0
}

/// Isdir reports whether the descriptor refers to a directory.
func (f *File_t) Isdir() bool {
	return f.ino.Disk.IsDir()
}

/// Inum returns the inode's sector number, used as its inumber.
func (f *File_t) Inum() uint {
	return uint(f.ino.Sector)
}

/// DenyWrite places a deny-write hold on the underlying inode (used
/// when mapping an executable's backing file for execution).
func (f *File_t) DenyWrite() {
	f.Lock()
	defer f.Unlock()
	if f.denied {
		return
	}
	f.fsys.Lock()
	f.ino.Deny_write()
	f.fsys.Unlock()
	f.denied = true
}
