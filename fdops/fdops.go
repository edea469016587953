// Package fdops defines the operations a file descriptor supports and the
// narrow "user I/O" interface those operations read from or write into.
// Userio_i is satisfied structurally by vm.Userbuf_t, vm.Fakeubuf_t and
// vm.Useriovec_t without fdops importing vm, which is what lets fd.Fd_t
// hold an fdops.Fdops_i while the concrete file implementation (in the fs
// package) never has to import fd or syscall.
//
// Referenced by the teacher's fd.go and ufs.go (fd.Fops.Write/Read/Close,
// fdops.Fdops_i) but its source was not part of the retrieval pack;
// rebuilt here from those call sites and spec.md §4.9's syscall table.
package fdops

import (
	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/stat"
)

/// Userio_i abstracts a (possibly user-space) byte sink/source: vm's
/// Userbuf_t, Fakeubuf_t and Useriovec_t all implement it.
type Userio_i interface {
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

/// Fdops_i is the set of operations dispatched by a file descriptor,
/// implemented by fs.File_t for both regular files and directories.
type Fdops_i interface {
	Close() defs.Err_t
	Fstat(st *stat.Stat_t) defs.Err_t
	Lseek(off int, whence int) (int, defs.Err_t)
	Read(dst Userio_i) (int, defs.Err_t)
	Write(src Userio_i) (int, defs.Err_t)
	Reopen() defs.Err_t
	// Readdir writes the next directory entry's name (skipping "." and
	// "..") into dst and returns false once entries are exhausted.
	Readdir(dst Userio_i) (bool, defs.Err_t)
	Isdir() bool
	Inum() uint
}
