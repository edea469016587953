// Package mmap lays out a file, or an executable segment, over a
// contiguous range of a process's user pages (spec §4.8). It never
// touches a frame directly: every page starts life as a vm.Vm_t FILE
// entry and is materialized lazily, the first time vm.Vm_t.Pagefault
// calls back into the Handle_t this package installs.
package mmap

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/fs"
	"github.com/laonahongchen/PintOS-SJTU/hashtable"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/stat"
	"github.com/laonahongchen/PintOS-SJTU/vm"
)

/// Handle_t is one mmap mapping or executable segment: a reopened file
/// handle plus the byte range within it that backs the mapped pages.
/// It implements vm.Mmapfile_i. Bytes at fileBase+off for off in
/// [0, fileBytes) come from the file; bytes beyond fileBytes, up to
/// the mapping's full page-aligned extent, are zero-fill-on-demand and
/// are never written back (covers both a short final mmap page and an
/// executable segment's bss tail).
type Handle_t struct {
	sync.Mutex
	id           int
	file         *fs.File_t
	writable     bool
	isSegment    bool
	isStaticData bool
	fileBase     int
	fileBytes    int
	startUpage   int
	pageCount    int
}

/// ReadFile populates dst from the file at off (relative to this
/// handle's mapping), zero-filling anything past fileBytes.
func (h *Handle_t) ReadFile(off int, dst []uint8) (int, defs.Err_t) {
	h.Lock()
	defer h.Unlock()

	n := 0
	if off < h.fileBytes {
		n = h.fileBytes - off
		if n > len(dst) {
			n = len(dst)
		}
		if _, err := h.file.Lseek(h.fileBase+off, defs.SEEK_SET); err != 0 {
			return 0, err
		}
		ub := &vm.Fakeubuf_t{}
		ub.Fake_init(dst[:n])
		if _, err := h.file.Read(ub); err != 0 {
			return 0, err
		}
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return len(dst), 0
}

/// WriteFile writes src back to the file at off, clipped to the
/// file-backed prefix of the page; the zero-fill tail is never
/// persisted, and a read-only handle silently drops the write.
func (h *Handle_t) WriteFile(off int, src []uint8) (int, defs.Err_t) {
	if !h.writable {
		return len(src), 0
	}
	h.Lock()
	defer h.Unlock()

	if off >= h.fileBytes {
		return len(src), 0
	}
	n := h.fileBytes - off
	if n > len(src) {
		n = len(src)
	}
	if _, err := h.file.Lseek(h.fileBase+off, defs.SEEK_SET); err != 0 {
		return 0, err
	}
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(src[:n])
	if _, err := h.file.Write(ub); err != 0 {
		return 0, err
	}
	return len(src), 0
}

/// Manager_t owns one process's mmap handle table, keyed by the
/// integer mapid returned to user space.
type Manager_t struct {
	sync.Mutex
	ht   *hashtable.Hashtable_t
	next int
}

/// MkManager returns an empty mmap manager.
func MkManager() *Manager_t {
	return &Manager_t{ht: hashtable.MkHash(32), next: 1}
}

func (m *Manager_t) installHandle(as *vm.Vm_t, f *fs.File_t, upage, fileBase, fileBytes, totalBytes int, writable, isSegment, isStaticData bool) (int, defs.Err_t) {
	if upage <= 0 || upage%mem.PGSIZE != 0 {
		return 0, defs.EINVAL
	}
	npages := (totalBytes + mem.PGSIZE - 1) / mem.PGSIZE
	if npages == 0 {
		return 0, defs.EINVAL
	}
	for i := 0; i < npages; i++ {
		if !as.Mappable(upage + i*mem.PGSIZE) {
			return 0, defs.EINVAL
		}
	}

	h := &Handle_t{
		file:         f,
		writable:     writable,
		isSegment:    isSegment,
		isStaticData: isStaticData,
		fileBase:     fileBase,
		fileBytes:    fileBytes,
		startUpage:   upage,
		pageCount:    npages,
	}
	for i := 0; i < npages; i++ {
		if err := as.InstallFile(upage+i*mem.PGSIZE, h, i*mem.PGSIZE, writable); err != 0 {
			for j := 0; j < i; j++ {
				as.Unmap(upage + j*mem.PGSIZE)
			}
			return 0, err
		}
	}

	m.Lock()
	id := m.next
	m.next++
	m.Unlock()
	h.id = id
	m.ht.Set(id, h)
	return id, 0
}

/// Mmap maps f over npages starting at addr, per a user mmap(fd, addr)
/// syscall: addr must be page-aligned, f must be non-empty, and f is
/// reopened so a subsequent close(fd) does not tear the mapping down.
func (m *Manager_t) Mmap(as *vm.Vm_t, f *fs.File_t, addr int, writable bool) (int, defs.Err_t) {
	st := &stat.Stat_t{}
	if err := f.Fstat(st); err != 0 {
		return 0, err
	}
	sz := int(st.Size())
	if sz == 0 {
		return 0, defs.EINVAL
	}
	reopened, err := f.Dup()
	if err != 0 {
		return 0, err
	}
	id, ierr := m.installHandle(as, reopened, addr, 0, sz, sz, writable, false, false)
	if ierr != 0 {
		reopened.Close()
		return 0, ierr
	}
	return id, 0
}

/// LoadSegment maps an executable segment at upage: readBytes bytes
/// come from the file starting at fileOff, the remaining zeroBytes (up
/// to the next page boundary) are zero-fill-on-demand. Used while
/// loading a program image, not in response to a user mmap syscall.
func (m *Manager_t) LoadSegment(as *vm.Vm_t, f *fs.File_t, upage, fileOff, readBytes, zeroBytes int, writable, isStaticData bool) (int, defs.Err_t) {
	return m.installHandle(as, f, upage, fileOff, readBytes, readBytes+zeroBytes, writable, true, isStaticData)
}

/// Munmap tears down the mapping identified by id: every page is
/// unmapped (writing back dirty, writable, file-backed pages first),
/// then the reopened file handle is closed.
func (m *Manager_t) Munmap(as *vm.Vm_t, id int) defs.Err_t {
	v, ok := m.ht.Get(id)
	if !ok {
		return defs.EINVAL
	}
	h := v.(*Handle_t)
	for i := 0; i < h.pageCount; i++ {
		as.Unmap(h.startUpage + i*mem.PGSIZE)
	}
	m.ht.Del(id)
	return h.file.Close()
}
