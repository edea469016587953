// Package vm implements one process's supplemental page table: the
// record of what should back each user page -- a fresh zero page, a
// swapped-out page, or a lazily-loaded file segment -- independent of
// whatever frame table entries happen to be resident right now (spec
// §4.7). There is no real MMU in a hosted Go process to raise a
// hardware fault, so Pagefault is called directly wherever the
// original kernel's page_fault_handler would run: first access to a
// tracked page, the stack growing downward, or the syscall layer's
// user-memory copy helpers in userbuf.go.
package vm

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/mem"
)

// UserTop stands in for the hardware PHYS_BASE constant: the top of
// the simulated user address space. StackUnderline is the lowest
// address the automatically-growable stack region may claim.
const (
	UserTop        = 0x7ffff_fffff000
	StackSize      = 8 * 1024 * 1024
	StackUnderline = UserTop - StackSize
	instMargin     = 32
)

type status_t int

const (
	statusFrame status_t = iota
	statusSwap
	statusFile
)

/// Mmapfile_i is implemented by the mmap package's per-mapping handle.
/// vm calls back into it to populate and write back file-backed pages
/// without importing mmap; the dependency runs mmap -> vm only.
type Mmapfile_i interface {
	ReadFile(off int, dst []uint8) (int, defs.Err_t)
	WriteFile(off int, src []uint8) (int, defs.Err_t)
}

type sptEntry_t struct {
	status   status_t
	writable bool
	pa       mem.Pa_t   // valid when status == statusFrame
	swapidx  int        // valid when status == statusSwap
	file     Mmapfile_i // set for file-backed entries, frame-resident or not
	fileoff  int
}

/// Vm_t is one process's supplemental page table.
type Vm_t struct {
	sync.Mutex
	tid defs.Tid_t
	ft  *frame.Table_t
	spt map[int]*sptEntry_t
	esp int
}

/// MkVm creates an empty address space for process tid, allocating
/// frames from ft.
func MkVm(tid defs.Tid_t, ft *frame.Table_t) *Vm_t {
	return &Vm_t{tid: tid, ft: ft, spt: make(map[int]*sptEntry_t)}
}

func roundDown(va int) int {
	return va &^ (mem.PGSIZE - 1)
}

/// SetEsp records the process's current user stack pointer, consulted
/// by Pagefault to recognize legitimate stack growth.
func (vm *Vm_t) SetEsp(esp int) {
	vm.Lock()
	defer vm.Unlock()
	vm.esp = esp
}

/// InstallFile records that upage should be populated, lazily, by
/// reading off bytes into it from file the first time it is touched
/// (spec §4.8's segment loading and mmap share this path).
func (vm *Vm_t) InstallFile(upage int, file Mmapfile_i, off int, writable bool) defs.Err_t {
	vm.Lock()
	defer vm.Unlock()
	upage = roundDown(upage)
	if _, ok := vm.spt[upage]; ok {
		return defs.EINVAL
	}
	vm.spt[upage] = &sptEntry_t{status: statusFile, writable: writable, file: file, fileoff: off}
	return 0
}

/// Accessible reports whether upage is a legal user address: already
/// tracked, or within the automatically growable stack region.
func (vm *Vm_t) Accessible(upage int) bool {
	vm.Lock()
	defer vm.Unlock()
	return vm.accessible(upage)
}

/// Mappable reports whether upage is free to receive a new mmap/
/// executable-segment mapping: not already tracked, and clear of the
/// automatically growable stack region (spec §4.8).
func (vm *Vm_t) Mappable(upage int) bool {
	vm.Lock()
	defer vm.Unlock()
	if _, ok := vm.spt[upage]; ok {
		return false
	}
	return upage > 0 && upage < StackUnderline
}

func (vm *Vm_t) accessible(upage int) bool {
	if _, ok := vm.spt[upage]; ok {
		return true
	}
	return upage >= StackUnderline && upage < UserTop
}

/// Pagefault services a fault at vaddr: growing the stack with a fresh
/// zero page, faulting a swapped page back in, populating a
/// file-backed page on first touch, or failing with EFAULT/EPERM for
/// everything else (spec §4.7).
func (vm *Vm_t) Pagefault(vaddr int, write bool) defs.Err_t {
	upage := roundDown(vaddr)

	vm.Lock()
	if !vm.accessible(upage) {
		vm.Unlock()
		return defs.EFAULT
	}

	ent, tracked := vm.spt[upage]
	if !tracked {
		if vaddr < vm.esp-instMargin {
			vm.Unlock()
			return defs.EFAULT
		}
		vm.Unlock()

		// Get may evict a frame, and the victim's EvictPage callback
		// re-acquires this same Vm_t's lock; holding it across Get
		// would deadlock against ourselves when we are the victim.
		_, pa, ok := vm.ft.Get(frame.Upage_t{Tid: vm.tid, Va: upage}, vm)
		if !ok {
			return defs.ENOMEM
		}

		vm.Lock()
		vm.spt[upage] = &sptEntry_t{status: statusFrame, writable: true, pa: pa}
		vm.ft.SetSwapable(pa)
		vm.Unlock()
		return 0
	}

	switch ent.status {
	case statusFrame:
		vm.Unlock()
		if write && !ent.writable {
			return defs.EPERM
		}
		return 0

	case statusSwap:
		swapidx := ent.swapidx
		vm.Unlock()

		// Same reentrancy hazard as the stack-growth branch above:
		// Get's eviction path can call back into EvictPage on this Vm_t.
		pg, pa, ok := vm.ft.Get(frame.Upage_t{Tid: vm.tid, Va: upage}, vm)
		if !ok {
			return defs.ENOMEM
		}
		vm.ft.LoadSwap(swapidx, pg)

		vm.Lock()
		ent.status = statusFrame
		ent.pa = pa
		vm.ft.SetSwapable(pa)
		vm.Unlock()
		return 0

	case statusFile:
		if write && !ent.writable {
			vm.Unlock()
			return defs.EPERM
		}
		file, off := ent.file, ent.fileoff
		vm.Unlock()

		pg, pa, ok := vm.ft.Get(frame.Upage_t{Tid: vm.tid, Va: upage}, vm)
		if !ok {
			return defs.ENOMEM
		}
		buf := mem.Pg2bytes(pg)
		if _, err := file.ReadFile(off, buf[:]); err != 0 {
			vm.ft.Free(pa)
			return err
		}

		vm.Lock()
		ent.status = statusFrame
		ent.pa = pa
		vm.ft.SetSwapable(pa)
		vm.Unlock()
		return 0

	default:
		vm.Unlock()
		return defs.EFAULT
	}
}

/// EvictPage implements frame.Victim_i: the frame table calls this
/// once it has written upage out to swap, so its supplemental entry
/// stops pointing at a frame the table is about to reclaim.
func (vm *Vm_t) EvictPage(upage frame.Upage_t, swapidx int) {
	vm.Lock()
	defer vm.Unlock()
	ent, ok := vm.spt[upage.Va]
	if !ok {
		return
	}
	ent.status = statusSwap
	ent.swapidx = swapidx
	ent.pa = 0
}

/// Unmap drops the mapping for upage, writing its frame back to file
/// first if it is resident, file-backed, and writable.
func (vm *Vm_t) Unmap(upage int) defs.Err_t {
	vm.Lock()
	defer vm.Unlock()
	upage = roundDown(upage)

	ent, ok := vm.spt[upage]
	if !ok {
		return defs.EINVAL
	}
	if ent.status == statusFrame {
		if ent.file != nil && ent.writable {
			buf := mem.Pg2bytes(vm.ft.Dmap(ent.pa))
			ent.file.WriteFile(ent.fileoff, buf[:])
		}
		vm.ft.Free(ent.pa)
	} else if ent.status == statusSwap {
		vm.ft.FreeSwap(ent.swapidx)
	}
	delete(vm.spt, upage)
	return 0
}

/// Destroy releases every resident frame and swap slot this address
/// space owns, for process exit.
func (vm *Vm_t) Destroy() {
	vm.Lock()
	defer vm.Unlock()
	for _, ent := range vm.spt {
		switch ent.status {
		case statusFrame:
			vm.ft.Free(ent.pa)
		case statusSwap:
			vm.ft.FreeSwap(ent.swapidx)
		}
	}
	vm.spt = make(map[int]*sptEntry_t)
}

/// Userdmap8 returns a byte slice view of the resident frame backing
/// va, faulting it in first if necessary. The lock is released before
/// calling Pagefault -- which takes the same lock internally -- and
/// re-acquired only to read back the frame the fault installed; Go's
/// sync.Mutex is not reentrant, so holding it across the fault call
/// would deadlock a stack-growth or swap-in fault against itself.
func (vm *Vm_t) Userdmap8(va int, write bool) ([]uint8, defs.Err_t) {
	upage := roundDown(va)

	vm.Lock()
	ent, ok := vm.spt[upage]
	resident := ok && ent.status == statusFrame
	vm.Unlock()

	if !resident {
		if err := vm.Pagefault(va, write); err != 0 {
			return nil, err
		}
	}

	vm.Lock()
	ent, ok = vm.spt[upage]
	if !ok || ent.status != statusFrame {
		vm.Unlock()
		return nil, defs.EFAULT
	}
	if write && !ent.writable {
		vm.Unlock()
		return nil, defs.EPERM
	}
	pa := ent.pa
	vm.Unlock()

	buf := mem.Pg2bytes(vm.ft.Dmap(pa))
	off := va & (mem.PGSIZE - 1)
	return buf[off:], 0
}

/// Userreadn reads a little-endian integer of sz bytes (sz <= 8) out
/// of user memory at va, a resident page at a time.
func (vm *Vm_t) Userreadn(va int, sz int) (int, defs.Err_t) {
	var ret int
	read := 0
	for read < sz {
		ubuf, err := vm.Userdmap8(va+read, false)
		if err != 0 {
			return 0, err
		}
		n := sz - read
		if n > len(ubuf) {
			n = len(ubuf)
		}
		for i := 0; i < n; i++ {
			ret |= int(ubuf[i]) << (8 * uint(read+i))
		}
		read += n
	}
	return ret, 0
}
