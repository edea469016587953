// Package proc is the minimal process model the syscall dispatcher
// needs to exercise exec/wait/exit/halt (spec §4.9, §8.9): a pid
// table, a per-process address space/mmap manager/fd table/cwd, and
// the exec "load complete" semaphore protocol. It does not schedule,
// prioritize, or run a real ELF loader -- both out of scope per
// spec.md's Non-goals -- so Exec's loader is a pluggable stub. Process
// creation is capped by limits.Syslimit.Nprocs, and each live process
// carries a tinfo.Tnote_t recording its alive/dead state.
package proc

import (
	"context"
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/fd"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/limits"
	"github.com/laonahongchen/PintOS-SJTU/mmap"
	"github.com/laonahongchen/PintOS-SJTU/tinfo"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/laonahongchen/PintOS-SJTU/vm"
	"golang.org/x/sync/semaphore"
)

/// Loader_i loads a program image into a freshly execed process's
/// address space. The only implementation this module ships is a
/// stub that always reports success; a real loader would map the
/// executable's segments via mmap.Manager_t.LoadSegment.
type Loader_i interface {
	Load(p *Proc_t, path ustr.Ustr) bool
}

/// StubLoader always reports load success without mapping anything,
/// standing in for the out-of-scope ELF loader.
type StubLoader struct{}

func (StubLoader) Load(p *Proc_t, path ustr.Ustr) bool { return true }

/// Proc_t is one process: its pid, its supplemental page table /
/// address space, its mmap handle table, its open file descriptors,
/// and its current working directory.
type Proc_t struct {
	Pid    defs.Tid_t
	Vm     *vm.Vm_t
	Mm     *mmap.Manager_t
	Cwd    *fd.Cwd_t
	Note   *tinfo.Tnote_t
	parent defs.Tid_t

	sync.Mutex
	fds     map[int]*fd.Fd_t
	fdnext  int
	exitCh  chan int
	loadErr bool
}

/// Fd returns the process's open file descriptor at fdno, if any.
func (p *Proc_t) Fd(fdno int) (*fd.Fd_t, bool) {
	p.Lock()
	defer p.Unlock()
	f, ok := p.fds[fdno]
	return f, ok
}

/// AddFd installs f at the next available descriptor number and
/// returns it. Numbering starts at 2: 0 and 1 are standard input and
/// output.
func (p *Proc_t) AddFd(f *fd.Fd_t) int {
	p.Lock()
	defer p.Unlock()
	if p.fdnext < 2 {
		p.fdnext = 2
	}
	n := p.fdnext
	p.fdnext++
	p.fds[n] = f
	return n
}

/// CloseFd closes and removes fdno, if open.
func (p *Proc_t) CloseFd(fdno int) defs.Err_t {
	p.Lock()
	f, ok := p.fds[fdno]
	if !ok {
		p.Unlock()
		return defs.EINVAL
	}
	delete(p.fds, fdno)
	p.Unlock()
	return f.Fops.Close()
}

/// Table_t is the system-wide pid table.
type Table_t struct {
	sync.Mutex
	procs    map[defs.Tid_t]*Proc_t
	children map[defs.Tid_t][]defs.Tid_t
	next     defs.Tid_t
	threads  tinfo.Threadinfo_t
}

/// MkTable returns an empty process table; pids start at 1.
func MkTable() *Table_t {
	t := &Table_t{
		procs:    make(map[defs.Tid_t]*Proc_t),
		children: make(map[defs.Tid_t][]defs.Tid_t),
		next:     1,
	}
	t.threads.Init()
	return t
}

/// Get looks up a process by pid.
func (t *Table_t) Get(pid defs.Tid_t) (*Proc_t, bool) {
	t.Lock()
	defer t.Unlock()
	p, ok := t.procs[pid]
	return p, ok
}

// alloc hands out the next pid, first taking one unit of capacity off
// limits.Syslimit.Nprocs -- the live counterpart of the teacher's
// Sysprocs ceiling -- so a runaway exec/fork loop fails instead of
// growing the pid table without bound.
func (t *Table_t) alloc() (defs.Tid_t, bool) {
	if !limits.Syslimit.Nprocs.Take() {
		return 0, false
	}
	t.Lock()
	defer t.Unlock()
	pid := t.next
	t.next++
	return pid, true
}

func (t *Table_t) insert(p *Proc_t) {
	t.Lock()
	defer t.Unlock()
	t.procs[p.Pid] = p
	t.children[p.parent] = append(t.children[p.parent], p.Pid)
}

func (t *Table_t) remove(pid defs.Tid_t) {
	t.Lock()
	defer t.Unlock()
	delete(t.procs, pid)
}

func (t *Table_t) isChild(parent, pid defs.Tid_t) bool {
	t.Lock()
	defer t.Unlock()
	for _, c := range t.children[parent] {
		if c == pid {
			return true
		}
	}
	return false
}

/// MkInit creates pid 1, the root process every other process
/// ultimately execs from, rooted at cwd and with no open files. Panics
/// if the system process limit is somehow already exhausted -- there
/// can be no process table without an init.
func MkInit(t *Table_t, ft *frame.Table_t, cwd *fd.Cwd_t) *Proc_t {
	pid, ok := t.alloc()
	if !ok {
		panic("process limit exhausted before init")
	}
	p := &Proc_t{
		Pid:    pid,
		Vm:     vm.MkVm(pid, ft),
		Mm:     mmap.MkManager(),
		Cwd:    cwd,
		Note:   t.threads.Spawn(pid),
		fds:    make(map[int]*fd.Fd_t),
		exitCh: make(chan int, 1),
	}
	t.insert(p)
	return p
}

/// Exec creates a child of parent to run path, blocking until the
/// loader signals load completion (spec §4.9's per-child "load
/// complete" semaphore) and returning pid 0 with EINVAL if the loader
/// reports it could not load the image.
func Exec(t *Table_t, ft *frame.Table_t, parent *Proc_t, path ustr.Ustr, loader Loader_i) (defs.Tid_t, defs.Err_t) {
	pid, ok := t.alloc()
	if !ok {
		return 0, defs.EAGAIN
	}
	child := &Proc_t{
		Pid:    pid,
		Vm:     vm.MkVm(pid, ft),
		Mm:     mmap.MkManager(),
		Cwd:    parent.Cwd,
		Note:   t.threads.Spawn(pid),
		parent: parent.Pid,
		fds:    make(map[int]*fd.Fd_t),
		exitCh: make(chan int, 1),
	}

	sem := semaphore.NewWeighted(1)
	ctx := context.Background()
	sem.Acquire(ctx, 1)

	go func() {
		ok := loader.Load(child, path)
		child.Lock()
		child.loadErr = !ok
		child.Unlock()
		sem.Release(1)
	}()

	sem.Acquire(ctx, 1)
	sem.Release(1)

	child.Lock()
	failed := child.loadErr
	child.Unlock()
	if failed {
		t.threads.Remove(pid)
		limits.Syslimit.Nprocs.Give()
		return 0, defs.EINVAL
	}

	t.insert(child)
	return child.Pid, 0
}

/// Wait blocks until the child with pid childPid exits, returning its
/// exit status, or ECHILD if childPid is not a child of parent.
func Wait(t *Table_t, parent *Proc_t, childPid defs.Tid_t) (int, defs.Err_t) {
	if !t.isChild(parent.Pid, childPid) {
		return 0, defs.ECHILD
	}
	child, ok := t.Get(childPid)
	if !ok {
		return 0, defs.ECHILD
	}
	status := <-child.exitCh
	t.remove(childPid)
	t.threads.Remove(childPid)
	return status, 0
}

/// Exit tears down p's address space and file descriptors and
/// delivers status to a pending or future Wait (spec §4.7's
/// page_destroy releases every frame and swap slot p owns).
func Exit(p *Proc_t, status int) {
	p.Vm.Destroy()
	p.Lock()
	for fdno, f := range p.fds {
		f.Fops.Close()
		delete(p.fds, fdno)
	}
	p.Unlock()

	p.Note.Lock()
	p.Note.Alive = false
	p.Note.Unlock()
	limits.Syslimit.Nprocs.Give()

	p.exitCh <- status
}
