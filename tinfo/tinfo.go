// Package tinfo tracks per-thread kill/exit state.
//
// The teacher located the calling thread's Tnote_t via a patched-runtime
// goroutine-local slot (runtime.Gptr/Setgptr). That hook does not exist
// in stock Go, and hanging a kernel object off hidden per-goroutine
// storage is itself a singleton worth avoiding: callers here thread the
// *Tnote_t explicitly (proc.Proc_t holds one), rather than recovering
// it from the calling goroutine.
package tinfo

import (
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/defs"
)

/// Tnote_t stores per-thread state used for cooperative thread teardown.
type Tnote_t struct {
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool
	// protects Killed, Killnaps.Cond and Kerr, and is a leaf lock
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

/// Doomed reports whether the thread is marked as doomed.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

/// Threadinfo_t tracks all live thread notes, keyed by thread id.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

/// Init initializes the thread info map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}

/// Spawn registers a fresh Tnote_t for tid and returns it.
func (t *Threadinfo_t) Spawn(tid defs.Tid_t) *Tnote_t {
	t.Lock()
	defer t.Unlock()
	n := &Tnote_t{Alive: true}
	t.Notes[tid] = n
	return n
}

/// Find returns the Tnote_t registered for tid, if any.
func (t *Threadinfo_t) Find(tid defs.Tid_t) (*Tnote_t, bool) {
	t.Lock()
	defer t.Unlock()
	n, ok := t.Notes[tid]
	return n, ok
}

/// Remove forgets tid's Tnote_t.
func (t *Threadinfo_t) Remove(tid defs.Tid_t) {
	t.Lock()
	defer t.Unlock()
	delete(t.Notes, tid)
}
