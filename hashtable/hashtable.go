// Package hashtable implements a lock-striped hash table with a
// lock-free Get(): lookups walk a singly linked chain through
// atomic.Pointer loads and never block on a writer. It backs the
// open-inode set (keyed by inode number) and the mmap handle table
// (keyed by int handle).
package hashtable

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/laonahongchen/PintOS-SJTU/ustr"
)

type hashtable_i interface {
	Get(key interface{}) (interface{}, bool)
	Set(key interface{}, val interface{}) (interface{}, bool)
	Del(key interface{})
}

type elem_t struct {
	key     interface{}
	value   interface{}
	keyHash uint32
	next    atomic.Pointer[elem_t]
}

type bucket_t struct {
	sync.RWMutex
	first atomic.Pointer[elem_t]
}

func (b *bucket_t) len() int {
	b.RLock()
	defer b.RUnlock()

	l := 0
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		l++
	}
	return l
}

func (b *bucket_t) elems() []Pair_t {
	b.RLock()
	defer b.RUnlock()

	p := make([]Pair_t, 0)
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		p = append(p, Pair_t{Key: e.key, Value: e.value})
	}
	return p
}

func (b *bucket_t) iter(f func(interface{}, interface{}) bool) bool {
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if f(e.key, e.value) {
			return true
		}
	}
	return false
}

/// Hashtable_t represents a basic hash table mapping keys to values.
/// It is protected internally by bucket locks.
type Hashtable_t struct {
	table    []*bucket_t
	capacity int
	maxchain int
}

/// MkHash allocates a new Hashtable_t with the given size.
func MkHash(size int) *Hashtable_t {
	ht := &Hashtable_t{}
	ht.capacity = size
	ht.table = make([]*bucket_t, size)
	ht.maxchain = 1
	for i := range ht.table {
		ht.table[i] = &bucket_t{}
	}
	return ht
}

/// String returns a formatted representation of the table contents.
func (ht *Hashtable_t) String() string {
	s := ""
	for i, b := range ht.table {
		if b.first.Load() != nil {
			s += fmt.Sprintf("b %d:\n", i)
			for e := b.first.Load(); e != nil; e = e.next.Load() {
				s += fmt.Sprintf("(%v, %v), ", e.keyHash, e.key)
			}
			s += "\n"
		}
	}
	return s
}

/// Size returns the total number of elements stored in the table.
func (ht *Hashtable_t) Size() int {
	n := 0
	for _, b := range ht.table {
		n += b.len()
	}
	return n
}

/// Pair_t represents a key/value tuple returned by Elems.
type Pair_t struct {
	Key   interface{}
	Value interface{}
}

/// Elems returns all key/value pairs currently stored.
func (ht *Hashtable_t) Elems() []Pair_t {
	p := make([]Pair_t, 0)
	for _, b := range ht.table {
		n := b.elems()
		if n != nil {
			p = append(p, n...)
		}
	}
	return p
}

/// Get looks up the provided key and returns its value without taking
/// a bucket lock.
func (ht *Hashtable_t) Get(key interface{}) (interface{}, bool) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	n := 0
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && equal(e.key, key) {
			return e.value, true
		}
		n++
		if n > ht.maxchain {
			ht.maxchain = n
		}
	}
	return nil, false
}

/// GetRLock performs Get while holding a read lock.
/// Used only for performance comparisons.
func (ht *Hashtable_t) GetRLock(key interface{}) (interface{}, bool) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	b.RLock()
	defer b.RUnlock()

	n := 0
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && equal(e.key, key) {
			return e.value, true
		}
		n++
		if n > ht.maxchain {
			ht.maxchain = n
		}
	}
	return nil, false
}

/// Set inserts a key/value pair and returns false if the key already existed.
func (ht *Hashtable_t) Set(key interface{}, value interface{}) (interface{}, bool) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	b.Lock()
	defer b.Unlock()

	add := func(last *elem_t) {
		if last == nil {
			n := &elem_t{key: key, value: value, keyHash: kh}
			n.next.Store(b.first.Load())
			b.first.Store(n)
		} else {
			n := &elem_t{key: key, value: value, keyHash: kh}
			n.next.Store(last.next.Load())
			last.next.Store(n)
		}
	}

	var last *elem_t
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && equal(e.key, key) {
			return e.value, false
		}
		if kh < e.keyHash {
			add(last)
			return value, true
		}
		last = e
	}
	add(last)
	return value, true
}

/// Del removes a key from the table.
func (ht *Hashtable_t) Del(key interface{}) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	b.Lock()
	defer b.Unlock()

	rem := func(last *elem_t, n *elem_t) {
		if last == nil {
			b.first.Store(n.next.Load())
		} else {
			last.next.Store(n.next.Load())
		}
	}

	var last *elem_t
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.keyHash == kh && equal(e.key, key) {
			rem(last, e)
			return
		}
		if kh < e.keyHash {
			panic("del of non-existing key")
		}
		last = e
	}
	panic("del of non-existing key")
}

/// Iter applies f to each key/value pair. Iteration stops when f returns true.
func (ht *Hashtable_t) Iter(f func(interface{}, interface{}) bool) bool {
	for _, b := range ht.table {
		if b.iter(f) {
			return true
		}
	}
	return false
}

func (ht *Hashtable_t) hash(keyHash uint32) int {
	return int(keyHash % uint32(len(ht.table)))
}

func hashUstr(s ustr.Ustr) uint32 {
	h := fnv.New32a()
	h.Write(s)
	return h.Sum32()
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func khash(key interface{}) uint32 {
	h := hash(key)
	return uint32(2654435761) * h
}

func hash(key interface{}) uint32 {
	switch x := key.(type) {
	case ustr.Ustr:
		return hashUstr(x)
	case int:
		return uint32(x)
	case int32:
		return uint32(x)
	case uint:
		return uint32(x)
	case string:
		return hashString(x)
	}
	panic(fmt.Errorf("unsupported key type %T", key))
}

func equal(key1 interface{}, key2 interface{}) bool {
	switch x := key1.(type) {
	case ustr.Ustr:
		us2 := key2.(ustr.Ustr)
		return x.Eq(us2)
	case int32:
		n2 := key2.(int32)
		return x == n2
	case int:
		n2 := key2.(int)
		return x == n2
	case uint:
		n2 := key2.(uint)
		return x == n2
	case string:
		s2 := key2.(string)
		return x == s2
	}
	panic(fmt.Errorf("unsupported key type %T", key1))
}
