package frame

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/swap"
	"github.com/stretchr/testify/require"
)

type fakeVictim struct {
	evicted []Upage_t
}

func (f *fakeVictim) EvictPage(upage Upage_t, swapidx int) {
	f.evicted = append(f.evicted, upage)
}

func TestGetAllocatesDistinctFrames(t *testing.T) {
	phys := mem.Phys_init(8)
	ft := MkTable(phys, swap.MkDevice(8))
	owner := &fakeVictim{}

	_, pa1, ok1 := ft.Get(Upage_t{Tid: 1, Va: 0x1000}, owner)
	_, pa2, ok2 := ft.Get(Upage_t{Tid: 1, Va: 0x2000}, owner)

	require.True(t, ok1)
	require.True(t, ok2)
	require.NotEqual(t, pa1, pa2)
}

func TestEvictsWhenExhausted(t *testing.T) {
	phys := mem.Phys_init(2)
	ft := MkTable(phys, swap.MkDevice(8))
	owner := &fakeVictim{}

	_, pa1, ok1 := ft.Get(Upage_t{Tid: 1, Va: 0x1000}, owner)
	require.True(t, ok1)
	ft.SetSwapable(pa1)

	_, pa2, ok2 := ft.Get(Upage_t{Tid: 1, Va: 0x2000}, owner)
	require.True(t, ok2)
	ft.SetSwapable(pa2)

	// Pool only has 2 pages; a third Get must evict a swapable frame.
	_, _, ok3 := ft.Get(Upage_t{Tid: 1, Va: 0x3000}, owner)
	require.True(t, ok3)
	require.Len(t, owner.evicted, 1)
}

func TestUnswapableFrameIsNotEvicted(t *testing.T) {
	phys := mem.Phys_init(1)
	ft := MkTable(phys, swap.MkDevice(8))
	owner := &fakeVictim{}

	_, pa1, ok1 := ft.Get(Upage_t{Tid: 1, Va: 0x1000}, owner)
	require.True(t, ok1)
	// never call SetSwapable: pa1 must stay pinned

	_, _, ok2 := ft.Get(Upage_t{Tid: 1, Va: 0x2000}, owner)
	require.False(t, ok2)
	require.Empty(t, owner.evicted)

	_ = pa1
}

func TestFreeRemovesEntry(t *testing.T) {
	phys := mem.Phys_init(1)
	ft := MkTable(phys, swap.MkDevice(8))
	owner := &fakeVictim{}

	_, pa1, ok1 := ft.Get(Upage_t{Tid: 1, Va: 0x1000}, owner)
	require.True(t, ok1)
	ft.Free(pa1)

	// now the pool has room again
	_, _, ok2 := ft.Get(Upage_t{Tid: 1, Va: 0x2000}, owner)
	require.True(t, ok2)
}
