package vm

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/swap"
	"github.com/stretchr/testify/require"
)

func mkvm(t *testing.T, npages int) *Vm_t {
	phys := mem.Phys_init(npages)
	ft := frame.MkTable(phys, swap.MkDevice(npages))
	return MkVm(1, ft)
}

func TestStackGrowthNearEsp(t *testing.T) {
	as := mkvm(t, 4)
	as.SetEsp(StackUnderline + 2*mem.PGSIZE)

	err := as.Pagefault(StackUnderline+2*mem.PGSIZE-8, true)
	require.Equal(t, defs.Err_t(0), err)
	require.True(t, as.Accessible(roundDown(StackUnderline+2*mem.PGSIZE-8)))
}

func TestFaultFarBelowEspFails(t *testing.T) {
	as := mkvm(t, 4)
	as.SetEsp(StackUnderline + 10*mem.PGSIZE)

	err := as.Pagefault(StackUnderline+1*mem.PGSIZE, true)
	require.Equal(t, defs.EFAULT, err)
}

func TestUnmappedBelowStackFails(t *testing.T) {
	as := mkvm(t, 4)
	err := as.Pagefault(0x1000, false)
	require.Equal(t, defs.EFAULT, err)
}

func TestWriteToReadOnlyFramePermissionDenied(t *testing.T) {
	as := mkvm(t, 4)
	upage := StackUnderline + mem.PGSIZE
	as.SetEsp(upage + 4)

	require.Equal(t, defs.Err_t(0), as.Pagefault(upage, false))

	as.Lock()
	as.spt[roundDown(upage)].writable = false
	as.Unlock()

	require.Equal(t, defs.EPERM, as.Pagefault(upage, true))
}

func TestEvictPageTransitionsToSwap(t *testing.T) {
	as := mkvm(t, 4)
	upage := StackUnderline + mem.PGSIZE
	as.SetEsp(upage + 4)
	require.Equal(t, defs.Err_t(0), as.Pagefault(upage, true))

	as.EvictPage(frame.Upage_t{Tid: 1, Va: roundDown(upage)}, 7)

	as.Lock()
	ent := as.spt[roundDown(upage)]
	status := ent.status
	idx := ent.swapidx
	as.Unlock()
	require.Equal(t, statusSwap, status)
	require.Equal(t, 7, idx)
}

type fakeFile struct {
	data []uint8
}

func (f *fakeFile) ReadFile(off int, dst []uint8) (int, defs.Err_t) {
	for i := range dst {
		if off+i < len(f.data) {
			dst[i] = f.data[off+i]
		} else {
			dst[i] = 0
		}
	}
	return len(dst), 0
}

func (f *fakeFile) WriteFile(off int, src []uint8) (int, defs.Err_t) {
	for i, b := range src {
		if off+i < len(f.data) {
			f.data[off+i] = b
		}
	}
	return len(src), 0
}

func TestFileBackedFaultPopulatesAndUnmapWritesBack(t *testing.T) {
	as := mkvm(t, 4)
	upage := mem.PGSIZE * 4
	file := &fakeFile{data: make([]uint8, mem.PGSIZE)}
	file.data[0] = 0x42

	require.Equal(t, defs.Err_t(0), as.InstallFile(upage, file, 0, true))
	require.Equal(t, defs.Err_t(0), as.Pagefault(upage, false))

	buf, err := as.Userdmap8(upage, false)
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, uint8(0x42), buf[0])

	buf[1] = 0x99
	require.Equal(t, defs.Err_t(0), as.Unmap(upage))
	require.Equal(t, uint8(0x99), file.data[1])
}

func TestDestroyReleasesEverything(t *testing.T) {
	as := mkvm(t, 4)
	upage := StackUnderline + mem.PGSIZE
	as.SetEsp(upage + 4)
	require.Equal(t, defs.Err_t(0), as.Pagefault(upage, true))

	as.Destroy()
	as.Lock()
	n := len(as.spt)
	as.Unlock()
	require.Equal(t, 0, n)
}
