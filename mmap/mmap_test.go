package mmap

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/disk"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/fs"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/swap"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/laonahongchen/PintOS-SJTU/vm"
	"github.com/stretchr/testify/require"
)

func mkfsys(t *testing.T) *fs.Fs_t {
	d := disk.MkMemDevice(512)
	return fs.MkFS(d, 512)
}

func mkvm(t *testing.T) *vm.Vm_t {
	phys := mem.Phys_init(64)
	ft := frame.MkTable(phys, swap.MkDevice(64))
	return vm.MkVm(1, ft)
}

func writeFile(t *testing.T, fsys *fs.Fs_t, name string, contents []byte) *fs.File_t {
	p := ustr.MkUstrRoot().Extend(ustr.MkUstrSlice([]uint8(name)))
	f, err := fsys.Fs_open(p, defs.O_CREAT|defs.O_RDWR, 0)
	require.Equal(t, defs.Err_t(0), err)

	hdata := make([]uint8, len(contents))
	for i, b := range contents {
		hdata[i] = uint8(b)
	}
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(hdata)
	_, werr := f.Write(ub)
	require.Equal(t, defs.Err_t(0), werr)
	_, serr := f.Lseek(0, defs.SEEK_SET)
	require.Equal(t, defs.Err_t(0), serr)
	return f
}

func TestMmapPopulatesFromFileAndZeroFillsTail(t *testing.T) {
	fsys := mkfsys(t)
	as := mkvm(t)
	m := MkManager()

	contents := make([]byte, 10)
	for i := range contents {
		contents[i] = byte(i + 1)
	}
	f := writeFile(t, fsys, "a", contents)
	defer f.Close()

	addr := mem.PGSIZE * 8
	id, err := m.Mmap(as, f, addr, true)
	require.Equal(t, defs.Err_t(0), err)
	require.NotZero(t, id)

	buf, ferr := as.Userdmap8(addr, false)
	require.Equal(t, defs.Err_t(0), ferr)
	require.Equal(t, byte(1), buf[0])
	require.Equal(t, byte(10), buf[9])
	require.Equal(t, uint8(0), buf[10])
}

func TestMunmapWritesBackDirtyPages(t *testing.T) {
	fsys := mkfsys(t)
	as := mkvm(t)
	m := MkManager()

	contents := make([]byte, 4)
	f := writeFile(t, fsys, "b", contents)
	defer f.Close()

	addr := mem.PGSIZE * 8
	id, err := m.Mmap(as, f, addr, true)
	require.Equal(t, defs.Err_t(0), err)

	buf, ferr := as.Userdmap8(addr, true)
	require.Equal(t, defs.Err_t(0), ferr)
	buf[0] = 0x7a

	require.Equal(t, defs.Err_t(0), m.Munmap(as, id))

	rf, oerr := fsys.Fs_open(ustr.MkUstrRoot().Extend(ustr.MkUstrSlice([]uint8("b"))), defs.O_RDONLY, 0)
	require.Equal(t, defs.Err_t(0), oerr)
	defer rf.Close()

	out := make([]uint8, 4)
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(out)
	_, rerr := rf.Read(ub)
	require.Equal(t, defs.Err_t(0), rerr)
	require.Equal(t, uint8(0x7a), out[0])
}

func TestMmapRejectsAlreadyMappedPage(t *testing.T) {
	fsys := mkfsys(t)
	as := mkvm(t)
	m := MkManager()

	f := writeFile(t, fsys, "c", []byte{1, 2, 3})
	defer f.Close()

	addr := mem.PGSIZE * 8
	_, err := m.Mmap(as, f, addr, true)
	require.Equal(t, defs.Err_t(0), err)

	g := writeFile(t, fsys, "d", []byte{4, 5, 6})
	defer g.Close()
	_, err2 := m.Mmap(as, g, addr, true)
	require.Equal(t, defs.EINVAL, err2)
}

func TestMmapRejectsEmptyFile(t *testing.T) {
	fsys := mkfsys(t)
	as := mkvm(t)
	m := MkManager()

	f := writeFile(t, fsys, "e", nil)
	defer f.Close()

	_, err := m.Mmap(as, f, mem.PGSIZE*8, true)
	require.Equal(t, defs.EINVAL, err)
}

func TestLoadSegmentZeroFillsBss(t *testing.T) {
	fsys := mkfsys(t)
	as := mkvm(t)
	m := MkManager()

	contents := []byte{1, 2, 3, 4}
	f := writeFile(t, fsys, "seg", contents)
	defer f.Close()

	upage := mem.PGSIZE * 3
	_, err := m.LoadSegment(as, f, upage, 0, len(contents), mem.PGSIZE-len(contents), true, true)
	require.Equal(t, defs.Err_t(0), err)

	buf, ferr := as.Userdmap8(upage, false)
	require.Equal(t, defs.Err_t(0), ferr)
	require.Equal(t, byte(1), buf[0])
	require.Equal(t, uint8(0), buf[len(contents)])
}
