package syscall

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/disk"
	"github.com/laonahongchen/PintOS-SJTU/fd"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/fs"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/proc"
	"github.com/laonahongchen/PintOS-SJTU/swap"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/stretchr/testify/require"
)

func mkenv(t *testing.T) (*Dispatcher_t, *proc.Table_t, *proc.Proc_t) {
	d := disk.MkMemDevice(512)
	fsys := fs.MkFS(d, 512)
	root, err := fsys.Fs_open(ustr.MkUstrRoot(), defs.O_RDONLY, 0)
	require.Equal(t, defs.Err_t(0), err)
	cwd := fd.MkRootCwd(&fd.Fd_t{Fops: root, Perms: fd.FD_READ})

	phys := mem.Phys_init(64)
	ft := frame.MkTable(phys, swap.MkDevice(64))
	tbl := proc.MkTable()
	init := proc.MkInit(tbl, ft, cwd)

	return MkDispatcher(fsys, ft, tbl), tbl, init
}

// zeroBacking is a stand-in vm.Mmapfile_i backing user pages set up by
// tests directly, with no real file or mmap manager behind them.
type zeroBacking struct{}

func (zeroBacking) ReadFile(off int, dst []uint8) (int, defs.Err_t) {
	for i := range dst {
		dst[i] = 0
	}
	return len(dst), 0
}

func (zeroBacking) WriteFile(off int, src []uint8) (int, defs.Err_t) {
	return len(src), 0
}

// writeUserBytes installs one page at vaddr and writes data into it, so
// Dispatch's user-pointer validation helpers have something real to
// read.
func writeUserBytes(t *testing.T, p *proc.Proc_t, vaddr int, data []uint8) {
	require.Equal(t, defs.Err_t(0), p.Vm.InstallFile(vaddr, zeroBacking{}, 0, true))
	buf, err := p.Vm.Userdmap8(vaddr, true)
	require.Equal(t, defs.Err_t(0), err)
	copy(buf, data)
}

func TestCheckUserValidatesEveryPageInRange(t *testing.T) {
	_, _, p := mkenv(t)
	vaddr := mem.PGSIZE * 4
	writeUserBytes(t, p, vaddr, []byte("x"))

	// span crosses into an untracked page one page further: must fail.
	err := checkUser(p.Vm, vaddr, mem.PGSIZE+8, true)
	require.Equal(t, defs.EFAULT, err)
}

func TestCheckStringStopsAtNul(t *testing.T) {
	_, _, p := mkenv(t)
	vaddr := mem.PGSIZE * 4
	data := append([]byte("hello"), 0)
	writeUserBytes(t, p, vaddr, data)

	n, err := checkString(p.Vm, vaddr)
	require.Equal(t, defs.Err_t(0), err)
	require.Equal(t, 5, n)
}

func TestCheckStringTooLongFails(t *testing.T) {
	_, _, p := mkenv(t)
	vaddr := mem.PGSIZE * 4
	long := make([]byte, maxStringLen+10)
	for i := range long {
		long[i] = 'a'
	}
	writeUserBytes(t, p, vaddr, long)

	_, err := checkString(p.Vm, vaddr)
	require.Equal(t, defs.ENAMETOOLONG, err)
}

func TestDispatchCreateOpenWriteReadRoundtrip(t *testing.T) {
	disp, _, p := mkenv(t)
	pathAddr := mem.PGSIZE * 4
	writeUserBytes(t, p, pathAddr, append([]byte("hi"), 0))

	ret, fatal := disp.Dispatch(p, SYS_CREATE, pathAddr, 0, 0)
	require.False(t, fatal)
	require.Equal(t, 1, ret)

	ret, fatal = disp.Dispatch(p, SYS_OPEN, pathAddr, 0, 0)
	require.False(t, fatal)
	require.GreaterOrEqual(t, ret, 0)
	fdno := ret

	wdata := mem.PGSIZE * 5
	writeUserBytes(t, p, wdata, []byte("payload"))
	ret, fatal = disp.Dispatch(p, SYS_WRITE, fdno, wdata, 7)
	require.False(t, fatal)
	require.Equal(t, 7, ret)

	ret, fatal = disp.Dispatch(p, SYS_SEEK, fdno, 0, 0)
	require.False(t, fatal)
	require.Equal(t, 0, ret)

	rdata := mem.PGSIZE * 6
	require.Equal(t, defs.Err_t(0), p.Vm.InstallFile(rdata, zeroBacking{}, 0, true))
	ret, fatal = disp.Dispatch(p, SYS_READ, fdno, rdata, 7)
	require.False(t, fatal)
	require.Equal(t, 7, ret)

	buf, verr := p.Vm.Userdmap8(rdata, false)
	require.Equal(t, defs.Err_t(0), verr)
	require.Equal(t, "payload", string(buf[:7]))
}

func TestDispatchExecWaitRoundtrip(t *testing.T) {
	disp, tbl, p := mkenv(t)
	pathAddr := mem.PGSIZE * 4
	writeUserBytes(t, p, pathAddr, append([]byte("/init"), 0))

	ret, fatal := disp.Dispatch(p, SYS_EXEC, pathAddr, 0, 0)
	require.False(t, fatal)
	require.Greater(t, ret, 0)
	childPid := defs.Tid_t(ret)

	child, ok := tbl.Get(childPid)
	require.True(t, ok)
	go proc.Exit(child, 7)

	status, fatal2 := disp.Dispatch(p, SYS_WAIT, int(childPid), 0, 0)
	require.False(t, fatal2)
	require.Equal(t, 7, status)
}

func TestDispatchWaitOnNonChildReturnsMinusOne(t *testing.T) {
	disp, tbl, p := mkenv(t)
	phys := mem.Phys_init(64)
	ft := frame.MkTable(phys, swap.MkDevice(64))
	stranger := proc.MkInit(tbl, ft, p.Cwd)

	ret, fatal := disp.Dispatch(p, SYS_WAIT, int(stranger.Pid), 0, 0)
	require.False(t, fatal)
	require.Equal(t, -1, ret)
}

func TestDispatchBadStringFailsFatal(t *testing.T) {
	disp, _, p := mkenv(t)
	// an address that is never installed is not a legal user pointer.
	_, fatal := disp.Dispatch(p, SYS_CREATE, mem.PGSIZE*99, 0, 0)
	require.True(t, fatal)
}

func TestDispatchUnknownSyscallIsFatal(t *testing.T) {
	disp, _, p := mkenv(t)
	_, fatal := disp.Dispatch(p, 9999, 0, 0, 0)
	require.True(t, fatal)
}
