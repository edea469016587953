package proc

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/frame"
	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/laonahongchen/PintOS-SJTU/swap"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/stretchr/testify/require"
)

func mkft(t *testing.T) *frame.Table_t {
	phys := mem.Phys_init(64)
	return frame.MkTable(phys, swap.MkDevice(64))
}

type failLoader struct{}

func (failLoader) Load(p *Proc_t, path ustr.Ustr) bool { return false }

func TestExecInsertsChildOnSuccess(t *testing.T) {
	ft := mkft(t)
	tbl := MkTable()
	init := MkInit(tbl, ft, nil)

	child, err := Exec(tbl, ft, init, ustr.MkUstrRoot(), StubLoader{})
	require.Equal(t, defs.Err_t(0), err)
	require.NotZero(t, child)

	p, ok := tbl.Get(child)
	require.True(t, ok)
	require.Equal(t, child, p.Pid)
}

func TestExecFailureDoesNotInsertChild(t *testing.T) {
	ft := mkft(t)
	tbl := MkTable()
	init := MkInit(tbl, ft, nil)

	child, err := Exec(tbl, ft, init, ustr.MkUstrRoot(), failLoader{})
	require.Equal(t, defs.EINVAL, err)
	require.Zero(t, child)

	require.False(t, tbl.isChild(init.Pid, child))
}

func TestWaitReturnsExitStatus(t *testing.T) {
	ft := mkft(t)
	tbl := MkTable()
	init := MkInit(tbl, ft, nil)

	childPid, err := Exec(tbl, ft, init, ustr.MkUstrRoot(), StubLoader{})
	require.Equal(t, defs.Err_t(0), err)

	child, ok := tbl.Get(childPid)
	require.True(t, ok)

	go Exit(child, 42)

	status, werr := Wait(tbl, init, childPid)
	require.Equal(t, defs.Err_t(0), werr)
	require.Equal(t, 42, status)

	_, stillThere := tbl.Get(childPid)
	require.False(t, stillThere)
}

func TestWaitOnNonChildFailsWithECHILD(t *testing.T) {
	ft := mkft(t)
	tbl := MkTable()
	init := MkInit(tbl, ft, nil)
	other := MkInit(tbl, ft, nil)

	_, err := Wait(tbl, init, other.Pid)
	require.Equal(t, defs.ECHILD, err)
}

func TestWaitOnUnknownPidFailsWithECHILD(t *testing.T) {
	ft := mkft(t)
	tbl := MkTable()
	init := MkInit(tbl, ft, nil)

	_, err := Wait(tbl, init, defs.Tid_t(999))
	require.Equal(t, defs.ECHILD, err)
}

func TestExitDestroysVm(t *testing.T) {
	ft := mkft(t)
	tbl := MkTable()
	init := MkInit(tbl, ft, nil)

	childPid, err := Exec(tbl, ft, init, ustr.MkUstrRoot(), StubLoader{})
	require.Equal(t, defs.Err_t(0), err)
	child, _ := tbl.Get(childPid)

	upage := 0x1000
	require.Equal(t, defs.Err_t(0), child.Vm.InstallFile(upage, nil, 0, true))

	go Exit(child, 0)
	_, werr := Wait(tbl, init, childPid)
	require.Equal(t, defs.Err_t(0), werr)
	require.False(t, child.Vm.Accessible(upage), "Exit must drop every supplemental page table entry")
}
