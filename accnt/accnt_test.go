package accnt

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/util"
	"github.com/stretchr/testify/require"
)

func TestUtaddSystaddAccumulate(t *testing.T) {
	a := &Accnt_t{}
	a.Utadd(100)
	a.Utadd(50)
	a.Systadd(10)
	require.Equal(t, int64(150), a.Userns)
	require.Equal(t, int64(10), a.Sysns)
}

func TestAddMergesRecords(t *testing.T) {
	a := &Accnt_t{Userns: 10, Sysns: 20}
	b := &Accnt_t{Userns: 5, Sysns: 7}
	a.Add(b)
	require.Equal(t, int64(15), a.Userns)
	require.Equal(t, int64(27), a.Sysns)
}

func TestToRusageEncodesSecondsAndMicros(t *testing.T) {
	a := &Accnt_t{Userns: 2_500_000_000, Sysns: 1_000_000}
	buf := a.To_rusage()
	require.Len(t, buf, 32)

	require.Equal(t, 2, util.Readn(buf, 8, 0))
	require.Equal(t, 500000, util.Readn(buf, 8, 8))
	require.Equal(t, 0, util.Readn(buf, 8, 16))
	require.Equal(t, 1000, util.Readn(buf, 8, 24))
}

func TestSyscallLoadDecaysTowardConstantInput(t *testing.T) {
	l := &SyscallLoad_t{}
	for i := 0; i < 1000; i++ {
		l.Decay(4)
	}
	require.Equal(t, 4, l.Value())
}

func TestSyscallLoadStartsAtZero(t *testing.T) {
	l := &SyscallLoad_t{}
	require.Equal(t, 0, l.Value())
}
