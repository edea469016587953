package swap

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/mem"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadRoundtrip(t *testing.T) {
	sd := MkDevice(4)

	var pg mem.Pg_t
	pg[0] = 0xdeadbeef

	idx, ok := sd.Store(&pg)
	require.True(t, ok)

	var out mem.Pg_t
	sd.Load(idx, &out)
	require.Equal(t, pg, out)
}

func TestLoadFreesSlot(t *testing.T) {
	sd := MkDevice(1)

	var pg mem.Pg_t
	pg[0] = 1
	idx, ok := sd.Store(&pg)
	require.True(t, ok)

	var out mem.Pg_t
	sd.Load(idx, &out)

	// the single slot must be free again
	_, ok = sd.Store(&pg)
	require.True(t, ok)
}

func TestStoreExhaustion(t *testing.T) {
	sd := MkDevice(2)
	var pg mem.Pg_t

	_, ok1 := sd.Store(&pg)
	_, ok2 := sd.Store(&pg)
	_, ok3 := sd.Store(&pg)

	require.True(t, ok1)
	require.True(t, ok2)
	require.False(t, ok3)
}

func TestFreeWithoutReading(t *testing.T) {
	sd := MkDevice(1)
	var pg mem.Pg_t
	idx, ok := sd.Store(&pg)
	require.True(t, ok)

	sd.Free(idx)

	_, ok = sd.Store(&pg)
	require.True(t, ok)
}
