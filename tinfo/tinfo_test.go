package tinfo

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/stretchr/testify/require"
)

func TestSpawnRegistersAliveNote(t *testing.T) {
	var ti Threadinfo_t
	ti.Init()

	n := ti.Spawn(defs.Tid_t(1))
	require.True(t, n.Alive)
	require.False(t, n.Doomed())

	found, ok := ti.Find(defs.Tid_t(1))
	require.True(t, ok)
	require.Same(t, n, found)
}

func TestFindMissesUnknownTid(t *testing.T) {
	var ti Threadinfo_t
	ti.Init()

	_, ok := ti.Find(defs.Tid_t(99))
	require.False(t, ok)
}

func TestRemoveForgetsNote(t *testing.T) {
	var ti Threadinfo_t
	ti.Init()

	ti.Spawn(defs.Tid_t(1))
	ti.Remove(defs.Tid_t(1))

	_, ok := ti.Find(defs.Tid_t(1))
	require.False(t, ok)
}

func TestDoomedReflectsIsdoomed(t *testing.T) {
	n := &Tnote_t{Alive: true}
	require.False(t, n.Doomed())
	n.Isdoomed = true
	require.True(t, n.Doomed())
}
