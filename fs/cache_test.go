package fs

import (
	"testing"

	"github.com/laonahongchen/PintOS-SJTU/disk"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundtrips(t *testing.T) {
	bc := MkCache(disk.MkMemDevice(128))

	in := make([]uint8, BSIZE)
	in[0] = 0x11
	in[BSIZE-1] = 0x22
	bc.Write(5, in)

	out := make([]uint8, BSIZE)
	bc.Read(5, out)
	require.Equal(t, in, out)
}

func TestEvictionWritesBackDirtySector(t *testing.T) {
	d := disk.MkMemDevice(128)
	bc := MkCache(d)

	in := make([]uint8, BSIZE)
	in[0] = 0x42
	bc.Write(1, in)

	// Touch cacheSize more distinct sectors so sector 1's entry is
	// evicted and, being dirty, written back before reuse.
	scratch := make([]uint8, BSIZE)
	for s := 2; s < 2+cacheSize; s++ {
		bc.Read(s, scratch)
	}

	out := make([]uint8, BSIZE)
	bc.Read(1, out)
	require.Equal(t, uint8(0x42), out[0])
}

func TestCloseFlushesDirtyEntries(t *testing.T) {
	d := disk.MkMemDevice(128)
	bc := MkCache(d)

	in := make([]uint8, BSIZE)
	in[3] = 0x99
	bc.Write(7, in)
	bc.Close()

	bc2 := MkCache(d)
	out := make([]uint8, BSIZE)
	bc2.Read(7, out)
	require.Equal(t, uint8(0x99), out[3])
}
