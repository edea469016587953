// Package fs implements the on-disk file system: a write-back block
// cache, a multi-level indexed inode layer (inode.go), a
// directory layer and the Fs_t facade that resolves paths and
// serializes file-system operations behind one coarse lock.
package fs

import (
	"container/list"
	"fmt"
	"sync"
)

// BSIZE is the sector size: 512 bytes, matching the on-disk inode's
// 122 direct + 3 indirect pointer layout (an indirect sector holds
// exactly 128 four-byte pointers: 128*4 == BSIZE).
const BSIZE = 512

var bdev_debug = false

/// Block_cb_i is implemented by callers wanting release callbacks.
type Block_cb_i interface {
	Relse(*Bdev_block_t, string)
}

/// blktype_t enumerates the types of blocks stored on disk. Only
/// DataBlk is produced by this module — journaling (and therefore
/// commit/revoke records) is a non-goal.
type blktype_t int

const DataBlk blktype_t = 0

/// Blockbuf_t is one sector-sized cache buffer.
type Blockbuf_t [BSIZE]uint8

/// Bdev_block_t represents a cached disk block.
type Bdev_block_t struct {
	sync.Mutex
	Block      int
	Type       blktype_t
	_try_evict bool
	Data       *Blockbuf_t
	Name       string
	Disk       Disk_i
	Cb         Block_cb_i
}

/// Bdevcmd_t enumerates disk request types.
type Bdevcmd_t uint

const (
	BDEV_WRITE Bdevcmd_t = 1
	BDEV_READ  Bdevcmd_t = 2
	BDEV_FLUSH Bdevcmd_t = 3
)

/// BlkList_t wraps a list.List of block pointers.
type BlkList_t struct {
	l *list.List
	e *list.Element // iterator
}

/// MkBlkList creates an empty block list.
func MkBlkList() *BlkList_t {
	bl := &BlkList_t{}
	bl.l = list.New()
	return bl
}

/// Len returns the number of blocks in the list.
func (bl *BlkList_t) Len() int {
	return bl.l.Len()
}

/// PushBack appends a block to the list.
func (bl *BlkList_t) PushBack(b *Bdev_block_t) {
	bl.l.PushBack(b)
}

/// FrontBlock resets the iterator and returns the first block.
func (bl *BlkList_t) FrontBlock() *Bdev_block_t {
	if bl.l.Front() == nil {
		return nil
	}
	bl.e = bl.l.Front()
	return bl.e.Value.(*Bdev_block_t)
}

/// NextBlock advances the iterator and returns the next block.
func (bl *BlkList_t) NextBlock() *Bdev_block_t {
	if bl.e == nil {
		return nil
	}
	bl.e = bl.e.Next()
	if bl.e == nil {
		return nil
	}
	return bl.e.Value.(*Bdev_block_t)
}

/// Apply calls f for each block in the list.
func (bl *BlkList_t) Apply(f func(*Bdev_block_t)) {
	for b := bl.FrontBlock(); b != nil; b = bl.NextBlock() {
		f(b)
	}
}

/// Bdev_req_t describes a block device request.
type Bdev_req_t struct {
	Cmd   Bdevcmd_t
	Blks  *BlkList_t
	AckCh chan bool
	Sync  bool
}

/// MkRequest allocates a new block request structure.
func MkRequest(blks *BlkList_t, cmd Bdevcmd_t, sync bool) *Bdev_req_t {
	ret := &Bdev_req_t{}
	ret.Blks = blks
	ret.AckCh = make(chan bool)
	ret.Cmd = cmd
	ret.Sync = sync
	return ret
}

/// Disk_i represents the raw block device, named by interface only
/// (the "raw block device driver" spec §1 lists as out of scope). It
/// is implemented for real by the `disk` package.
type Disk_i interface {
	Start(*Bdev_req_t) bool
	Stats() string
}

/// Key returns the lookup key for the block cache.
func (blk *Bdev_block_t) Key() int {
	return blk.Block
}

/// Tryevict marks the block for eviction on release.
func (blk *Bdev_block_t) Tryevict() {
	blk._try_evict = true
}

/// Evictnow reports whether the block should be evicted.
func (blk *Bdev_block_t) Evictnow() bool {
	return blk._try_evict
}

/// Done releases a reference via the callback.
func (blk *Bdev_block_t) Done(s string) {
	if blk.Cb == nil {
		panic("wtf")
	}
	blk.Cb.Relse(blk, s)
}

/// Write synchronously writes the block to disk.
func (b *Bdev_block_t) Write() {
	if bdev_debug {
		fmt.Printf("bdev_write %v %v\n", b.Block, b.Name)
	}
	l := MkBlkList()
	l.PushBack(b)
	req := MkRequest(l, BDEV_WRITE, true)
	if b.Disk.Start(req) {
		<-req.AckCh
	}
}

/// Write_async writes the block to disk without waiting for completion.
func (b *Bdev_block_t) Write_async() {
	l := MkBlkList()
	l.PushBack(b)
	req := MkRequest(l, BDEV_WRITE, false)
	b.Disk.Start(req)
}

/// Read reads the block from disk synchronously.
func (b *Bdev_block_t) Read() {
	l := MkBlkList()
	l.PushBack(b)
	req := MkRequest(l, BDEV_READ, true)
	if b.Disk.Start(req) {
		<-req.AckCh
	}
}

/// MkBlock constructs a block, allocating its sector-sized buffer.
func MkBlock(block int, s string, d Disk_i, cb Block_cb_i) *Bdev_block_t {
	b := &Bdev_block_t{}
	b.Block = block
	b.Data = &Blockbuf_t{}
	b.Name = s
	b.Disk = d
	b.Cb = cb
	return b
}
