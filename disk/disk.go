// Package disk implements fs.Disk_i, the raw block device spec §1
// names as an out-of-scope collaborator ("the raw block device
// driver"). FileDevice_t is grounded on the teacher's
// ufs/driver.go:ahci_disk_t (seek-then-read/write against an *os.File,
// serialized by a mutex since seek and the following I/O must be
// atomic); MemDevice_t is a fresh in-memory equivalent for tests,
// grounded on the intent of ufs.go's unfinished BootMemFS.
package disk

import (
	"os"
	"sync"

	"github.com/laonahongchen/PintOS-SJTU/fs"
)

/// FileDevice_t backs a block device with an ordinary file on the host
/// filesystem.
type FileDevice_t struct {
	sync.Mutex
	f *os.File
}

/// OpenFile opens (or creates) path as a file-backed block device.
func OpenFile(path string) (*FileDevice_t, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDevice_t{f: f}, nil
}

/// Start services a block device request synchronously.
func (d *FileDevice_t) Start(req *fs.Bdev_req_t) bool {
	d.Lock()
	defer d.Unlock()

	switch req.Cmd {
	case fs.BDEV_READ:
		if req.Blks.Len() != 1 {
			panic("read: too many blocks")
		}
		blk := req.Blks.FrontBlock()
		if _, err := d.f.Seek(int64(blk.Block*fs.BSIZE), 0); err != nil {
			panic(err)
		}
		if _, err := d.f.Read(blk.Data[:]); err != nil {
			panic(err)
		}
	case fs.BDEV_WRITE:
		for b := req.Blks.FrontBlock(); b != nil; b = req.Blks.NextBlock() {
			if _, err := d.f.Seek(int64(b.Block*fs.BSIZE), 0); err != nil {
				panic(err)
			}
			if _, err := d.f.Write(b.Data[:]); err != nil {
				panic(err)
			}
			if b.Cb != nil {
				b.Done("Start")
			}
		}
	case fs.BDEV_FLUSH:
		d.f.Sync()
	}
	return false
}

/// Stats returns statistics for the disk.
func (d *FileDevice_t) Stats() string {
	return ""
}

/// Close flushes and closes the backing file.
func (d *FileDevice_t) Close() error {
	d.f.Sync()
	return d.f.Close()
}

/// Grow extends the backing file to hold nsectors sectors, zero-filling
/// any newly added space. Used by mkfs to size a fresh image.
func (d *FileDevice_t) Grow(nsectors int) error {
	return d.f.Truncate(int64(nsectors) * int64(fs.BSIZE))
}

/// MemDevice_t is an in-memory block device, for tests.
type MemDevice_t struct {
	sync.Mutex
	sectors [][fs.BSIZE]byte
}

/// MkMemDevice allocates an in-memory device with nsectors sectors.
func MkMemDevice(nsectors int) *MemDevice_t {
	return &MemDevice_t{sectors: make([][fs.BSIZE]byte, nsectors)}
}

/// Start services a block device request synchronously.
func (d *MemDevice_t) Start(req *fs.Bdev_req_t) bool {
	d.Lock()
	defer d.Unlock()

	switch req.Cmd {
	case fs.BDEV_READ:
		blk := req.Blks.FrontBlock()
		copy(blk.Data[:], d.sectors[blk.Block][:])
	case fs.BDEV_WRITE:
		for b := req.Blks.FrontBlock(); b != nil; b = req.Blks.NextBlock() {
			copy(d.sectors[b.Block][:], b.Data[:])
			if b.Cb != nil {
				b.Done("Start")
			}
		}
	case fs.BDEV_FLUSH:
	}
	return false
}

/// Stats returns statistics for the disk.
func (d *MemDevice_t) Stats() string {
	return ""
}
