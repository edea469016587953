// Package ufs is the thin, cwd-aware convenience layer BootFS/mkfs and
// tests drive the file system through: it resolves a cwd-relative path
// to the canonical absolute path fs.Fs_t expects and shuttles data
// through vm.Fakeubuf_t, the same Userio_i path a real process's
// syscalls would use (spec §4.4, §6).
package ufs

import (
	"github.com/laonahongchen/PintOS-SJTU/defs"
	"github.com/laonahongchen/PintOS-SJTU/disk"
	"github.com/laonahongchen/PintOS-SJTU/fd"
	"github.com/laonahongchen/PintOS-SJTU/fs"
	"github.com/laonahongchen/PintOS-SJTU/stat"
	"github.com/laonahongchen/PintOS-SJTU/ustr"
	"github.com/laonahongchen/PintOS-SJTU/vm"
)

/// Ufs_t wraps a booted file-system facade and the calling process's
/// current working directory.
type Ufs_t struct {
	dev  *disk.FileDevice_t
	fsys *fs.Fs_t
	cwd  *fd.Cwd_t
}

/// MkBuf returns a Fakeubuf_t initialized with b, letting callers feed
/// an in-memory byte slice through the same Fdops_i path a real
/// process's read/write syscalls would use.
func MkBuf(b []byte) *vm.Fakeubuf_t {
	hdata := make([]uint8, len(b))
	for i := range hdata {
		hdata[i] = uint8(b[i])
	}
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(hdata)
	return ub
}

func (ufs *Ufs_t) resolve(p ustr.Ustr) ustr.Ustr {
	return ufs.cwd.Canonicalpath(p)
}

/// MkFile creates a new file at p, writing ub into it if provided.
func (ufs *Ufs_t) MkFile(p ustr.Ustr, ub *vm.Fakeubuf_t) defs.Err_t {
	f, err := ufs.fsys.Fs_open(ufs.resolve(p), defs.O_CREAT, 0)
	if err != 0 {
		return err
	}
	if ub != nil {
		if _, werr := f.Write(ub); werr != 0 || ub.Remain() != 0 {
			f.Close()
			return werr
		}
	}
	return f.Close()
}

/// MkDir creates a directory at p.
func (ufs *Ufs_t) MkDir(p ustr.Ustr) defs.Err_t {
	return ufs.fsys.Fs_mkdir(ufs.resolve(p))
}

/// Update overwrites file p with ub starting at offset zero.
func (ufs *Ufs_t) Update(p ustr.Ustr, ub *vm.Fakeubuf_t) defs.Err_t {
	f, err := ufs.fsys.Fs_open(ufs.resolve(p), defs.O_RDWR, 0)
	if err != 0 {
		return err
	}
	if _, werr := f.Write(ub); werr != 0 || ub.Remain() != 0 {
		f.Close()
		return werr
	}
	return f.Close()
}

/// Append appends ub to the file at p.
func (ufs *Ufs_t) Append(p ustr.Ustr, ub *vm.Fakeubuf_t) defs.Err_t {
	f, err := ufs.fsys.Fs_open(ufs.resolve(p), defs.O_RDWR, 0)
	if err != 0 {
		return err
	}
	if _, serr := f.Lseek(0, defs.SEEK_END); serr != 0 {
		f.Close()
		return serr
	}
	if _, werr := f.Write(ub); werr != 0 || ub.Remain() != 0 {
		f.Close()
		return werr
	}
	return f.Close()
}

/// Unlink removes the file at p.
func (ufs *Ufs_t) Unlink(p ustr.Ustr) defs.Err_t {
	return ufs.fsys.Fs_unlink(ufs.resolve(p))
}

/// UnlinkDir removes the (empty) directory at p.
func (ufs *Ufs_t) UnlinkDir(p ustr.Ustr) defs.Err_t {
	return ufs.fsys.Fs_unlink(ufs.resolve(p))
}

/// Stat retrieves the stat information for p.
func (ufs *Ufs_t) Stat(p ustr.Ustr) (*stat.Stat_t, defs.Err_t) {
	s := &stat.Stat_t{}
	if err := ufs.fsys.Fs_stat(ufs.resolve(p), s); err != 0 {
		return nil, err
	}
	return s, 0
}

/// Read reads the entire file at p into memory.
func (ufs *Ufs_t) Read(p ustr.Ustr) ([]byte, defs.Err_t) {
	st, err := ufs.Stat(p)
	if err != 0 {
		return nil, err
	}
	f, err := ufs.fsys.Fs_open(ufs.resolve(p), defs.O_RDONLY, 0)
	if err != 0 {
		return nil, err
	}
	defer f.Close()

	hdata := make([]uint8, st.Size())
	ub := &vm.Fakeubuf_t{}
	ub.Fake_init(hdata)
	n, rerr := f.Read(ub)
	if rerr != 0 || n != len(hdata) {
		return nil, rerr
	}
	v := make([]byte, st.Size())
	for i := range hdata {
		v[i] = byte(hdata[i])
	}
	return v, 0
}

/// Ls lists directory p's entries with their stat information.
func (ufs *Ufs_t) Ls(p ustr.Ustr) (map[string]*stat.Stat_t, defs.Err_t) {
	dirp := ufs.resolve(p)
	f, err := ufs.fsys.Fs_open(dirp, defs.O_RDONLY, 0)
	if err != 0 {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]*stat.Stat_t)
	for {
		namebuf := make([]uint8, 64)
		ub := &vm.Fakeubuf_t{}
		ub.Fake_init(namebuf)
		more, derr := f.Readdir(ub)
		if derr != 0 {
			return nil, derr
		}
		if !more {
			break
		}
		name := string(namebuf[:len(namebuf)-ub.Remain()])
		st, serr := ufs.Stat(dirp.Extend(ustr.MkUstrSlice([]uint8(name))))
		if serr != 0 {
			return nil, serr
		}
		out[name] = st
	}
	return out, 0
}

/// BootFS formats a fresh volume of nsectors sectors on the file at
/// dst and boots the facade over it.
func BootFS(dst string, nsectors int) (*Ufs_t, error) {
	d, err := disk.OpenFile(dst)
	if err != nil {
		return nil, err
	}
	if gerr := d.Grow(nsectors); gerr != nil {
		return nil, gerr
	}

	fsys := fs.MkFS(d, nsectors)
	root, ferr := fsys.Fs_open(ustr.MkUstrRoot(), defs.O_RDONLY, 0)
	if ferr != 0 {
		panic("cannot open root after format")
	}
	rootfd := &fd.Fd_t{Fops: root, Perms: fd.FD_READ}
	return &Ufs_t{dev: d, fsys: fsys, cwd: fd.MkRootCwd(rootfd)}, nil
}

/// ReopenFS boots the facade from an already-formatted volume on disk
/// at dst.
func ReopenFS(dst string) (*Ufs_t, error) {
	d, err := disk.OpenFile(dst)
	if err != nil {
		return nil, err
	}

	fsys := fs.StartFS(d)
	root, ferr := fsys.Fs_open(ustr.MkUstrRoot(), defs.O_RDONLY, 0)
	if ferr != 0 {
		panic("cannot open root on reboot")
	}
	rootfd := &fd.Fd_t{Fops: root, Perms: fd.FD_READ}
	return &Ufs_t{dev: d, fsys: fsys, cwd: fd.MkRootCwd(rootfd)}, nil
}

/// BootMemFS formats a fresh in-memory volume of nsectors sectors, for
/// tests that want no on-disk image.
func BootMemFS(nsectors int) *Ufs_t {
	d := disk.MkMemDevice(nsectors)
	fsys := fs.MkFS(d, nsectors)
	root, ferr := fsys.Fs_open(ustr.MkUstrRoot(), defs.O_RDONLY, 0)
	if ferr != 0 {
		panic("cannot open root after format")
	}
	rootfd := &fd.Fd_t{Fops: root, Perms: fd.FD_READ}
	return &Ufs_t{fsys: fsys, cwd: fd.MkRootCwd(rootfd)}
}

/// CacheStats exposes the booted facade's block-cache counters, for
/// cmd/kernelctl's serve subcommand to register as Prometheus gauges.
func (ufs *Ufs_t) CacheStats() *fs.CacheStats_t {
	return &ufs.fsys.Bc.Stats
}

/// ShutdownFS flushes and closes the file system, then the backing
/// file if one was used.
func ShutdownFS(ufs *Ufs_t) {
	ufs.fsys.StopFS()
	if ufs.dev != nil {
		ufs.dev.Close()
	}
}
