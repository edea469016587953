// Package defs holds the small cross-cutting types and constants shared by
// every kernel subsystem: the wire-level error code, thread/process ids,
// and the open/seek flag bits the syscall layer understands.
package defs

/// Err_t is the kernel's internal error representation. A zero value means
/// success; negative values are errno-style codes mirrored out to user
/// space by the syscall dispatcher as -1, 0 or false (spec §7).
type Err_t int

// Error codes. Values are arbitrary but stable for the life of a build;
// only their sign and zero-ness are meaningful to callers.
const (
	EPERM        Err_t = -1
	ENOENT       Err_t = -2
	ENOMEM       Err_t = -12
	EFAULT       Err_t = -14
	EEXIST       Err_t = -17
	ENOTDIR      Err_t = -20
	EISDIR       Err_t = -21
	EINVAL       Err_t = -22
	ENOSPC       Err_t = -28
	ENAMETOOLONG Err_t = -36
	ENOTEMPTY    Err_t = -39
	EBUSY        Err_t = -16
	ECHILD       Err_t = -10
	EAGAIN       Err_t = -11
	ENOHEAP      Err_t = -100
)

/// Tid_t identifies a thread/process in the simulated kernel.
type Tid_t int

// File open flags, modeled on the subset the syscall dispatcher exposes.
const (
	O_RDONLY int = 0
	O_WRONLY int = 1
	O_RDWR   int = 2
	O_CREAT  int = 0x200
)

// Seek whence values for Lseek.
const (
	SEEK_SET int = 0
	SEEK_CUR int = 1
	SEEK_END int = 2
)
