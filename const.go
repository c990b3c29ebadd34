package tinyfs

// Package tinyfs implements the extent-based, log-protected filesystem core
// of a small teaching operating system: a block allocator, a redo
// write-ahead log, an inode cache with extent-addressed reads and writes, a
// flat-namespace directory, and a process-local open-file / descriptor
// layer with a blocking pipe.
//
// The "disk" is anything satisfying blockdev.Device. Build a fresh one with
// Mkfs, or open an existing one with Open.

// BSIZE is the fixed block size in bytes.
const BSIZE = 512

// NINODE is the number of in-memory inode cache slots.
const NINODE = 64

// NFILE is the number of process-shared open-file table entries.
const NFILE = 128

// NOFILE is the number of descriptor slots per process.
const NOFILE = 32

// MaxPipeSize is the capacity, in bytes, of a pipe's circular buffer.
const MaxPipeSize = 4000

// MaxLogBlocks is the maximum number of blocks one log transaction may
// stage.
const MaxLogBlocks = 29

// MaxExtents is the maximum number of extents a single inode may hold.
const MaxExtents = 30

// DirNameSize is the maximum length, in bytes, of a directory entry name.
const DirNameSize = 14

// RootInum is the inode number of the root directory. Inum 0 is reserved
// for the inodefile itself.
const RootInum = 1

// InodefileInum is the inode number of the inodefile, the file whose
// contents are the packed array of all on-disk inodes.
const InodefileInum = 0

// InodeType identifies what an inode represents.
type InodeType int16

const (
	// TFree marks an inode slot as available (used == AVAIL in spec terms).
	TFree InodeType = 0
	// TDir is a directory inode.
	TDir InodeType = 1
	// TFile is a regular file inode.
	TFile InodeType = 2
	// TDev is a device special inode. Its reads and writes bypass the
	// extents; tinyfs has no device driver registry, so they return
	// ErrNoDevice.
	TDev InodeType = 3
)

// used flag values for dinode.Used, kept distinct from InodeType so the
// on-disk encoding matches spec.md's {type, ..., used} layout exactly.
const (
	inodeAvail int16 = 0
	inodeUsed  int16 = 1
)

// OMode is a file access mode, as passed to Open.
type OMode int

const (
	ORDONLY OMode = iota
	OWRONLY
	ORDWR
)
