package tinyfs

import "errors"

// Package-specific error variables, checked with errors.Is at call
// boundaries. Fatal design-invariant violations (spec.md §7 class 3) panic
// instead of returning an error -- see the panic sites in bitmap.go, log.go,
// inode.go and extent.go.
var (
	// ErrInvalidSuper is returned when the superblock magic or geometry is
	// corrupt.
	ErrInvalidSuper = errors.New("tinyfs: invalid superblock")

	// ErrNotFound is returned when a path component, directory entry, or
	// device is not found.
	ErrNotFound = errors.New("tinyfs: not found")

	// ErrNotDir is returned when a non-directory inode is used where a
	// directory was expected.
	ErrNotDir = errors.New("tinyfs: not a directory")

	// ErrIsDir is returned when a directory inode is used where a regular
	// file or device was expected.
	ErrIsDir = errors.New("tinyfs: is a directory")

	// ErrNoSpace is returned when balloc cannot find a big-enough run of
	// free blocks.
	ErrNoSpace = errors.New("tinyfs: no space on device")

	// ErrBadFD is returned for an out-of-range or unopened descriptor.
	ErrBadFD = errors.New("tinyfs: bad file descriptor")

	// ErrBadMode is returned when an operation doesn't match an open
	// file's access mode (e.g. Write on an ORDONLY descriptor).
	ErrBadMode = errors.New("tinyfs: bad access mode")

	// ErrNoFreeFD is returned when a process' descriptor table is full.
	ErrNoFreeFD = errors.New("tinyfs: no free file descriptor")

	// ErrNoFreeFile is returned when the shared open-file table is full.
	ErrNoFreeFile = errors.New("tinyfs: no free open-file entry")

	// ErrBrokenPipe is returned by a pipe Write with no remaining readers.
	ErrBrokenPipe = errors.New("tinyfs: broken pipe")

	// ErrOverflow is returned when a read's offset+length computation
	// wraps, when a name is longer than DirNameSize, or when a buffer is
	// too short to hold a dinode record.
	ErrOverflow = errors.New("tinyfs: offset overflow")

	// ErrShortWrite is returned alongside a partial byte count when
	// writei could not place every requested byte (spec.md §9 open
	// question, resolved as failure -- see SPEC_FULL.md §9).
	ErrShortWrite = errors.New("tinyfs: short write")

	// ErrNegativeCount is returned when a read/write length is negative.
	ErrNegativeCount = errors.New("tinyfs: negative count")

	// ErrNoDevice is returned when a TDev inode references an unregistered
	// device id.
	ErrNoDevice = errors.New("tinyfs: no such device")

	// ErrExists is returned when dirlink is asked to create a name that
	// already exists in the parent directory.
	ErrExists = errors.New("tinyfs: file exists")
)
