// Package blockdev is the backing-store contract tinyfs's core consumes in
// place of the out-of-scope block buffer cache (bread/bwrite/brelse) named
// in spec.md §1/§6. It deliberately has no caching and no dirty-flag
// deferral: every WriteBlock is a synchronous write, which is stricter than
// the buffer cache it stands in for and therefore never undermines the redo
// log's crash properties -- it just forgoes the write-back performance
// optimization spec.md explicitly scopes out as a collaborator concern.
package blockdev

import "fmt"

// BlockSize is the fixed block size every Device speaks in. Kept here
// rather than importing the tinyfs package (which imports blockdev) to
// avoid an import cycle; tinyfs.BSIZE must equal this value.
const BlockSize = 512

// Device is the minimal block-addressed storage contract: read a whole
// block, write a whole block, flush to stable storage. Named directly from
// spec.md §6's collaborator table.
type Device interface {
	// ReadBlock returns a copy of block blkno. Implementations must
	// zero-pad short reads up to BlockSize rather than returning a short
	// slice, so callers never have to special-case partial blocks.
	ReadBlock(blkno uint32) ([]byte, error)

	// WriteBlock writes data (which must be exactly BlockSize bytes) to
	// block blkno. The write is synchronous: it is visible to a subsequent
	// ReadBlock before WriteBlock returns.
	WriteBlock(blkno uint32, data []byte) error

	// NumBlocks returns the device's total block count.
	NumBlocks() uint32

	// Sync flushes any OS-level buffering to stable storage. For in-memory
	// devices this is a no-op.
	Sync() error

	// Close releases any OS resources (file handles, advisory locks) held
	// by the device.
	Close() error
}

// checkBlock validates a block write's length, the one invariant every
// Device implementation must enforce identically.
func checkBlock(data []byte) error {
	if len(data) != BlockSize {
		return fmt.Errorf("blockdev: write must be exactly %d bytes, got %d", BlockSize, len(data))
	}
	return nil
}
