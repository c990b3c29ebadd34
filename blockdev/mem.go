package blockdev

import "fmt"

// MemDevice is an in-memory Device, used by tests and by short-lived tools
// that don't need persistence across process restarts.
type MemDevice struct {
	blocks [][]byte
}

// NewMemDevice allocates an in-memory device of nblocks zeroed blocks.
func NewMemDevice(nblocks uint32) *MemDevice {
	blocks := make([][]byte, nblocks)
	for i := range blocks {
		blocks[i] = make([]byte, BlockSize)
	}
	return &MemDevice{blocks: blocks}
}

func (d *MemDevice) ReadBlock(blkno uint32) ([]byte, error) {
	if blkno >= uint32(len(d.blocks)) {
		return nil, fmt.Errorf("blockdev: block %d out of range (have %d)", blkno, len(d.blocks))
	}
	out := make([]byte, BlockSize)
	copy(out, d.blocks[blkno])
	return out, nil
}

func (d *MemDevice) WriteBlock(blkno uint32, data []byte) error {
	if blkno >= uint32(len(d.blocks)) {
		return fmt.Errorf("blockdev: block %d out of range (have %d)", blkno, len(d.blocks))
	}
	if err := checkBlock(data); err != nil {
		return err
	}
	copy(d.blocks[blkno], data)
	return nil
}

func (d *MemDevice) NumBlocks() uint32 { return uint32(len(d.blocks)) }

func (d *MemDevice) Sync() error { return nil }

func (d *MemDevice) Close() error { return nil }
