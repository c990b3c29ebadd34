package tinyfs

import "log"

// balloc scans the bitmap region one bitmap block at a time, left to
// right, tracking the start and length of the current run of free bits
// within that block. It returns the first block number of the first
// contiguous run of n free blocks and marks those bits used. The run must
// lie entirely within one bitmap block -- spec.md §4.1 -- so a run is never
// considered across a block boundary even if the bits on either side are
// both free.
//
// balloc must be called with the log transaction already begun; the bitmap
// block is written through l.Write.
func (fs *FS) balloc(n uint32) (uint32, error) {
	if n == 0 {
		return 0, nil
	}

	bitsPerBlock := uint32(BSIZE * 8)
	nbmapBlocks := (fs.sb.NBlocks + bitsPerBlock - 1) / bitsPerBlock

	for bb := uint32(0); bb < nbmapBlocks; bb++ {
		buf, err := fs.dev.ReadBlock(fs.sb.BmapStart + bb)
		if err != nil {
			return 0, err
		}

		runStart := -1
		runLen := uint32(0)
		blockBase := bb * bitsPerBlock

		for bit := uint32(0); bit < bitsPerBlock && blockBase+bit < fs.sb.NBlocks; bit++ {
			free := buf[bit/8]&(1<<(bit%8)) == 0
			if free {
				if runStart < 0 {
					runStart = int(bit)
				}
				runLen++
				if runLen == n {
					start := blockBase + uint32(runStart)
					fs.markRun(buf, uint32(runStart), n, true)
					if err := fs.log.Write(fs.sb.BmapStart+bb, buf); err != nil {
						return 0, err
					}
					log.Printf("tinyfs: balloc allocated %d blocks starting at %d", n, start)
					return start, nil
				}
			} else {
				runStart = -1
				runLen = 0
			}
		}
	}

	return 0, ErrNoSpace
}

// bfree clears bits [b, b+n-1]. The freed range must lie in a single bitmap
// block; freeing an already-free bit is a fatal design-invariant violation
// per spec.md §7 class 3.
func (fs *FS) bfree(b, n uint32) error {
	if n == 0 {
		return nil
	}
	bitsPerBlock := uint32(BSIZE * 8)

	bb := b / bitsPerBlock
	startBit := b % bitsPerBlock
	if startBit+n > bitsPerBlock {
		panic("tinyfs: bfree range spans two bitmap blocks")
	}

	buf, err := fs.dev.ReadBlock(fs.sb.BmapStart + bb)
	if err != nil {
		return err
	}

	for i := uint32(0); i < n; i++ {
		bit := startBit + i
		if buf[bit/8]&(1<<(bit%8)) == 0 {
			panic("tinyfs: bfree of an already-free block")
		}
	}

	fs.markRun(buf, startBit, n, false)
	return fs.log.Write(fs.sb.BmapStart+bb, buf)
}

// markRun sets (used=true) or clears (used=false) n consecutive bits
// starting at bit within a single bitmap block buffer.
func (fs *FS) markRun(buf []byte, bit, n uint32, used bool) {
	for i := uint32(0); i < n; i++ {
		b := bit + i
		if used {
			buf[b/8] |= 1 << (b % 8)
		} else {
			buf[b/8] &^= 1 << (b % 8)
		}
	}
}
