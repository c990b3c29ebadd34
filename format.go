package tinyfs

import (
	"encoding/binary"
	"log"

	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

// initialInodeBlocks is how many blocks the inodefile starts with: enough
// to hold the inodefile's own self-describing record plus the root
// directory's, leaving further growth to the normal extend-on-CreateInode
// path.
const initialInodeBlocks = 1

// Mkfs formats dev as a fresh, empty tinyfs image: boot block, superblock,
// bitmap, a one-block inodefile seeded with inum 0 (itself) and inum 1
// (an empty root directory), a blank log header, and the remaining blocks
// free for data, laid out as
// "[boot | superblock | bitmap... | inodefile | log | data]".
func Mkfs(dev blockdev.Device, opts ...Option) (*FS, error) {
	nblocks := dev.NumBlocks()
	bitsPerBlock := uint32(BSIZE * 8)
	nbmap := (nblocks + bitsPerBlock - 1) / bitsPerBlock

	bmapStart := uint32(superblockBlock + 1)
	inodeStart := bmapStart + nbmap
	logStart := inodeStart + initialInodeBlocks
	dataStart := logStart + 1 + MaxLogBlocks

	if dataStart >= nblocks {
		return nil, ErrNoSpace
	}

	sb := &Superblock{
		dev:        dev,
		order:      binary.LittleEndian,
		Magic:      superMagic,
		Size:       nblocks,
		NBlocks:    nblocks,
		BmapStart:  bmapStart,
		InodeStart: inodeStart,
		LogStart:   logStart,
	}
	if err := sb.writeSuperblock(); err != nil {
		return nil, err
	}

	if err := formatBitmap(dev, sb, dataStart); err != nil {
		return nil, err
	}

	if err := formatLogHeader(dev, logStart); err != nil {
		return nil, err
	}

	if err := formatInodefile(dev, inodeStart); err != nil {
		return nil, err
	}

	log.Printf("tinyfs: mkfs wrote %d blocks, bmap@%d inode@%d log@%d data@%d",
		nblocks, bmapStart, inodeStart, logStart, dataStart)

	return Open(dev, opts...)
}

// formatBitmap marks every block before dataStart (boot, superblock,
// bitmap, log, inodefile) used, leaving the rest free.
func formatBitmap(dev blockdev.Device, sb *Superblock, dataStart uint32) error {
	bitsPerBlock := uint32(BSIZE * 8)
	nbmap := (sb.NBlocks + bitsPerBlock - 1) / bitsPerBlock

	for bb := uint32(0); bb < nbmap; bb++ {
		buf := make([]byte, BSIZE)
		base := bb * bitsPerBlock
		for bit := uint32(0); bit < bitsPerBlock && base+bit < sb.NBlocks; bit++ {
			if base+bit < dataStart {
				buf[bit/8] |= 1 << (bit % 8)
			}
		}
		if err := dev.WriteBlock(sb.BmapStart+bb, buf); err != nil {
			return err
		}
	}
	return nil
}

func formatLogHeader(dev blockdev.Device, logStart uint32) error {
	return dev.WriteBlock(logStart, make([]byte, BSIZE))
}

// formatInodefile writes inum 0's self-describing dinode and inum 1's
// empty root directory dinode into the same first inodefile block.
func formatInodefile(dev blockdev.Device, inodeStart uint32) error {
	buf := make([]byte, BSIZE)

	inodefileRecord := dinode{
		Type:       TFile,
		Used:       inodeUsed,
		NumExtents: 1,
		Size:       uint32(2 * dinodeSize),
	}
	inodefileRecord.Extents[0] = extent{StartBlkno: inodeStart, NBlocks: initialInodeBlocks}
	copy(buf[INODEOFF(InodefileInum):], inodefileRecord.marshalBinary())

	root := dinode{Type: TDir, Used: inodeUsed}
	copy(buf[INODEOFF(RootInum):], root.marshalBinary())

	return dev.WriteBlock(inodeStart, buf)
}
