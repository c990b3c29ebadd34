package tinyfs

import (
	"bytes"
	"encoding/binary"
	"log"
	"reflect"

	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

// superMagic identifies a tinyfs image. Stored little-endian, spells "TYFS"
// in the low bytes the way squashfs's superblock sniffs "hsqs"/"sqsh".
const superMagic = 0x53465954

// superblockBlock is the block number holding the Superblock; block 0 is
// reserved as the boot block, in the layout Mkfs writes:
// "[boot | superblock | bitmap... | inodefile | log | data]".
const superblockBlock = 1

// Superblock is the fixed-layout block describing the geometry of a tinyfs
// image: {size, nblocks, bmapstart, inodestart, logstart}, plus the magic
// and order needed to recognize and decode it.
type Superblock struct {
	dev   blockdev.Device
	order binary.ByteOrder

	Magic      uint32
	Size       uint32 // total blocks in the image
	NBlocks    uint32 // blocks tracked by the bitmap (the whole image)
	BmapStart  uint32 // first bitmap block
	InodeStart uint32 // first inodefile block
	LogStart   uint32 // log header block
}

// ReadSuperblock loads and validates the superblock of an existing image.
func ReadSuperblock(dev blockdev.Device) (*Superblock, error) {
	sb := &Superblock{dev: dev, order: binary.LittleEndian}

	buf, err := dev.ReadBlock(superblockBlock)
	if err != nil {
		return nil, err
	}

	if err := sb.UnmarshalBinary(buf[:sb.binarySize()]); err != nil {
		return nil, err
	}
	return sb, nil
}

// writeSuperblock persists sb to its fixed block.
func (sb *Superblock) writeSuperblock() error {
	data, err := sb.MarshalBinary()
	if err != nil {
		return err
	}
	buf := make([]byte, BSIZE)
	copy(buf, data)
	return sb.dev.WriteBlock(superblockBlock, buf)
}

// UnmarshalBinary decodes a superblock from its on-disk byte layout, using
// the same reflect-over-exported-fields walk as the teacher's
// Superblock.UnmarshalBinary.
func (sb *Superblock) UnmarshalBinary(data []byte) error {
	v := reflect.ValueOf(sb).Elem()
	n := v.NumField()
	r := bytes.NewReader(data)

	var magic uint32
	if err := binary.Read(bytes.NewReader(data[:4]), binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != superMagic {
		return ErrInvalidSuper
	}
	sb.order = binary.LittleEndian

	for i := 0; i < n; i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		log.Printf("tinyfs: read superblock field %s", name)
		if err := binary.Read(r, sb.order, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}

// MarshalBinary encodes sb to its on-disk byte layout.
func (sb *Superblock) MarshalBinary() ([]byte, error) {
	v := reflect.ValueOf(sb).Elem()
	n := v.NumField()
	buf := &bytes.Buffer{}

	for i := 0; i < n; i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		if err := binary.Write(buf, sb.order, v.Field(i).Interface()); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// binarySize returns the on-disk size of the exported field set, mirroring
// the teacher's Superblock.binarySize.
func (sb *Superblock) binarySize() int {
	v := reflect.ValueOf(sb).Elem()
	n := v.NumField()
	sz := uintptr(0)
	for i := 0; i < n; i++ {
		name := v.Type().Field(i).Name
		if name[0] < 'A' || name[0] > 'Z' {
			continue
		}
		sz += v.Field(i).Type().Size()
	}
	return int(sz)
}

// INODEOFF returns the byte offset of inode inum inside the inodefile's
// logical contents, exact by construction since dinode has a fixed size.
func INODEOFF(inum uint32) uint64 {
	return uint64(inum) * uint64(dinodeSize)
}
