package tinyfs

import (
	"bytes"
	"encoding/binary"
)

// extent is a single on-disk run: nblocks consecutive blocks starting at
// startblkno. Extents never record zero length; an unused extent slot has
// startblkno == 0 and nblocks == 0.
type extent struct {
	StartBlkno uint32
	NBlocks    uint32
}

// dinode is the on-disk inode record, exactly the shape spec.md §3
// describes: {type, devid, size, used, num_extents, extents[MaxExtents]}.
// Every dinode lives at a fixed INODEOFF within the inodefile (inum 0),
// which is itself addressed the same way -- see superblock.go.
type dinode struct {
	Type       InodeType
	Devid      int16
	Size       uint32
	Used       int16
	NumExtents int16
	Extents    [MaxExtents]extent
}

// dinodeSize is the fixed encoded length of a dinode record: two bytes
// each for type/devid/used/num_extents, four for size, and eight bytes
// (two uint32) per extent slot.
const dinodeSize = 2 + 2 + 4 + 2 + 2 + MaxExtents*8

func (d *dinode) marshalBinary() []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, int16(d.Type))
	binary.Write(buf, binary.LittleEndian, d.Devid)
	binary.Write(buf, binary.LittleEndian, d.Size)
	binary.Write(buf, binary.LittleEndian, d.Used)
	binary.Write(buf, binary.LittleEndian, d.NumExtents)
	for i := range d.Extents {
		binary.Write(buf, binary.LittleEndian, d.Extents[i].StartBlkno)
		binary.Write(buf, binary.LittleEndian, d.Extents[i].NBlocks)
	}
	out := buf.Bytes()
	if len(out) < dinodeSize {
		padded := make([]byte, dinodeSize)
		copy(padded, out)
		return padded
	}
	return out
}

func (d *dinode) unmarshalBinary(data []byte) error {
	if len(data) < dinodeSize {
		return ErrOverflow
	}
	r := bytes.NewReader(data)
	var typ int16
	if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
		return err
	}
	d.Type = InodeType(typ)
	if err := binary.Read(r, binary.LittleEndian, &d.Devid); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Size); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.Used); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &d.NumExtents); err != nil {
		return err
	}
	for i := range d.Extents {
		if err := binary.Read(r, binary.LittleEndian, &d.Extents[i].StartBlkno); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &d.Extents[i].NBlocks); err != nil {
			return err
		}
	}
	return nil
}
