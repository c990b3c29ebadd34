package tinyfs

// extentCapacity returns the total block-rounded byte capacity currently
// allocated to d, which can exceed d.Size when the last block holds
// trailing padding (spec.md §4.4's "padding extent" case).
func extentCapacity(d *dinode) uint64 {
	var total uint64
	for i := 0; i < int(d.NumExtents); i++ {
		total += uint64(d.Extents[i].NBlocks) * BSIZE
	}
	return total
}

// readi reads len(p) bytes (or fewer, at EOF) from ip starting at off.
func (ip *Inode) readi(p []byte, off uint64) (int, error) {
	return ip.fs.readExtentBytes(ip, off, p)
}

// writei writes p to ip starting at off, wrapping the whole extent
// allocation plus dinode persist in a single log transaction -- the unit
// spec.md §4.2 treats as atomic.
func (ip *Inode) writei(p []byte, off uint64) (int, error) {
	fs := ip.fs
	if err := fs.log.Begin(); err != nil {
		return 0, err
	}
	n, err := fs.writeExtentBytesLocked(ip, off, p, 0)
	if cerr := fs.log.Commit(); err == nil {
		err = cerr
	}
	if err == nil && n < len(p) {
		err = ErrShortWrite
	}
	return n, err
}

func (fs *FS) readExtentBytes(ip *Inode, off uint64, p []byte) (int, error) {
	ip.lock()
	defer ip.unlock()
	return readExtentBytesLocked(fs, &ip.dinode, off, p)
}

// readExtentBytesLocked is the extent-walk read path. A TDev inode has no
// extents to walk at all; dispatch to the registered device driver belongs
// here, ahead of any extent logic, per spec.md §4.4 point 1 -- tinyfs has
// no driver registry yet, so this simply reports ErrNoDevice.
func readExtentBytesLocked(fs *FS, d *dinode, off uint64, p []byte) (int, error) {
	if d.Type == TDev {
		return 0, ErrNoDevice
	}
	if off+uint64(len(p)) < off {
		return 0, ErrOverflow
	}
	if off >= uint64(d.Size) {
		return 0, nil
	}
	n := len(p)
	if off+uint64(n) > uint64(d.Size) {
		n = int(uint64(d.Size) - off)
	}

	got := 0
	var base uint64
	for ei := 0; ei < int(d.NumExtents) && got < n; ei++ {
		ext := d.Extents[ei]
		extBytes := uint64(ext.NBlocks) * BSIZE
		if off >= base+extBytes {
			base += extBytes
			continue
		}
		offInExt := off - base
		for offInExt < extBytes && got < n {
			blkIdx := uint32(offInExt / BSIZE)
			blkOff := offInExt % BSIZE
			blkno := ext.StartBlkno + blkIdx
			buf, err := fs.dev.ReadBlock(blkno)
			if err != nil {
				return got, err
			}
			c := copy(p[got:n], buf[blkOff:])
			got += c
			off += uint64(c)
			offInExt += uint64(c)
		}
		base += extBytes
	}
	return got, nil
}

// writeExtentBytesLocked is the core extent-allocation algorithm
// (spec.md §4.4): Phase A overwrites whatever part of p lands within
// already-allocated capacity in place; Phase B appends one new extent to
// hold whatever remains past the current capacity. It finishes by
// persisting ip's updated dinode record, which for any inode other than
// the inodefile itself recurses once into the inodefile's own extent
// writer -- bounded, since persisting the inodefile's own header never
// recurses again (see persistDinode).
func (fs *FS) writeExtentBytesLocked(ip *Inode, off uint64, p []byte, depth int) (int, error) {
	if depth > 2 {
		panic("tinyfs: inodefile self-persist recursion too deep")
	}

	ip.lock()
	defer ip.unlock()

	// raw_writei's device dispatch (spec.md §4.4 point 1), ahead of Phase
	// A/B -- no driver registry exists, so a TDev write just reports
	// ErrNoDevice.
	if ip.Type == TDev {
		return 0, ErrNoDevice
	}

	total := 0
	capacity := extentCapacity(&ip.dinode)

	if off < capacity {
		n := len(p)
		if off+uint64(n) > capacity {
			n = int(capacity - off)
		}
		if err := overwriteWithinExtents(fs, &ip.dinode, off, p[:n]); err != nil {
			return total, err
		}
		total += n
		off += uint64(n)
		p = p[n:]
	}

	if len(p) > 0 {
		n, err := appendExtent(fs, &ip.dinode, off, p)
		total += n
		if err != nil {
			return total, err
		}
	}

	if err := fs.persistDinode(ip, depth+1); err != nil {
		return total, err
	}
	return total, nil
}

func overwriteWithinExtents(fs *FS, d *dinode, off uint64, p []byte) error {
	remaining := p
	var base uint64
	for ei := 0; ei < int(d.NumExtents) && len(remaining) > 0; ei++ {
		ext := d.Extents[ei]
		extBytes := uint64(ext.NBlocks) * BSIZE
		if off >= base+extBytes {
			base += extBytes
			continue
		}
		offInExt := off - base
		for offInExt < extBytes && len(remaining) > 0 {
			blkIdx := uint32(offInExt / BSIZE)
			blkOff := offInExt % BSIZE
			blkno := ext.StartBlkno + blkIdx
			buf, err := fs.dev.ReadBlock(blkno)
			if err != nil {
				return err
			}
			n := copy(buf[blkOff:], remaining)
			if err := fs.log.Write(blkno, buf); err != nil {
				return err
			}
			remaining = remaining[n:]
			off += uint64(n)
			offInExt += uint64(n)
		}
		base += extBytes
	}
	return nil
}

// appendExtent allocates enough whole blocks to cover both the gap between
// the current extent capacity and off (blk_padd, spec.md §4.4 point 3) and
// the data itself (blk_data), and records the pair as one new extent. off
// is always >= extentCapacity(d) here: writeExtentBytesLocked's Phase A
// already consumed whatever part of the write landed inside existing
// capacity, so any remainder starts at or past the current end of the
// extent table. The padding bytes are zero-filled rather than left as the
// historical contents of the freshly-allocated blocks. A 31st extent is the
// fatal design-invariant violation spec.md §7 class 3 names explicitly.
func appendExtent(fs *FS, d *dinode, off uint64, p []byte) (int, error) {
	padBytes := off - extentCapacity(d)
	nblocks := uint32((padBytes + uint64(len(p)) + BSIZE - 1) / BSIZE)
	if nblocks == 0 {
		return 0, nil
	}
	if d.NumExtents >= MaxExtents {
		panic("tinyfs: inode extent table full")
	}

	start, err := fs.balloc(nblocks)
	if err != nil {
		return 0, err
	}

	region := make([]byte, uint64(nblocks)*BSIZE)
	copy(region[padBytes:], p)
	for i := uint32(0); i < nblocks; i++ {
		blk := region[uint64(i)*BSIZE : uint64(i+1)*BSIZE]
		if err := fs.log.Write(start+i, blk); err != nil {
			return 0, err
		}
	}

	d.Extents[d.NumExtents] = extent{StartBlkno: start, NBlocks: nblocks}
	d.NumExtents++

	newEnd := off + uint64(len(p))
	if newEnd > uint64(d.Size) {
		d.Size = uint32(newEnd)
	}
	return len(p), nil
}

// rawReadInode loads inum's dinode record straight out of the inodefile,
// with no locking beyond what readExtentBytes already does on fs.inodefile.
func (fs *FS) rawReadInode(inum uint32) (*dinode, error) {
	buf := make([]byte, dinodeSize)
	if _, err := fs.readExtentBytes(fs.inodefile, INODEOFF(inum), buf); err != nil {
		return nil, err
	}
	d := &dinode{}
	if err := d.unmarshalBinary(buf); err != nil {
		return nil, err
	}
	return d, nil
}

// rawWriteInode persists inum's dinode record into the inodefile. Called
// from within an already-open log transaction; never calls log.Begin
// itself.
func (fs *FS) rawWriteInode(inum uint32, d *dinode, depth int) error {
	buf := d.marshalBinary()
	_, err := fs.writeExtentBytesLocked(fs.inodefile, INODEOFF(inum), buf, depth)
	return err
}

// persistDinode writes ip's current in-memory dinode back to disk. For
// every inode except the inodefile itself this recurses once into
// rawWriteInode; for the inodefile it writes directly to the
// self-describing first block of its first extent, terminating the
// recursion.
func (fs *FS) persistDinode(ip *Inode, depth int) error {
	if ip.inum == InodefileInum {
		return fs.writeInodefileHeader(&ip.dinode)
	}
	return fs.rawWriteInode(ip.inum, &ip.dinode, depth)
}

func (fs *FS) writeInodefileHeader(d *dinode) error {
	if d.NumExtents == 0 {
		panic("tinyfs: inodefile has no self-describing extent")
	}
	// The header block also holds other dinode records, so start from its
	// latest contents: the copy already staged in this transaction, if
	// any, else the home block.
	blkno := d.Extents[0].StartBlkno
	src := blkno
	for i := int(fs.log.hdr.Size) - 1; i >= 0; i-- {
		if fs.log.hdr.DiskLoc[i] == blkno {
			src = fs.log.logStart + 1 + uint32(i)
			break
		}
	}
	buf, err := fs.dev.ReadBlock(src)
	if err != nil {
		return err
	}
	copy(buf, d.marshalBinary())
	return fs.log.Write(blkno, buf)
}
