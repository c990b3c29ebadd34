package tinyfs

import (
	"log"
	"sync"

	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

// FS is a mounted tinyfs filesystem: a block device, its superblock, the
// redo log guarding every metadata mutation, the shared inode cache, and
// the always-resident inodefile (inum 0) that every other inode's dinode
// record lives inside.
type FS struct {
	dev   blockdev.Device
	sb    *Superblock
	log   *Log
	cache *Cache

	inodefile *Inode
	files     *OpenFileTable

	// syscallMu is the single coarse lock every Proc syscall against this
	// FS takes. Open, Create, Pipe, Close, Dup and Unlink hold it for their
	// whole body; Read, Write and Fstat hold it only for the descriptor
	// lookup, so data transfer through an already-open file is not
	// serialized by it.
	syscallMu sync.Mutex
}

// Open mounts an already-formatted device: reads the superblock, replays
// any crashed transaction left in the log, and bootstraps the inodefile.
func Open(dev blockdev.Device, opts ...Option) (*FS, error) {
	sb, err := ReadSuperblock(dev)
	if err != nil {
		return nil, err
	}

	l, err := openLog(dev, sb.LogStart)
	if err != nil {
		return nil, err
	}

	fs := &FS{dev: dev, sb: sb, log: l, cache: newCache(), files: NewOpenFileTable()}
	for _, opt := range opts {
		if err := opt(fs); err != nil {
			return nil, err
		}
	}

	if err := fs.bootstrapInodefile(); err != nil {
		return nil, err
	}

	log.Printf("tinyfs: mounted, %d blocks, bmap@%d inode@%d log@%d",
		sb.NBlocks, sb.BmapStart, sb.InodeStart, sb.LogStart)
	return fs, nil
}

// bootstrapInodefile reads inum 0's dinode directly off the block it
// self-describes, before any extent-translation machinery exists to read
// it any other way.
func (fs *FS) bootstrapInodefile() error {
	buf, err := fs.dev.ReadBlock(fs.sb.InodeStart)
	if err != nil {
		return err
	}
	d := &dinode{}
	if err := d.unmarshalBinary(buf[:dinodeSize]); err != nil {
		return err
	}
	if d.Type != TFile && d.Type != TDir {
		panic("tinyfs: inodefile bootstrap read a TFree dinode")
	}
	if d.NumExtents == 0 || d.Extents[0].StartBlkno != fs.sb.InodeStart {
		panic("tinyfs: inodefile is not self-describing")
	}

	fs.inodefile = &Inode{fs: fs, inum: InodefileInum, ref: 1, valid: true, dinode: *d}
	return nil
}

// Root opens the root directory inode, ref-counted like any other lookup.
func (fs *FS) Root() (*Inode, error) {
	return fs.GetInode(RootInum)
}

// GetInode returns a ref-counted, locked-and-loaded handle on inum.
func (fs *FS) GetInode(inum uint32) (*Inode, error) {
	ip := fs.cache.iget(fs, inum)
	if err := ip.locki(); err != nil {
		fs.cache.irelease(ip)
		return nil, err
	}
	ip.unlocki()
	return ip, nil
}

// Release drops a reference taken by GetInode, CreateInode, or Cache.idup.
func (fs *FS) Release(ip *Inode) {
	fs.cache.irelease(ip)
}

// createInodeLocked allocates a free dinode slot and initializes it as type
// t, returning the inum. The caller must already have an open log
// transaction -- callers that also need to link a dirent (dir.go's Create)
// begin one transaction covering both, per spec.md §4.3's "steps (a)-(d)
// run within a single log transaction."
func (fs *FS) createInodeLocked(t InodeType) (uint32, error) {
	ninodes := uint32(extentCapacity(&fs.inodefile.dinode)) / uint32(dinodeSize)
	var inum uint32 = ninodes
	for i := uint32(0); i < ninodes; i++ {
		d, err := fs.rawReadInode(i)
		if err != nil {
			return 0, err
		}
		if d.Type == TFree {
			inum = i
			break
		}
	}

	d := &dinode{Type: t, Used: inodeUsed}
	if err := fs.rawWriteInode(inum, d, 0); err != nil {
		return 0, err
	}
	return inum, nil
}

// CreateInode allocates a free dinode slot, initializes it as type t, and
// returns a locked-and-loaded, ref-counted handle, in its own transaction --
// for callers with no surrounding directory-entry mutation to combine it
// with (dir.go's Create opens its own transaction instead, spanning both
// createInodeLocked and dirlinkLocked).
func (fs *FS) CreateInode(t InodeType) (*Inode, error) {
	if err := fs.log.Begin(); err != nil {
		return nil, err
	}
	inum, err := fs.createInodeLocked(t)
	if cerr := fs.log.Commit(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	ip := fs.cache.iget(fs, inum)
	if err := ip.locki(); err != nil {
		fs.cache.irelease(ip)
		return nil, err
	}
	ip.unlocki()
	return ip, nil
}

// deleteInodeLocked frees every extent ip owns and marks its dinode record
// TFree. The caller must already have an open log transaction -- callers
// that also need to erase a directory entry (dir.go's Unlink) begin one
// transaction covering both, per spec.md §9's resolution that deletion is
// a single atomic unit.
func (fs *FS) deleteInodeLocked(ip *Inode) error {
	ip.lock()
	defer ip.unlock()

	for i := 0; i < int(ip.NumExtents); i++ {
		ext := ip.Extents[i]
		if err := fs.bfree(ext.StartBlkno, ext.NBlocks); err != nil {
			return err
		}
	}

	ip.dinode = dinode{Type: TFree, Used: inodeAvail}
	return fs.rawWriteInode(ip.inum, &ip.dinode, 0)
}

// DeleteInode frees ip's extents and marks it unused in its own
// transaction, for callers with no surrounding directory-entry mutation to
// combine it with.
func (fs *FS) DeleteInode(ip *Inode) error {
	if err := fs.log.Begin(); err != nil {
		return err
	}
	if err := fs.deleteInodeLocked(ip); err != nil {
		fs.log.Commit()
		return err
	}
	return fs.log.Commit()
}

// Sync flushes the underlying device.
func (fs *FS) Sync() error {
	return fs.dev.Sync()
}

// Close releases the underlying device.
func (fs *FS) Close() error {
	return fs.dev.Close()
}
