package tinyfs

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// direntSize is the fixed on-disk size of one directory entry:
// {inum uint16, name [DirNameSize]byte}, matching spec.md §4.5's 16-byte
// flat-namespace dirent.
const direntSize = 2 + DirNameSize

// dirent is one flat-namespace directory record. Inum == 0 marks a free
// slot -- safe because inum 0 is always the inodefile and can never be a
// directory's child.
type dirent struct {
	Inum uint16
	Name [DirNameSize]byte
}

func (d *dirent) marshalBinary() []byte {
	buf := make([]byte, direntSize)
	binary.LittleEndian.PutUint16(buf[0:2], d.Inum)
	copy(buf[2:], d.Name[:])
	return buf
}

func (d *dirent) unmarshalBinary(buf []byte) {
	d.Inum = binary.LittleEndian.Uint16(buf[0:2])
	copy(d.Name[:], buf[2:2+DirNameSize])
}

func direntName(d *dirent) string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n < 0 {
		n = len(d.Name)
	}
	return string(d.Name[:n])
}

func setDirentName(d *dirent, name string) error {
	if len(name) > DirNameSize {
		return ErrOverflow
	}
	var arr [DirNameSize]byte
	copy(arr[:], name)
	d.Name = arr
	return nil
}

// dirIter walks a directory's entries sequentially, the same linear-scan
// idiom the teacher's dirReader uses for SquashFS directories.
type dirIter struct {
	ip  *Inode
	off uint64
}

func (fs *FS) newDirIter(ip *Inode) *dirIter {
	return &dirIter{ip: ip}
}

func (it *dirIter) next() (*dirent, uint64, error) {
	entryOff := it.off
	buf := make([]byte, direntSize)
	n, err := it.ip.readi(buf, it.off)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, io.EOF
	}
	it.off += direntSize
	d := &dirent{}
	d.unmarshalBinary(buf)
	return d, entryOff, nil
}

// dirlookup scans dp for name, returning a ref-counted handle on its
// inode and the byte offset of its dirent within dp.
func (fs *FS) dirlookup(dp *Inode, name string) (*Inode, uint64, error) {
	if dp.Type != TDir {
		return nil, 0, ErrNotDir
	}

	it := fs.newDirIter(dp)
	for {
		d, off, err := it.next()
		if err == io.EOF {
			return nil, 0, ErrNotFound
		}
		if err != nil {
			return nil, 0, err
		}
		if d.Inum == 0 {
			continue
		}
		if direntName(d) == name {
			ip, err := fs.GetInode(uint32(d.Inum))
			return ip, off, err
		}
	}
}

// dirlinkLocked adds a {name, inum} entry to dp, reusing a free slot left
// behind by a prior unlink before appending a new one. The caller must
// already have an open log transaction.
func (fs *FS) dirlinkLocked(dp *Inode, name string, inum uint32) error {
	if len(name) > DirNameSize {
		return ErrOverflow
	}
	if existing, _, err := fs.dirlookup(dp, name); err == nil {
		fs.Release(existing)
		return ErrExists
	}

	d := &dirent{Inum: uint16(inum)}
	if err := setDirentName(d, name); err != nil {
		return err
	}
	buf := d.marshalBinary()

	off := uint64(dp.Size)
	it := fs.newDirIter(dp)
	for {
		e, eoff, err := it.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if e.Inum == 0 {
			off = eoff
			break
		}
	}

	_, err := fs.writeExtentBytesLocked(dp, off, buf, 0)
	return err
}

// dirlink wraps dirlinkLocked in its own transaction, for callers with no
// surrounding inode-creation to combine it with.
func (fs *FS) dirlink(dp *Inode, name string, inum uint32) error {
	if err := fs.log.Begin(); err != nil {
		return err
	}
	err := fs.dirlinkLocked(dp, name, inum)
	if cerr := fs.log.Commit(); err == nil {
		err = cerr
	}
	return err
}

// Unlink removes name from dp and deletes its inode, both within a single
// log transaction -- spec.md §9's resolution that deletion (dirent erase,
// dinode rewrite, extent frees) is one atomic unit.
func (fs *FS) Unlink(dp *Inode, name string) error {
	child, off, err := fs.dirlookup(dp, name)
	if err != nil {
		return err
	}
	defer fs.Release(child)

	if err := fs.log.Begin(); err != nil {
		return err
	}

	empty := make([]byte, direntSize)
	if _, err := fs.writeExtentBytesLocked(dp, off, empty, 0); err != nil {
		fs.log.Commit()
		return err
	}
	if err := fs.deleteInodeLocked(child); err != nil {
		fs.log.Commit()
		return err
	}
	return fs.log.Commit()
}

// skipelem splits path into its first element and the remainder, skipping
// any leading or interior run of slashes.
func skipelem(path string) (elem, rest string) {
	for len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if len(path) == 0 {
		return "", ""
	}
	i := strings.IndexByte(path, '/')
	if i < 0 {
		return path, ""
	}
	elem = path[:i]
	rest = path[i+1:]
	for len(rest) > 0 && rest[0] == '/' {
		rest = rest[1:]
	}
	return elem, rest
}

// namex resolves an absolute path by walking from the root, one dirlookup
// per path element, per spec.md §4.5.
func (fs *FS) namex(path string) (*Inode, error) {
	ip, err := fs.Root()
	if err != nil {
		return nil, err
	}

	rest := path
	for {
		elem, next := skipelem(rest)
		if elem == "" {
			return ip, nil
		}
		if ip.Type != TDir {
			fs.Release(ip)
			return nil, ErrNotDir
		}
		child, _, err := fs.dirlookup(ip, elem)
		fs.Release(ip)
		if err != nil {
			return nil, err
		}
		ip = child
		rest = next
	}
}

// Create resolves path's parent directory and links a new inode of type t
// under its final element, allocating the inode and linking its dirent
// within a single log transaction -- spec.md §4.3's "(c) locate or append a
// dirent in the root directory" runs inside the same transaction as (a)-(b),
// the symmetric counterpart to Unlink's single-transaction dirent-erase and
// dinode-free.
func (fs *FS) Create(path string, t InodeType) (*Inode, error) {
	dirPath, name := splitPath(path)
	dp, err := fs.namex(dirPath)
	if err != nil {
		return nil, err
	}
	defer fs.Release(dp)
	if dp.Type != TDir {
		return nil, ErrNotDir
	}

	if err := fs.log.Begin(); err != nil {
		return nil, err
	}
	inum, err := fs.createInodeLocked(t)
	if err != nil {
		fs.log.Commit()
		return nil, err
	}
	if err := fs.dirlinkLocked(dp, name, inum); err != nil {
		// The inode allocated above has no dirent pointing at it and never
		// will; free it in the same still-open transaction rather than
		// leaking the slot. It owns no extents yet, so this is just an
		// in-memory dinode matching what createInodeLocked wrote, not a
		// disk read -- reading the block back here would see pre-
		// transaction state, since log.Write stages to the log area and
		// only reaches home blocks at Commit.
		freed := &Inode{fs: fs, inum: inum, dinode: dinode{Type: t, Used: inodeUsed}}
		fs.deleteInodeLocked(freed)
		fs.log.Commit()
		return nil, err
	}
	if err := fs.log.Commit(); err != nil {
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

func splitPath(path string) (dir, base string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "/", path
	}
	if i == 0 {
		return "/", path[1:]
	}
	return path[:i], path[i+1:]
}
