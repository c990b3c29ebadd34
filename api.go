package tinyfs

import "io"

// Lookup returns a ref-counted handle on name within directory dp, without
// exposing the dirent byte offset internal operations like Unlink need.
func (fs *FS) Lookup(dp *Inode, name string) (*Inode, error) {
	ip, _, err := fs.dirlookup(dp, name)
	return ip, err
}

// ReadInode reads len(p) bytes (or fewer, at EOF) from ip at offset off,
// for callers outside this package that hold their own *Inode reference
// (fuseview).
func (fs *FS) ReadInode(ip *Inode, p []byte, off uint64) (int, error) {
	return ip.readi(p, off)
}

// Readdirnames lists every non-empty entry name in directory dp, in
// on-disk order.
func (fs *FS) Readdirnames(dp *Inode) ([]string, error) {
	if dp.Type != TDir {
		return nil, ErrNotDir
	}
	var names []string
	it := fs.newDirIter(dp)
	for {
		d, _, err := it.next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		if d.Inum == 0 {
			continue
		}
		names = append(names, direntName(d))
	}
}
