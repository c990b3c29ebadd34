//go:build fuse

// Package fuseview is a read-only FUSE front end onto a mounted tinyfs
// image, for inspecting an image's contents without a kernel driver.
// Grounded on the teacher's own inode_fuse.go (Lookup/Open/OpenDir/
// FillAttr shape), rebuilt against go-fuse v2's higher-level fs
// (InodeEmbedder) package instead of the teacher's raw fuse package, since
// tinyfs's inode shape has no index table or fragment decoding to justify
// the lower-level API's extra control. Build-tag gated exactly like the
// teacher's own inode_fuse.go/inode_linux.go, since mounting pulls in
// OS-specific FUSE syscalls a plain `go test` run never needs.
package fuseview

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/anthonyhuynh227/tinyfs"
)

// node is a FUSE inode backed by a tinyfs *Inode. It is always read-only:
// every mutating NodeXxxer is simply not implemented, so go-fuse returns
// ENOSYS for them.
type node struct {
	fs.Inode

	tfs  *tinyfs.FS
	inum uint32
}

var (
	_ fs.NodeLookuper  = (*node)(nil)
	_ fs.NodeGetattrer = (*node)(nil)
	_ fs.NodeOpener    = (*node)(nil)
	_ fs.NodeReader    = (*node)(nil)
	_ fs.NodeReaddirer = (*node)(nil)
)

// Root builds the FUSE root node for a mounted tinyfs image.
func Root(tfs *tinyfs.FS) fs.InodeEmbedder {
	return &node{tfs: tfs, inum: tinyfs.RootInum}
}

func (n *node) open() (*tinyfs.Inode, syscall.Errno) {
	ip, err := n.tfs.GetInode(n.inum)
	if err != nil {
		return nil, syscall.ENOENT
	}
	return ip, 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	dp, errno := n.open()
	if errno != 0 {
		return nil, errno
	}
	defer n.tfs.Release(dp)

	child, err := n.tfs.Lookup(dp, name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	defer n.tfs.Release(child)

	fillAttr(child, &out.Attr)
	childNode := &node{tfs: n.tfs, inum: child.Inum()}
	stable := fs.StableAttr{Mode: modeOf(child), Ino: uint64(child.Inum())}
	return n.NewInode(ctx, childNode, stable), 0
}

func modeOf(ip *tinyfs.Inode) uint32 {
	if ip.Type == tinyfs.TDir {
		return syscall.S_IFDIR | 0555
	}
	return syscall.S_IFREG | 0444
}

func (n *node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	ip, errno := n.open()
	if errno != 0 {
		return errno
	}
	defer n.tfs.Release(ip)
	fillAttr(ip, &out.Attr)
	return 0
}

func fillAttr(ip *tinyfs.Inode, attr *fuse.Attr) {
	attr.Ino = uint64(ip.Inum())
	attr.Size = uint64(ip.Size)
	attr.Mode = modeOf(ip)
}

func (n *node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	ip, errno := n.open()
	if errno != 0 {
		return nil, errno
	}
	defer n.tfs.Release(ip)

	got, err := n.tfs.ReadInode(ip, dest, uint64(off))
	if err != nil {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	dp, errno := n.open()
	if errno != 0 {
		return nil, errno
	}
	defer n.tfs.Release(dp)

	names, err := n.tfs.Readdirnames(dp)
	if err != nil {
		return nil, syscall.EIO
	}

	entries := make([]fuse.DirEntry, 0, len(names))
	for _, nm := range names {
		child, err := n.tfs.Lookup(dp, nm)
		if err != nil {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: nm, Ino: uint64(child.Inum()), Mode: modeOf(child)})
		n.tfs.Release(child)
	}
	return fs.NewListDirStream(entries), 0
}
