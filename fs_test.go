package tinyfs

import (
	"testing"

	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

func TestMkfsThenOpenRoundTrip(t *testing.T) {
	dev := blockdev.NewMemDevice(256)
	fs, err := Mkfs(dev)
	if err != nil {
		t.Fatalf("Mkfs: %v", err)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if root.Type != TDir {
		t.Errorf("root.Type = %v, want TDir", root.Type)
	}
	fs.Release(root)

	reopened, err := Open(dev)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	root2, err := reopened.Root()
	if err != nil {
		t.Fatalf("Root after reopen: %v", err)
	}
	if root2.Type != TDir {
		t.Errorf("root.Type after reopen = %v, want TDir", root2.Type)
	}
	reopened.Release(root2)
}

func TestMkfsTooSmallDeviceFails(t *testing.T) {
	dev := blockdev.NewMemDevice(8)
	if _, err := Mkfs(dev); err != ErrNoSpace {
		t.Errorf("Mkfs(tiny device) = %v, want ErrNoSpace", err)
	}
}

func TestCreateInodeThenDeleteInode(t *testing.T) {
	fs := newTestFS(t, 256)

	ip, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	inum := ip.inum
	if ip.Type != TFile {
		t.Errorf("new inode Type = %v, want TFile", ip.Type)
	}
	if ip.ref != 1 {
		t.Errorf("new inode ref = %d, want 1", ip.ref)
	}

	if err := fs.DeleteInode(ip); err != nil {
		t.Fatalf("DeleteInode: %v", err)
	}
	fs.Release(ip)

	// The freed slot is reused by the next CreateInode rather than growing
	// the inodefile further.
	ip2, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode after delete: %v", err)
	}
	if ip2.inum != inum {
		t.Errorf("CreateInode after delete reused inum %d, got %d", inum, ip2.inum)
	}
	fs.Release(ip2)
}

func TestDeleteInodeFreesExtents(t *testing.T) {
	fs := newTestFS(t, 256)

	ip, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	payload := make([]byte, BSIZE*2)
	if _, err := ip.writei(payload, 0); err != nil {
		t.Fatalf("writei: %v", err)
	}
	freedStart := ip.Extents[0].StartBlkno
	freedLen := ip.Extents[0].NBlocks

	if err := fs.DeleteInode(ip); err != nil {
		t.Fatalf("DeleteInode: %v", err)
	}
	fs.Release(ip)

	fs.log.Begin()
	reallocated, err := fs.balloc(freedLen)
	fs.log.Commit()
	if err != nil {
		t.Fatalf("balloc after delete: %v", err)
	}
	if reallocated != freedStart {
		t.Errorf("balloc after delete = %d, want reused %d", reallocated, freedStart)
	}
}

func TestInodeCacheExhaustionPanics(t *testing.T) {
	fs := newTestFS(t, 512)

	// Exercise the cache's own exhaustion invariant directly, with
	// synthetic inums, rather than driving it through CreateInode: churning
	// NINODE+1 real inodes would also grow the inodefile's own extent
	// table, conflating two different fatal invariants in one test.
	held := make([]*Inode, 0, NINODE+1)
	defer func() {
		r := recover()
		for _, ip := range held {
			fs.cache.irelease(ip)
		}
		if r == nil {
			t.Errorf("iget past NINODE resident inodes did not panic")
		}
	}()

	for i := 0; i < NINODE+1; i++ {
		held = append(held, fs.cache.iget(fs, uint32(1000+i)))
	}
}
