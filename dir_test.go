package tinyfs

import (
	"io"
	"testing"
)

func TestSkipelem(t *testing.T) {
	cases := []struct {
		path, elem, rest string
	}{
		{"/a/b/c", "a", "b/c"},
		{"a/b/c", "a", "b/c"},
		{"//a//b", "a", "b"},
		{"a", "a", ""},
		{"/", "", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		elem, rest := skipelem(c.path)
		if elem != c.elem || rest != c.rest {
			t.Errorf("skipelem(%q) = (%q, %q), want (%q, %q)", c.path, elem, rest, c.elem, c.rest)
		}
	}
}

func TestSplitPath(t *testing.T) {
	cases := []struct{ path, dir, base string }{
		{"/foo", "/", "foo"},
		{"/a/b", "/a", "b"},
		{"foo", "/", "foo"},
	}
	for _, c := range cases {
		dir, base := splitPath(c.path)
		if dir != c.dir || base != c.base {
			t.Errorf("splitPath(%q) = (%q, %q), want (%q, %q)", c.path, dir, base, c.dir, c.base)
		}
	}
}

func TestDirlinkAndDirlookup(t *testing.T) {
	fs := newTestFS(t, 256)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fs.Release(root)

	child, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	defer fs.Release(child)

	if err := fs.dirlink(root, "greeting", child.inum); err != nil {
		t.Fatalf("dirlink: %v", err)
	}

	found, _, err := fs.dirlookup(root, "greeting")
	if err != nil {
		t.Fatalf("dirlookup: %v", err)
	}
	defer fs.Release(found)
	if found.inum != child.inum {
		t.Errorf("dirlookup found inum %d, want %d", found.inum, child.inum)
	}

	if _, _, err := fs.dirlookup(root, "missing"); err != ErrNotFound {
		t.Errorf("dirlookup(missing) = %v, want ErrNotFound", err)
	}

	if err := fs.dirlink(root, "greeting", child.inum); err != ErrExists {
		t.Errorf("dirlink duplicate name = %v, want ErrExists", err)
	}
}

func TestDirlinkNameTooLong(t *testing.T) {
	fs := newTestFS(t, 256)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fs.Release(root)

	if err := fs.dirlink(root, "this-name-is-far-too-long-for-one-dirent", 1); err != ErrOverflow {
		t.Errorf("dirlink(long name) = %v, want ErrOverflow", err)
	}
}

func TestUnlinkReusesFreedSlot(t *testing.T) {
	fs := newTestFS(t, 256)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fs.Release(root)

	sizeBefore := root.Size

	child, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	if err := fs.dirlink(root, "temp", child.inum); err != nil {
		t.Fatalf("dirlink: %v", err)
	}
	fs.Release(child)

	if err := fs.Unlink(root, "temp"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, _, err := fs.dirlookup(root, "temp"); err != ErrNotFound {
		t.Errorf("dirlookup after Unlink = %v, want ErrNotFound", err)
	}

	another, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	defer fs.Release(another)
	if err := fs.dirlink(root, "temp2", another.inum); err != nil {
		t.Fatalf("dirlink: %v", err)
	}

	if root.Size != sizeBefore+direntSize {
		t.Errorf("root.Size after unlink+relink = %d, want %d (tombstone slot reused)", root.Size, sizeBefore+direntSize)
	}
}

func TestUnlinkDeletesInode(t *testing.T) {
	fs := newTestFS(t, 256)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fs.Release(root)

	child, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	inum := child.inum
	if err := fs.dirlink(root, "gone", inum); err != nil {
		t.Fatalf("dirlink: %v", err)
	}
	fs.Release(child)

	if err := fs.Unlink(root, "gone"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	d, err := fs.rawReadInode(inum)
	if err != nil {
		t.Fatalf("rawReadInode: %v", err)
	}
	if d.Type != TFree {
		t.Errorf("deleted inode Type = %v, want TFree", d.Type)
	}
}

func TestNamexWalksNestedDirectories(t *testing.T) {
	fs := newTestFS(t, 256)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fs.Release(root)

	sub, err := fs.Create("/sub", TDir)
	if err != nil {
		t.Fatalf("Create /sub: %v", err)
	}
	defer fs.Release(sub)

	leaf, err := fs.Create("/sub/leaf", TFile)
	if err != nil {
		t.Fatalf("Create /sub/leaf: %v", err)
	}
	defer fs.Release(leaf)

	found, err := fs.namex("/sub/leaf")
	if err != nil {
		t.Fatalf("namex: %v", err)
	}
	defer fs.Release(found)
	if found.inum != leaf.inum {
		t.Errorf("namex found inum %d, want %d", found.inum, leaf.inum)
	}

	if _, err := fs.namex("/sub/leaf/nope"); err != ErrNotDir {
		t.Errorf("namex through a non-directory = %v, want ErrNotDir", err)
	}
}

func TestDirIterSkipsTombstones(t *testing.T) {
	fs := newTestFS(t, 256)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	defer fs.Release(root)

	a, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode a: %v", err)
	}
	b, err := fs.CreateInode(TFile)
	if err != nil {
		t.Fatalf("CreateInode b: %v", err)
	}
	defer fs.Release(b)

	fs.dirlink(root, "a", a.inum)
	fs.dirlink(root, "b", b.inum)
	fs.Release(a)
	if err := fs.Unlink(root, "a"); err != nil {
		t.Fatalf("Unlink a: %v", err)
	}

	names, err := fs.Readdirnames(root)
	if err != nil {
		t.Fatalf("Readdirnames: %v", err)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("Readdirnames after unlinking a = %v, want [b]", names)
	}

	it := fs.newDirIter(root)
	count := 0
	for {
		_, _, err := it.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("dirIter.next: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("dirIter visited %d entries (including tombstones), want 2", count)
	}
}
