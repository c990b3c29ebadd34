package tinyfs

import "sync"

// Inode is the in-memory cache entry for one dinode. Fields mirror the
// on-disk record once valid is true; ref counts open references (path
// lookups, open files) independently of the on-disk Used flag, exactly the
// split spec.md §4.3 describes.
type Inode struct {
	fs   *FS
	inum uint32

	mu        sync.Mutex
	heldDepth int

	ref   int
	valid bool

	dinode
}

// Cache is the fixed-size, NINODE-slot in-memory inode table. A slot is
// free when ref == 0; iget reuses a matching resident entry before
// claiming a free slot, same as spec.md's cache-before-claim rule.
type Cache struct {
	mu    sync.Mutex
	slots [NINODE]*Inode
}

func newCache() *Cache {
	c := &Cache{}
	for i := range c.slots {
		c.slots[i] = &Inode{}
	}
	return c
}

// iget returns a cache entry for inum, bumping its refcount. It does not
// load the on-disk record -- call locki for that. Running out of free
// slots with every one of them referenced is a fatal design-invariant
// violation (spec.md §7 class 3): NINODE bounds concurrent open files plus
// path-walk pressure, and exhausting it means a caller forgot to release.
func (c *Cache) iget(fs *FS, inum uint32) *Inode {
	c.mu.Lock()
	defer c.mu.Unlock()

	var free *Inode
	for _, ip := range c.slots {
		if ip.ref > 0 && ip.fs == fs && ip.inum == inum {
			ip.ref++
			return ip
		}
		if free == nil && ip.ref == 0 {
			free = ip
		}
	}

	if free == nil {
		panic("tinyfs: inode cache exhausted")
	}

	free.fs = fs
	free.inum = inum
	free.ref = 1
	free.valid = false
	free.dinode = dinode{}
	return free
}

// idup bumps ref on an inode the caller already holds a reference to.
// Proc.Dup does not use it: a dup'd descriptor shares the same OpenFile
// and its single inode reference.
func (c *Cache) idup(ip *Inode) *Inode {
	c.mu.Lock()
	defer c.mu.Unlock()
	ip.ref++
	return ip
}

// irelease drops a reference. It never evicts eagerly -- a ref-0 slot is
// simply eligible for iget's next free-slot scan.
func (c *Cache) irelease(ip *Inode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ip.ref == 0 {
		panic("tinyfs: irelease of an inode with zero refcount")
	}
	ip.ref--
}

// lock acquires the per-inode lock, reentrantly: a bounded, same-call-stack
// recursive caller (the inodefile persisting its own dinode record while
// already holding its lock) calls lock again without deadlocking. This
// relies on file syscalls being serialized by a single caller at a time,
// not on cross-goroutine sharing of heldDepth.
func (ip *Inode) lock() {
	if ip.heldDepth == 0 {
		ip.mu.Lock()
	}
	ip.heldDepth++
}

func (ip *Inode) unlock() {
	if ip.heldDepth == 0 {
		panic("tinyfs: unlock of an inode that is not held")
	}
	ip.heldDepth--
	if ip.heldDepth == 0 {
		ip.mu.Unlock()
	}
}

// locki locks ip and loads its on-disk record if this is the first access
// since iget. A freshly-loaded record with Type == TFree is a fatal
// design-invariant violation: the caller asked for an inum the allocator
// never handed out, or dirent bookkeeping is corrupt.
func (ip *Inode) locki() error {
	ip.lock()
	if ip.valid {
		return nil
	}

	d, err := ip.fs.rawReadInode(ip.inum)
	if err != nil {
		ip.unlock()
		return err
	}
	if d.Type == TFree {
		panic("tinyfs: locki loaded a TFree dinode")
	}
	ip.dinode = *d
	ip.valid = true
	return nil
}

func (ip *Inode) unlocki() {
	ip.unlock()
}

// Inum returns the inode number, for callers outside this package
// (fuseview, cmd tools) that need to report or compare it.
func (ip *Inode) Inum() uint32 {
	return ip.inum
}
