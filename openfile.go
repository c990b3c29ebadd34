package tinyfs

import (
	"context"
	"sync"
)

// fileKind distinguishes the two things an OpenFile can back.
type fileKind int

const (
	fileNone fileKind = iota
	fileInode
	filePipe
)

// OpenFile is one entry in the process-shared open-file table: a
// ref-counted handle on either an inode or a pipe end, plus the cursor and
// access mode every descriptor pointing at it shares. Matches spec.md
// §4.6's split between the shared open-file table and each process' own
// descriptor table.
type OpenFile struct {
	mu sync.Mutex

	kind     fileKind
	ref      int
	readable bool
	writable bool

	ip     *Inode
	offset uint64

	pipe       *Pipe
	pipeWriter bool
}

// OpenFileTable is the fixed-size, NFILE-slot shared table every process'
// descriptor table points into.
type OpenFileTable struct {
	mu    sync.Mutex
	files [NFILE]*OpenFile
}

func NewOpenFileTable() *OpenFileTable {
	t := &OpenFileTable{}
	for i := range t.files {
		t.files[i] = &OpenFile{}
	}
	return t
}

// alloc claims a free (ref == 0) slot. A full table is the ordinary,
// recoverable ErrNoFreeFile -- unlike the inode cache, opening too many
// files concurrently is an expected, retryable condition, not a design
// invariant violation.
func (t *OpenFileTable) alloc() (*OpenFile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range t.files {
		if f.ref == 0 {
			f.ref = 1
			return f, nil
		}
	}
	return nil, ErrNoFreeFile
}

func (t *OpenFileTable) dup(f *OpenFile) *OpenFile {
	f.mu.Lock()
	f.ref++
	f.mu.Unlock()
	return f
}

// close drops a reference, releasing the underlying inode or pipe end
// once the last one is gone.
func (t *OpenFileTable) close(f *OpenFile) error {
	f.mu.Lock()
	f.ref--
	last := f.ref == 0
	kind, ip, pipe, pipeWriter := f.kind, f.ip, f.pipe, f.pipeWriter
	if last {
		f.kind = fileNone
		f.ip = nil
		f.pipe = nil
	}
	f.mu.Unlock()

	if !last {
		return nil
	}

	switch kind {
	case fileInode:
		ip.fs.Release(ip)
	case filePipe:
		if pipeWriter {
			pipe.CloseWriter()
		} else {
			pipe.CloseReader()
		}
	}
	return nil
}

// Read reads into p at the file's current cursor, advancing it by however
// many bytes were actually read.
func (f *OpenFile) Read(ctx context.Context, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.readable {
		return 0, ErrBadMode
	}

	switch f.kind {
	case fileInode:
		n, err := f.ip.readi(p, f.offset)
		f.offset += uint64(n)
		return n, err
	case filePipe:
		return f.pipe.Read(ctx, p)
	default:
		return 0, ErrBadFD
	}
}

// Write writes p at the file's current cursor, advancing it by however
// many bytes were actually written.
func (f *OpenFile) Write(ctx context.Context, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.writable {
		return 0, ErrBadMode
	}

	switch f.kind {
	case fileInode:
		n, err := f.ip.writei(p, f.offset)
		f.offset += uint64(n)
		return n, err
	case filePipe:
		return f.pipe.Write(ctx, p)
	default:
		return 0, ErrBadFD
	}
}

// Stat reports the open file's inode metadata; pipes have no stat shape
// and return ErrBadFD.
func (f *OpenFile) Stat(name string) (*Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kind != fileInode {
		return nil, ErrBadFD
	}
	return f.ip.stat(name), nil
}
