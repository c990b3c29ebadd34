package tinyfs

import "context"

// Proc is a single process' view of an FS: its own NOFILE-slot descriptor
// table of pointers into the shared OpenFileTable. Replaces the teacher
// system's global process table with an explicitly constructed, per-caller
// value -- no singleton, no register-argument marshalling, just typed Go
// arguments and return values.
type Proc struct {
	fs  *FS
	fds [NOFILE]*OpenFile
}

// NewProc attaches a fresh, empty descriptor table to fs.
func NewProc(fs *FS) *Proc {
	return &Proc{fs: fs}
}

func (p *Proc) allocFD(f *OpenFile) (int, error) {
	for i, slot := range p.fds {
		if slot == nil {
			p.fds[i] = f
			return i, nil
		}
	}
	return -1, ErrNoFreeFD
}

func (p *Proc) fd(fd int) (*OpenFile, error) {
	if fd < 0 || fd >= NOFILE || p.fds[fd] == nil {
		return nil, ErrBadFD
	}
	return p.fds[fd], nil
}

// Open resolves path and returns a descriptor for it. ORDWR/OWRONLY on a
// directory is rejected; ORDONLY on a directory is allowed (for Fstat,
// Readdir-style consumers).
func (p *Proc) Open(ctx context.Context, path string, mode OMode) (int, error) {
	p.fs.syscallMu.Lock()
	defer p.fs.syscallMu.Unlock()

	ip, err := p.fs.namex(path)
	if err != nil {
		return -1, err
	}
	if ip.Type == TDir && mode != ORDONLY {
		p.fs.Release(ip)
		return -1, ErrIsDir
	}

	f, err := p.fs.files.alloc()
	if err != nil {
		p.fs.Release(ip)
		return -1, err
	}
	f.kind = fileInode
	f.ip = ip
	f.offset = 0
	f.readable = mode == ORDONLY || mode == ORDWR
	f.writable = mode == OWRONLY || mode == ORDWR

	fd, err := p.allocFD(f)
	if err != nil {
		p.fs.files.close(f)
		return -1, err
	}
	return fd, nil
}

// Create makes a new inode of type t named path and opens it read-write.
func (p *Proc) Create(path string, t InodeType) (int, error) {
	p.fs.syscallMu.Lock()
	defer p.fs.syscallMu.Unlock()

	ip, err := p.fs.Create(path, t)
	if err != nil {
		return -1, err
	}

	f, err := p.fs.files.alloc()
	if err != nil {
		p.fs.Release(ip)
		return -1, err
	}
	f.kind = fileInode
	f.ip = ip
	f.offset = 0
	f.readable = true
	f.writable = true

	fd, err := p.allocFD(f)
	if err != nil {
		p.fs.files.close(f)
		return -1, err
	}
	return fd, nil
}

// Pipe creates a pipe and returns {readFD, writeFD}.
func (p *Proc) Pipe() (int, int, error) {
	p.fs.syscallMu.Lock()
	defer p.fs.syscallMu.Unlock()

	pp := NewPipe()

	rf, err := p.fs.files.alloc()
	if err != nil {
		return -1, -1, err
	}
	rf.kind = filePipe
	rf.pipe = pp
	rf.readable = true

	wf, err := p.fs.files.alloc()
	if err != nil {
		p.fs.files.close(rf)
		return -1, -1, err
	}
	wf.kind = filePipe
	wf.pipe = pp
	wf.writable = true
	wf.pipeWriter = true

	rfd, err := p.allocFD(rf)
	if err != nil {
		p.fs.files.close(rf)
		p.fs.files.close(wf)
		return -1, -1, err
	}
	wfd, err := p.allocFD(wf)
	if err != nil {
		p.fds[rfd] = nil
		p.fs.files.close(rf)
		p.fs.files.close(wf)
		return -1, -1, err
	}
	return rfd, wfd, nil
}

// Read, Write, Close, Dup, Fstat are the remaining syscall-shaped surface;
// they hold fs.syscallMu only long enough to look up fd in the descriptor
// table, since that lock guards path resolution and descriptor-table
// bookkeeping, not the data transferred through an already-open file -- it
// is released before the blocking pipe case, not held across it.
func (p *Proc) Read(ctx context.Context, fd int, buf []byte) (int, error) {
	p.fs.syscallMu.Lock()
	f, err := p.fd(fd)
	p.fs.syscallMu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Read(ctx, buf)
}

func (p *Proc) Write(ctx context.Context, fd int, buf []byte) (int, error) {
	p.fs.syscallMu.Lock()
	f, err := p.fd(fd)
	p.fs.syscallMu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Write(ctx, buf)
}

func (p *Proc) Close(fd int) error {
	p.fs.syscallMu.Lock()
	defer p.fs.syscallMu.Unlock()

	f, err := p.fd(fd)
	if err != nil {
		return err
	}
	p.fds[fd] = nil
	return p.fs.files.close(f)
}

// Dup duplicates fd onto the lowest free descriptor.
func (p *Proc) Dup(fd int) (int, error) {
	p.fs.syscallMu.Lock()
	defer p.fs.syscallMu.Unlock()

	f, err := p.fd(fd)
	if err != nil {
		return -1, err
	}
	p.fs.files.dup(f)
	newFD, err := p.allocFD(f)
	if err != nil {
		p.fs.files.close(f)
		return -1, err
	}
	return newFD, nil
}

func (p *Proc) Fstat(fd int, name string) (*Stat, error) {
	p.fs.syscallMu.Lock()
	f, err := p.fd(fd)
	p.fs.syscallMu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Stat(name)
}

// Unlink removes name from its parent directory.
func (p *Proc) Unlink(path string) error {
	p.fs.syscallMu.Lock()
	defer p.fs.syscallMu.Unlock()

	dirPath, name := splitPath(path)
	dp, err := p.fs.namex(dirPath)
	if err != nil {
		return err
	}
	defer p.fs.Release(dp)
	return p.fs.Unlink(dp, name)
}
