package tinyfs

import (
	"context"
	"sync"
)

// Pipe is a fixed-size, in-process circular-buffer pipe: MaxPipeSize bytes,
// blocking Read/Write guarded by a mutex and a pair of condition
// variables. The circular-index arithmetic is grounded on the
// offset-wrapping scheme a disk-backed ring buffer uses, adapted here to
// an in-memory buffer guarded by sync.Cond instead of cross-process
// mmap'd state.
//
// EOF and broken-pipe detection use the O(1) reader/writer counters
// spec.md §9 suggests as an improvement over scanning the whole open-file
// table -- see SPEC_FULL.md §9.
type Pipe struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf            [MaxPipeSize]byte
	nread, nwrite  uint64
	readers, writers int
}

// NewPipe returns a pipe with one reader and one writer reference, the
// ends a caller is expected to hand to the two sides of the pipe
// immediately.
func NewPipe() *Pipe {
	p := &Pipe{readers: 1, writers: 1}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	return p
}

// CloseReader/CloseWriter drop one reference to the corresponding end.
// Dropping the last writer wakes every blocked reader so they observe
// EOF; dropping the last reader wakes every blocked writer so they
// observe ErrBrokenPipe.
func (p *Pipe) CloseReader() {
	p.mu.Lock()
	p.readers--
	p.mu.Unlock()
	p.notFull.Broadcast()
}

func (p *Pipe) CloseWriter() {
	p.mu.Lock()
	p.writers--
	p.mu.Unlock()
	p.notEmpty.Broadcast()
}

// Read blocks until at least one byte is available, the last writer
// closes (returning 0, nil for EOF), or ctx is done.
func (p *Pipe) Read(ctx context.Context, dst []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.nread == p.nwrite {
		if p.writers == 0 {
			return 0, nil
		}
		if err := waitCond(ctx, p.notEmpty); err != nil {
			return 0, err
		}
	}

	n := 0
	for n < len(dst) && p.nread < p.nwrite {
		dst[n] = p.buf[p.nread%MaxPipeSize]
		p.nread++
		n++
	}
	p.notFull.Broadcast()
	return n, nil
}

// Write blocks while the buffer is full and a reader remains, returns
// ErrBrokenPipe the instant the last reader is gone, and otherwise copies
// every byte of src before returning.
func (p *Pipe) Write(ctx context.Context, src []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for n < len(src) {
		for p.nwrite-p.nread == MaxPipeSize {
			if p.readers == 0 {
				return n, ErrBrokenPipe
			}
			if err := waitCond(ctx, p.notFull); err != nil {
				return n, err
			}
		}
		if p.readers == 0 {
			return n, ErrBrokenPipe
		}
		p.buf[p.nwrite%MaxPipeSize] = src[n]
		p.nwrite++
		n++
		p.notEmpty.Broadcast()
	}
	return n, nil
}

// waitCond blocks on c.Wait, woken early if ctx is done, and reports
// ctx.Err() once woken for either reason.
func waitCond(ctx context.Context, c *sync.Cond) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Broadcast under c.L, so it cannot fire between the ctx.Err check
	// above and c.Wait registering this waiter.
	stop := context.AfterFunc(ctx, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	defer stop()
	c.Wait()
	return ctx.Err()
}
