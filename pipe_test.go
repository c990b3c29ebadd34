package tinyfs_test

import (
	"context"
	"testing"
	"time"

	"github.com/anthonyhuynh227/tinyfs"
)

func TestPipeReadWriteRoundTrip(t *testing.T) {
	p := tinyfs.NewPipe()
	ctx := context.Background()

	if _, err := p.Write(ctx, []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 5)
	n, err := p.Read(ctx, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 5 || string(buf) != "hello" {
		t.Errorf("Read = %q, want %q", buf[:n], "hello")
	}
}

func TestPipeReadBlocksThenUnblocksOnWrite(t *testing.T) {
	p := tinyfs.NewPipe()
	ctx := context.Background()

	done := make(chan struct{})
	buf := make([]byte, 3)
	var n int
	var err error
	go func() {
		n, err = p.Read(ctx, buf)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("Read returned before any data was written")
	case <-time.After(50 * time.Millisecond):
	}

	if _, werr := p.Write(ctx, []byte("hi!")); werr != nil {
		t.Fatalf("Write: %v", werr)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Read did not unblock after Write")
	}
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 || string(buf) != "hi!" {
		t.Errorf("Read = %q, want %q", buf[:n], "hi!")
	}
}

func TestPipeReadEOFAfterWriterCloses(t *testing.T) {
	p := tinyfs.NewPipe()
	ctx := context.Background()

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		n, err = p.Read(ctx, make([]byte, 1))
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	p.CloseWriter()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Read did not unblock after CloseWriter")
	}
	if err != nil {
		t.Errorf("Read after writer close = %v, want nil (EOF)", err)
	}
	if n != 0 {
		t.Errorf("Read after writer close = %d bytes, want 0", n)
	}
}

func TestPipeWriteBrokenPipeAfterReaderCloses(t *testing.T) {
	p := tinyfs.NewPipe()
	p.CloseReader()

	_, err := p.Write(context.Background(), []byte("x"))
	if err != tinyfs.ErrBrokenPipe {
		t.Errorf("Write with no readers = %v, want ErrBrokenPipe", err)
	}
}

func TestPipeWriteBlocksThenBreaksWhenReaderCloses(t *testing.T) {
	p := tinyfs.NewPipe()
	ctx := context.Background()

	// Fill the buffer so the next Write blocks on notFull.
	filler := make([]byte, tinyfs.MaxPipeSize)
	if _, err := p.Write(ctx, filler); err != nil {
		t.Fatalf("fill Write: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Write(ctx, []byte("more"))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.CloseReader()

	select {
	case err := <-done:
		if err != tinyfs.ErrBrokenPipe {
			t.Errorf("blocked Write after CloseReader = %v, want ErrBrokenPipe", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked Write did not unblock after CloseReader")
	}
}

func TestPipeReadCancelledByContext(t *testing.T) {
	p := tinyfs.NewPipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.Read(ctx, make([]byte, 1))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Read after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Read did not unblock after context cancellation")
	}
}
