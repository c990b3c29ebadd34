package tinyfs

import (
	"testing"

	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

// newTestFS formats and mounts a fresh in-memory image large enough to
// clear Mkfs's fixed bitmap/log/inodefile overhead with room for data
// blocks, for tests that need a real mounted FS rather than a bare device.
func newTestFS(t *testing.T, nblocks uint32) *FS {
	t.Helper()
	dev := blockdev.NewMemDevice(nblocks)
	fs, err := Mkfs(dev)
	if err != nil {
		t.Fatalf("Mkfs: %v", err)
	}
	return fs
}
