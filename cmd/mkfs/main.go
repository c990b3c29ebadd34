// Command mkfs formats a regular file as a tinyfs image.
package main

import (
	"flag"
	"log"

	"github.com/anthonyhuynh227/tinyfs"
	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

func main() {
	size := flag.Uint64("size", 16*1024*1024, "image size in bytes")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: mkfs [-size bytes] <image-path>")
	}
	path := flag.Arg(0)

	nblocks := uint32(*size / blockdev.BlockSize)
	dev, err := blockdev.CreateFile(path, nblocks)
	if err != nil {
		log.Fatalf("mkfs: %v", err)
	}
	defer dev.Close()

	fs, err := tinyfs.Mkfs(dev)
	if err != nil {
		log.Fatalf("mkfs: %v", err)
	}
	defer fs.Close()

	if err := fs.Sync(); err != nil {
		log.Fatalf("mkfs: sync: %v", err)
	}
	log.Printf("mkfs: wrote %s, %d blocks", path, nblocks)
}
