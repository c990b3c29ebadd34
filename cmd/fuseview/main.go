//go:build fuse

// Command fuseview mounts a tinyfs image read-only at a mountpoint via
// FUSE, for inspecting its contents with ordinary shell tools.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"

	gofuse "github.com/hanwen/go-fuse/v2/fs"

	"github.com/anthonyhuynh227/tinyfs"
	"github.com/anthonyhuynh227/tinyfs/blockdev"
	"github.com/anthonyhuynh227/tinyfs/fuseview"
)

func main() {
	flag.Parse()
	if flag.NArg() != 2 {
		log.Fatal("usage: fuseview <image-path> <mountpoint>")
	}
	imagePath, mountpoint := flag.Arg(0), flag.Arg(1)

	dev, err := blockdev.OpenFile(imagePath, true)
	if err != nil {
		log.Fatalf("fuseview: %v", err)
	}
	defer dev.Close()

	fs, err := tinyfs.Open(dev)
	if err != nil {
		log.Fatalf("fuseview: %v", err)
	}
	defer fs.Close()

	server, err := gofuse.Mount(mountpoint, fuseview.Root(fs), &gofuse.Options{})
	if err != nil {
		log.Fatalf("fuseview: mount: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		server.Unmount()
	}()

	log.Printf("fuseview: mounted %s at %s", imagePath, mountpoint)
	server.Wait()
}
