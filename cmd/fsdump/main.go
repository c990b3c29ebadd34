// Command fsdump snapshots a tinyfs image to a (optionally compressed)
// archive file and restores one back, for moving images around without a
// raw block-for-block copy. Codec selection mirrors the teacher's own
// build-tag-gated compressor registration (comp_xz.go, comp_zstd.go): a
// "none" codec is always available, "zstd" and "xz" only when this binary
// was built with the matching build tag.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/anthonyhuynh227/tinyfs/blockdev"
)

const magic = "TFDUMP01"

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "dump":
		err = runDump(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("fsdump: %v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: fsdump dump [-codec name] <image> <archive>\n")
	fmt.Fprintf(os.Stderr, "       fsdump restore <archive> <image>\n")
	fmt.Fprintf(os.Stderr, "available codecs:")
	for name := range codecs {
		fmt.Fprintf(os.Stderr, " %s", name)
	}
	fmt.Fprintln(os.Stderr)
	os.Exit(2)
}

func runDump(args []string) error {
	fset := flag.NewFlagSet("dump", flag.ExitOnError)
	codecName := fset.String("codec", "none", "compression codec")
	fset.Parse(args)

	if fset.NArg() != 2 {
		usage()
	}
	imagePath, archivePath := fset.Arg(0), fset.Arg(1)

	c, ok := codecs[*codecName]
	if !ok {
		return fmt.Errorf("unknown codec %q", *codecName)
	}

	dev, err := blockdev.OpenFile(imagePath, true)
	if err != nil {
		return err
	}
	defer dev.Close()

	raw, err := readWholeDevice(dev)
	if err != nil {
		return err
	}

	packed, err := c.Compress(raw)
	if err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	if err := writeHeader(w, c.Name, dev.NumBlocks()); err != nil {
		return err
	}
	if _, err := w.Write(packed); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	log.Printf("fsdump: dumped %s (%d blocks, codec %s) to %s", imagePath, dev.NumBlocks(), c.Name, archivePath)
	return nil
}

func runRestore(args []string) error {
	fset := flag.NewFlagSet("restore", flag.ExitOnError)
	fset.Parse(args)
	if fset.NArg() != 2 {
		usage()
	}
	archivePath, imagePath := fset.Arg(0), fset.Arg(1)

	in, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer in.Close()
	r := bufio.NewReader(in)

	codecName, nblocks, err := readHeader(r)
	if err != nil {
		return err
	}
	c, ok := codecs[codecName]
	if !ok {
		return fmt.Errorf("archive needs codec %q, not built into this binary", codecName)
	}

	packed, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	raw, err := c.Decompress(packed)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if uint32(len(raw)) != nblocks*blockdev.BlockSize {
		return fmt.Errorf("restored image is %d bytes, want %d", len(raw), nblocks*blockdev.BlockSize)
	}

	dev, err := blockdev.CreateFile(imagePath, nblocks)
	if err != nil {
		return err
	}
	defer dev.Close()

	for blkno := uint32(0); blkno < nblocks; blkno++ {
		start := blkno * blockdev.BlockSize
		if err := dev.WriteBlock(blkno, raw[start:start+blockdev.BlockSize]); err != nil {
			return err
		}
	}
	if err := dev.Sync(); err != nil {
		return err
	}
	log.Printf("fsdump: restored %s (%d blocks, codec %s) to %s", archivePath, nblocks, codecName, imagePath)
	return nil
}

func readWholeDevice(dev blockdev.Device) ([]byte, error) {
	n := dev.NumBlocks()
	buf := make([]byte, 0, int(n)*blockdev.BlockSize)
	for blkno := uint32(0); blkno < n; blkno++ {
		blk, err := dev.ReadBlock(blkno)
		if err != nil {
			return nil, err
		}
		buf = append(buf, blk...)
	}
	return buf, nil
}

// writeHeader writes magic, a fixed 16-byte codec name field, and the
// block count, all fixed-width so readHeader never has to scan for a
// delimiter.
func writeHeader(w io.Writer, codecName string, nblocks uint32) error {
	if len(codecName) > 16 {
		return fmt.Errorf("codec name %q too long", codecName)
	}
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	var nameBuf [16]byte
	copy(nameBuf[:], codecName)
	if _, err := w.Write(nameBuf[:]); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, nblocks)
}

func readHeader(r io.Reader) (codecName string, nblocks uint32, err error) {
	got := make([]byte, len(magic))
	if _, err = io.ReadFull(r, got); err != nil {
		return "", 0, err
	}
	if string(got) != magic {
		return "", 0, fmt.Errorf("not a fsdump archive")
	}
	var nameBuf [16]byte
	if _, err = io.ReadFull(r, nameBuf[:]); err != nil {
		return "", 0, err
	}
	name := string(nameBuf[:])
	for i, b := range nameBuf {
		if b == 0 {
			name = string(nameBuf[:i])
			break
		}
	}
	if err = binary.Read(r, binary.LittleEndian, &nblocks); err != nil {
		return "", 0, err
	}
	return name, nblocks, nil
}
