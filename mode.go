package tinyfs

import "io/fs"

// Mode reports t's fs.FileMode bit, the same dir/regular/device
// distinction the teacher's UnixToMode switch makes from raw unix mode
// bits, collapsed down to tinyfs's three inode types.
func (t InodeType) Mode() fs.FileMode {
	switch t {
	case TDir:
		return fs.ModeDir
	case TDev:
		return fs.ModeDevice
	default:
		return 0
	}
}
