package tinyfs

import (
	"io/fs"
	"path"
	"time"
)

// Stat is the result of stat'ing an open file, mirroring the teacher's
// fileinfo but built from a dinode instead of a SquashFS inode record.
type Stat struct {
	name string
	typ  InodeType
	size uint32
}

var _ fs.FileInfo = (*Stat)(nil)

func (s *Stat) Name() string      { return s.name }
func (s *Stat) Size() int64       { return int64(s.size) }
func (s *Stat) Mode() fs.FileMode { return s.typ.Mode() }
func (s *Stat) IsDir() bool       { return s.typ == TDir }
func (s *Stat) Sys() any          { return nil }

// ModTime always reports the zero time: spec.md's dinode has no room for
// a modification timestamp.
func (s *Stat) ModTime() time.Time { return time.Time{} }

func (ip *Inode) stat(name string) *Stat {
	return &Stat{name: path.Base(name), typ: ip.Type, size: ip.Size}
}
