package tinyfs

// Option configures an FS at Open or Mkfs time.
type Option func(fs *FS) error
