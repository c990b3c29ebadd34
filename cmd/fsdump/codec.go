package main

// codec is a named, swappable compressor for whole-image snapshots.
// Optional codecs register themselves from a build-tag-gated file, the
// same init()-into-registry pattern the teacher uses for its own
// decompressor table (comp_xz.go, comp_zstd.go).
type codec struct {
	Name       string
	Compress   func([]byte) ([]byte, error)
	Decompress func([]byte) ([]byte, error)
}

var codecs = map[string]*codec{}

func registerCodec(c *codec) {
	codecs[c.Name] = c
}

func init() {
	registerCodec(&codec{Name: "none", Compress: identity, Decompress: identity})
}

func identity(b []byte) ([]byte, error) { return b, nil }
