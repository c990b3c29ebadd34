//go:build xz

package main

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	registerCodec(&codec{
		Name: "xz",
		Compress: func(b []byte) ([]byte, error) {
			var out bytes.Buffer
			w, err := xz.NewWriter(&out)
			if err != nil {
				return nil, err
			}
			if _, err := w.Write(b); err != nil {
				w.Close()
				return nil, err
			}
			if err := w.Close(); err != nil {
				return nil, err
			}
			return out.Bytes(), nil
		},
		Decompress: func(b []byte) ([]byte, error) {
			r, err := xz.NewReader(bytes.NewReader(b))
			if err != nil {
				return nil, err
			}
			return io.ReadAll(r)
		},
	})
}
