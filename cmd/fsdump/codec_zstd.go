//go:build zstd

package main

import "github.com/klauspost/compress/zstd"

func init() {
	registerCodec(&codec{
		Name: "zstd",
		Compress: func(b []byte) ([]byte, error) {
			enc, err := zstd.NewWriter(nil)
			if err != nil {
				return nil, err
			}
			defer enc.Close()
			return enc.EncodeAll(b, nil), nil
		},
		Decompress: func(b []byte) ([]byte, error) {
			dec, err := zstd.NewReader(nil)
			if err != nil {
				return nil, err
			}
			defer dec.Close()
			return dec.DecodeAll(b, nil)
		},
	})
}
