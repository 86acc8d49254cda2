// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compression implements reading and writing of compressed files.
//
// Video BIOS dumps are commonly distributed compressed. This package
// recognizes the container by its magic bytes so that callers can hand
// any dump to the ROM loader.
package compression

import (
	"bytes"
)

// Compressor defines a single compression scheme (such as LZ4).
type Compressor interface {
	// Name is typically the name of a class.
	Name() string

	// Decode and Encode obey "x == Decode(Encode(x))".
	Decode(encodedData []byte) ([]byte, error)
	Encode(decodedData []byte) ([]byte, error)
}

var (
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
	xzMagic   = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
)

// Compressors lists every supported scheme.
func Compressors() []Compressor {
	return []Compressor{&LZ4{}, &XZ{}, &LZMA{}, &Zstd{}, &ZLIB{}}
}

// Detect returns the Compressor whose container format matches the
// magic bytes at the start of data, or nil if data looks uncompressed.
func Detect(data []byte) Compressor {
	switch {
	case bytes.HasPrefix(data, lz4Magic):
		return &LZ4{}
	case bytes.HasPrefix(data, xzMagic):
		return &XZ{}
	case bytes.HasPrefix(data, zstdMagic):
		return &Zstd{}
	case isZlibHeader(data):
		return &ZLIB{}
	case isLZMAHeader(data):
		return &LZMA{}
	}
	return nil
}

// isZlibHeader checks the RFC 1950 CMF/FLG pair: deflate method with a
// window of at most 32K and a valid FCHECK.
func isZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0F != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Decompress decodes data if it is recognized as compressed. The second
// return value is the name of the detected scheme ("" if none).
func Decompress(data []byte) ([]byte, string, error) {
	c := Detect(data)
	if c == nil {
		return data, "", nil
	}
	decoded, err := c.Decode(data)
	if err != nil {
		return nil, c.Name(), err
	}
	return decoded, c.Name(), nil
}
