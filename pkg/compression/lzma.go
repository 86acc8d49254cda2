// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/ulikunitz/xz/lzma"
)

// LZMA implements Compressor for the legacy .lzma format, as produced by
// "xz --format=lzma".
type LZMA struct{}

const (
	lzmaHeaderLen = 13
	// lzmaDefaultProperties is lc=3, lp=0, pb=2.
	lzmaDefaultProperties = 0x5D
	lzmaMinDictCap        = 1 << 12
	// lzmaMaxSize bounds the uncompressed size stored in a header. Larger
	// values other than the unknown size marker are not a dump.
	lzmaMaxSize = 1 << 32
)

// Name returns the type of compression employed.
func (c *LZMA) Name() string {
	return "LZMA"
}

// Decode decodes a byte slice of LZMA data.
func (c *LZMA) Decode(encodedData []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(encodedData))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Encode encodes a byte slice with LZMA. The size is written to the header
// and no end of stream marker is emitted.
func (c *LZMA) Encode(decodedData []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(decodedData)),
	}.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(decodedData); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// isLZMAHeader checks the properties, dictionary size and uncompressed size
// fields of a .lzma header. The format has no magic.
func isLZMAHeader(data []byte) bool {
	if len(data) < lzmaHeaderLen || data[0] != lzmaDefaultProperties {
		return false
	}
	if binary.LittleEndian.Uint32(data[1:]) < lzmaMinDictCap {
		return false
	}
	size := binary.LittleEndian.Uint64(data[5:])
	return size == math.MaxUint64 || size <= lzmaMaxSize
}
