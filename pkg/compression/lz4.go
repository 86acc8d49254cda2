// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4"
)

// lz4BlockMaxSize is the smallest block size of the frame format, a legacy
// video BIOS image fits in one block.
const lz4BlockMaxSize = 64 << 10

// LZ4 implements Compressor for LZ4 frames.
type LZ4 struct{}

// Name returns the type of compression employed.
func (c *LZ4) Name() string {
	return "LZ4"
}

// Decode decodes a byte slice of LZ4 data. If the frame records its content
// size, the decoded data must have that size.
func (c *LZ4) Decode(encodedData []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(encodedData))
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if r.Header.Size != 0 && r.Header.Size != uint64(len(decoded)) {
		return nil, fmt.Errorf("LZ4 frame declares %d bytes, got %d", r.Header.Size, len(decoded))
	}
	return decoded, nil
}

// Encode encodes a byte slice with LZ4. The frame records the content size
// and carries block checksums.
func (c *LZ4) Encode(decodedData []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	w.Header = lz4.Header{
		BlockChecksum: true,
		BlockMaxSize:  lz4BlockMaxSize,
		Size:          uint64(len(decodedData)),
	}
	if _, err := w.Write(decodedData); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
