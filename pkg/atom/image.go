// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"bytes"
	"encoding/binary"
	"fmt"

	pkgbytes "github.com/linuxboot/vbios/pkg/bytes"
)

const (
	imageSizeOffset = 2
	imageSizeUnit   = 512
)

// Image is an immutable video BIOS image. Every read is bounds checked
// before the bytes are interpreted.
type Image struct {
	data []byte
}

// NewImage copies the first data[2]*512 bytes of data into a new Image.
func NewImage(data []byte) (*Image, error) {
	if len(data) <= imageSizeOffset {
		return nil, fmt.Errorf("%w: image is too short: %d bytes", ErrBadInput, len(data))
	}
	size := uint64(data[imageSizeOffset]) * imageSizeUnit
	if size == 0 {
		return nil, fmt.Errorf("%w: image declares zero size", ErrBadInput)
	}
	if size > uint64(len(data)) {
		return nil, fmt.Errorf("%w: image declares 0x%X bytes, but only 0x%X are available",
			ErrBadInput, size, len(data))
	}
	return newImageFromBytes(append([]byte{}, data[:size]...)), nil
}

// newImageFromBytes takes ownership of b.
func newImageFromBytes(b []byte) *Image {
	return &Image{data: b}
}

// Size returns the image size in bytes.
func (img *Image) Size() uint64 {
	return uint64(len(img.data))
}

// Bytes returns a copy of the image.
func (img *Image) Bytes() []byte {
	return img.clone()
}

func (img *Image) clone() []byte {
	return append([]byte{}, img.data...)
}

func (img *Image) check(offset, length uint64) error {
	r := pkgbytes.Range{Offset: offset, Length: length}
	if err := pkgbytes.CheckRange(img.Size(), r); err != nil {
		return &ErrReadOutOfBounds{Range: r, ImageSize: img.Size(), Err: err}
	}
	return nil
}

// Read decodes the little-endian fixed-size value v at offset.
func (img *Image) Read(offset uint64, v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		return fmt.Errorf("%w: %T has no fixed size", ErrBadInput, v)
	}
	if err := img.check(offset, uint64(size)); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(img.data[offset:offset+uint64(size)]), binary.LittleEndian, v)
}

// Slice returns a copy of length bytes at offset.
func (img *Image) Slice(offset, length uint64) ([]byte, error) {
	if err := img.check(offset, length); err != nil {
		return nil, err
	}
	return append([]byte{}, img.data[offset:offset+length]...), nil
}

// U8 reads a byte at offset.
func (img *Image) U8(offset uint64) (uint8, error) {
	if err := img.check(offset, 1); err != nil {
		return 0, err
	}
	return img.data[offset], nil
}

// U16 reads a little-endian uint16 at offset.
func (img *Image) U16(offset uint64) (uint16, error) {
	if err := img.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(img.data[offset:]), nil
}

// U32 reads a little-endian uint32 at offset.
func (img *Image) U32(offset uint64) (uint32, error) {
	if err := img.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(img.data[offset:]), nil
}
