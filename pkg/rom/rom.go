// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rom locates video BIOS images inside ROM dumps.
//
// A dump may be compressed with any scheme known to pkg/compression and
// may hold several chained expansion ROM images (for example a legacy
// video BIOS followed by an EFI GOP driver).
package rom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/linuxboot/vbios/pkg/atom"
	pkgbytes "github.com/linuxboot/vbios/pkg/bytes"
	"github.com/linuxboot/vbios/pkg/compression"
	"github.com/linuxboot/vbios/pkg/log"
)

// ErrNoImage means the dump holds no expansion ROM image.
var ErrNoImage = errors.New("no expansion ROM image found")

var (
	optionROMHeaderSize  = uint64(binary.Size(OptionROMHeader{}))
	pciDataStructureSize = uint64(binary.Size(PCIDataStructure{}))
)

// Image is a single expansion ROM image of a dump.
type Image struct {
	// Offset is the position of the image in the decompressed dump.
	Offset uint64
	Header OptionROMHeader
	// PCIR is nil if the image has no valid PCI data structure.
	PCIR *PCIDataStructure
	Data []byte
}

// ROM is a decompressed dump together with its images.
type ROM struct {
	// Compression is the name of the detected compression, "" if the dump
	// was not compressed.
	Compression string
	Data        []byte
	Images      []*Image
}

// Load decompresses data if needed and parses the chain of expansion ROM
// images, starting at the first 512-byte aligned 0x55AA signature.
func Load(data []byte, logger log.Logger) (*ROM, error) {
	if logger == nil {
		logger = log.DefaultLogger
	}
	decoded, scheme, err := compression.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress the %s dump: %w", scheme, err)
	}
	r := &ROM{Compression: scheme, Data: decoded}

	start, ok := findFirstImage(decoded)
	if !ok {
		return nil, ErrNoImage
	}
	if start != 0 {
		logger.Warnf("skipped 0x%X bytes before the first expansion ROM image", start)
	}

	for offset := start; offset < uint64(len(decoded)); {
		img, err := parseImage(decoded, offset)
		if err != nil {
			if len(r.Images) == 0 {
				return nil, err
			}
			logger.Warnf("stopping at the image at 0x%X: %v", offset, err)
			break
		}
		r.Images = append(r.Images, img)
		if img.PCIR == nil || img.PCIR.IsLast() {
			break
		}
		offset += uint64(len(img.Data))
	}
	return r, nil
}

func findFirstImage(data []byte) (uint64, bool) {
	for offset := uint64(0); offset+optionROMHeaderSize <= uint64(len(data)); offset += imageUnit {
		if binary.LittleEndian.Uint16(data[offset:]) == OptionROMSignature && data[offset+2] != 0 {
			return offset, true
		}
	}
	return 0, false
}

func parseImage(data []byte, offset uint64) (*Image, error) {
	if err := pkgbytes.CheckRange(uint64(len(data)), pkgbytes.Range{Offset: offset, Length: optionROMHeaderSize}); err != nil {
		return nil, fmt.Errorf("expansion ROM header at 0x%X: %w", offset, err)
	}
	img := &Image{Offset: offset}
	if err := binary.Read(bytes.NewReader(data[offset:]), binary.LittleEndian, &img.Header); err != nil {
		return nil, err
	}
	if img.Header.Signature != OptionROMSignature {
		return nil, fmt.Errorf("incorrect signature at 0x%X: 0x%04X", offset, img.Header.Signature)
	}

	size := uint64(img.Header.Size) * imageUnit
	pcir, err := parsePCIDataStructure(data, offset+uint64(img.Header.PCIDataStructurePointer))
	if err == nil {
		img.PCIR = pcir
		if pcir.ImageLength != 0 {
			size = pcir.ImageSize()
		}
	}
	if size == 0 {
		return nil, fmt.Errorf("image at 0x%X has zero size", offset)
	}
	if err := pkgbytes.CheckRange(uint64(len(data)), pkgbytes.Range{Offset: offset, Length: size}); err != nil {
		return nil, fmt.Errorf("image at 0x%X is truncated: %w", offset, err)
	}
	img.Data = data[offset : offset+size]
	return img, nil
}

func parsePCIDataStructure(data []byte, offset uint64) (*PCIDataStructure, error) {
	if err := pkgbytes.CheckRange(uint64(len(data)), pkgbytes.Range{Offset: offset, Length: pciDataStructureSize}); err != nil {
		return nil, err
	}
	var result PCIDataStructure
	if err := binary.Read(bytes.NewReader(data[offset:]), binary.LittleEndian, &result); err != nil {
		return nil, err
	}
	if result.Signature != PCIDataStructureSignature {
		return nil, fmt.Errorf("incorrect PCI data structure signature: %q", result.Signature[:])
	}
	return &result, nil
}

// VideoImage returns the first x86 image of a display controller. Dumps
// without PCI data structures fall back to the first image.
func (r *ROM) VideoImage() (*Image, error) {
	for _, img := range r.Images {
		if img.PCIR != nil && img.PCIR.IsDisplayController() && img.PCIR.CodeType == CodeTypeX86 {
			return img, nil
		}
	}
	for _, img := range r.Images {
		if img.PCIR == nil {
			return img, nil
		}
	}
	return nil, ErrNoImage
}

// Parser parses the image as an ATOM video BIOS.
func (img *Image) Parser(opts ...atom.Option) (*atom.Parser, error) {
	return atom.New(img.Data, opts...)
}

const maxBootMessageLength = 256

// BootMessage decodes the boot-up message of an ATOM image. The message is
// NUL terminated code page 437 text.
func BootMessage(img *atom.Image, dir *atom.Directory) (string, error) {
	offset := uint64(dir.ROMHeader.BootupMessageOffset)
	if offset == 0 {
		return "", fmt.Errorf("%w: no boot-up message", atom.ErrNoRecord)
	}
	if offset >= img.Size() {
		return "", fmt.Errorf("%w: boot-up message at 0x%X", atom.ErrOutOfBounds, offset)
	}
	length := img.Size() - offset
	if length > maxBootMessageLength {
		length = maxBootMessageLength
	}
	raw, err := img.Slice(offset, length)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	msg, _, err := transform.Bytes(charmap.CodePage437.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("unable to decode the boot-up message: %w", err)
	}
	return strings.TrimSpace(string(msg)), nil
}
