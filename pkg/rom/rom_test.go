// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rom

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/vbios/pkg/atom"
	"github.com/linuxboot/vbios/pkg/compression"
	"github.com/linuxboot/vbios/pkg/log"
)

const (
	testPCIROffset       = 0x120
	testROMHeaderOffset  = 0x80
	testMasterOffset     = 0xC0
	testBootMessageStart = 0x200
)

type testLogWriter struct {
	tb testing.TB
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.tb.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func put(tb testing.TB, b []byte, offset int, v interface{}) {
	var buf bytes.Buffer
	require.NoError(tb, binary.Write(&buf, binary.LittleEndian, v))
	copy(b[offset:], buf.Bytes())
}

// videoImage builds an ATOM image of size 512-byte units.
func videoImage(tb testing.TB, size int, pcir PCIDataStructure, message []byte) []byte {
	b := make([]byte, size*imageUnit)
	put(tb, b, 0, OptionROMHeader{
		Signature:               OptionROMSignature,
		Size:                    uint8(size),
		PCIDataStructurePointer: testPCIROffset,
	})
	pcir.Signature = PCIDataStructureSignature
	put(tb, b, testPCIROffset, pcir)

	put(tb, b, 0x48, uint16(testROMHeaderOffset))
	put(tb, b, testROMHeaderOffset, atom.ROMHeader{
		Header:                atom.CommonHeader{FormatRevision: 1, ContentRevision: 1},
		Signature:             [4]byte{'A', 'T', 'O', 'M'},
		BootupMessageOffset:   testBootMessageStart,
		MasterDataTableOffset: testMasterOffset,
	})
	copy(b[testBootMessageStart:], message)
	return b
}

func displayPCIR(imageLength uint16, last bool) PCIDataStructure {
	p := PCIDataStructure{
		VendorID:    0x1002,
		DeviceID:    0x6798,
		Length:      uint16(pciDataStructureSize),
		Revision:    3,
		ClassCode:   [3]uint8{0x00, 0x00, 0x03},
		ImageLength: imageLength,
		CodeType:    CodeTypeX86,
	}
	if last {
		p.Indicator = lastImageIndicator
	}
	return p
}

func efiImage(tb testing.TB) []byte {
	b := make([]byte, imageUnit)
	put(tb, b, 0, OptionROMHeader{Signature: OptionROMSignature, Size: 1, PCIDataStructurePointer: 0x40})
	put(tb, b, 0x40, PCIDataStructure{
		Signature:   PCIDataStructureSignature,
		VendorID:    0x1002,
		DeviceID:    0x6798,
		ClassCode:   [3]uint8{0x00, 0x00, 0x03},
		ImageLength: 1,
		CodeType:    CodeTypeEFI,
		Indicator:   lastImageIndicator,
	})
	return b
}

func testDump(tb testing.TB) []byte {
	dump := videoImage(tb, 2, displayPCIR(2, false), []byte("\r\n113-C1234 Radeon\x82\x00garbage"))
	return append(dump, efiImage(tb)...)
}

func TestLoad(t *testing.T) {
	logger := log.New(testLogWriter{tb: t})
	dump := testDump(t)

	r, err := Load(dump, logger)
	require.NoError(t, err)
	require.Empty(t, r.Compression)
	require.Len(t, r.Images, 2)

	require.Equal(t, uint64(0), r.Images[0].Offset)
	require.Len(t, r.Images[0].Data, 1024)
	require.Equal(t, uint16(0x1002), r.Images[0].PCIR.VendorID)
	require.Equal(t, uint16(0x6798), r.Images[0].PCIR.DeviceID)
	require.True(t, r.Images[0].PCIR.IsDisplayController())
	require.False(t, r.Images[0].PCIR.IsLast())

	require.Equal(t, uint64(1024), r.Images[1].Offset)
	require.Equal(t, CodeTypeEFI, r.Images[1].PCIR.CodeType)
	require.True(t, r.Images[1].PCIR.IsLast())

	video, err := r.VideoImage()
	require.NoError(t, err)
	require.Same(t, r.Images[0], video)
}

func TestLoadCompressed(t *testing.T) {
	dump := testDump(t)
	for _, c := range compression.Compressors() {
		t.Run(c.Name(), func(t *testing.T) {
			encoded, err := c.Encode(dump)
			require.NoError(t, err)

			r, err := Load(encoded, log.New(testLogWriter{tb: t}))
			require.NoError(t, err)
			require.Equal(t, c.Name(), r.Compression)
			require.Equal(t, dump, r.Data)
			require.Len(t, r.Images, 2)
		})
	}
}

func TestLoadLeadingData(t *testing.T) {
	dump := append(make([]byte, 2*imageUnit), testDump(t)...)
	r, err := Load(dump, log.New(testLogWriter{tb: t}))
	require.NoError(t, err)
	require.Equal(t, uint64(2*imageUnit), r.Images[0].Offset)
}

func TestLoadErrors(t *testing.T) {
	logger := log.New(testLogWriter{tb: t})

	_, err := Load(make([]byte, 4096), logger)
	require.ErrorIs(t, err, ErrNoImage)

	// the PCI data structure claims more data than the dump has
	truncated := videoImage(t, 2, displayPCIR(8, true), nil)
	_, err = Load(truncated, logger)
	require.Error(t, err)

	// a broken second image is dropped
	dump := append(videoImage(t, 2, displayPCIR(2, false), nil), make([]byte, imageUnit)...)
	r, err := Load(dump, logger)
	require.NoError(t, err)
	require.Len(t, r.Images, 1)
}

func TestVideoImageWithoutPCIR(t *testing.T) {
	r := &ROM{Images: []*Image{{Offset: 0}}}
	img, err := r.VideoImage()
	require.NoError(t, err)
	require.Same(t, r.Images[0], img)

	_, err = (&ROM{}).VideoImage()
	require.ErrorIs(t, err, ErrNoImage)
}

func TestBootMessage(t *testing.T) {
	data := videoImage(t, 2, displayPCIR(2, true), []byte("\r\n113-C1234 Radeon\x82\x00garbage"))
	img, err := atom.NewImage(data)
	require.NoError(t, err)
	dir, err := atom.ReadDirectory(img, log.New(testLogWriter{tb: t}))
	require.NoError(t, err)

	msg, err := BootMessage(img, dir)
	require.NoError(t, err)
	require.Equal(t, "113-C1234 Radeoné", msg)

	dir.ROMHeader.BootupMessageOffset = 0
	_, err = BootMessage(img, dir)
	require.ErrorIs(t, err, atom.ErrNoRecord)

	dir.ROMHeader.BootupMessageOffset = 0x400
	_, err = BootMessage(img, dir)
	require.ErrorIs(t, err, atom.ErrOutOfBounds)
}

func TestCodeTypeString(t *testing.T) {
	require.Equal(t, "EFI", CodeTypeEFI.String())
	require.Equal(t, "CodeType(0x42)", CodeType(0x42).String())
}
