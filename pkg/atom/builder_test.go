// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/vbios/pkg/log"
)

const (
	testImageSize       = 0x2000
	testROMHeaderOffset = 0x80
	testMasterOffset    = 0xC0
	testFirstFreeOffset = 0x120
)

// imageBuilder assembles synthetic video BIOS images.
type imageBuilder struct {
	tb     testing.TB
	data   []byte
	next   uint64
	tables [numberOfTables]uint16
	romRev Revision
}

func newImageBuilder(tb testing.TB) *imageBuilder {
	return &imageBuilder{
		tb:     tb,
		data:   make([]byte, testImageSize),
		next:   testFirstFreeOffset,
		romRev: Revision{Major: 1, Minor: 1},
	}
}

func mustEncode(v interface{}) []byte {
	if raw, ok := v.([]byte); ok {
		return raw
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (b *imageBuilder) put(offset uint64, v interface{}) {
	raw := mustEncode(v)
	require.LessOrEqual(b.tb, offset+uint64(len(raw)), uint64(len(b.data)))
	copy(b.data[offset:], raw)
}

// alloc places v at the next free 4-byte aligned offset.
func (b *imageBuilder) alloc(v interface{}) uint64 {
	raw := mustEncode(v)
	offset := b.next
	b.put(offset, raw)
	b.next = (offset + uint64(len(raw)) + 3) &^ 3
	return offset
}

// table places a data table with a common header and registers it in the
// master data table.
func (b *imageBuilder) table(t Table, rev Revision, body ...interface{}) uint64 {
	var raw []byte
	for _, v := range body {
		raw = append(raw, mustEncode(v)...)
	}
	h := CommonHeader{
		StructureSize:   uint16(binary.Size(CommonHeader{}) + len(raw)),
		FormatRevision:  rev.Major,
		ContentRevision: rev.Minor,
	}
	offset := b.alloc(append(mustEncode(h), raw...))
	b.tables[t] = uint16(offset)
	return offset
}

// rawTable places a table which already carries its header.
func (b *imageBuilder) rawTable(t Table, v interface{}) uint64 {
	offset := b.alloc(v)
	b.tables[t] = uint16(offset)
	return offset
}

// fixedTable places a table whose layout starts with the common header.
// The header of v is replaced by one matching its encoded size.
func (b *imageBuilder) fixedTable(t Table, rev Revision, v interface{}) uint64 {
	raw := append([]byte{}, mustEncode(v)...)
	h := CommonHeader{
		StructureSize:   uint16(len(raw)),
		FormatRevision:  rev.Major,
		ContentRevision: rev.Minor,
	}
	copy(raw, mustEncode(h))
	return b.rawTable(t, raw)
}

// emptyObjects places an object header without object tables, which is
// enough for New to succeed.
func (b *imageBuilder) emptyObjects() {
	b.objects(Revision{Major: 1, Minor: 1}, 0, nil, nil, nil)
}

func (b *imageBuilder) bytes() []byte {
	data := append([]byte{}, b.data...)
	data[0], data[1] = 0x55, 0xAA
	data[imageSizeOffset] = testImageSize / imageSizeUnit
	binary.LittleEndian.PutUint16(data[romHeaderPointerOffset:], testROMHeaderOffset)

	rom := ROMHeader{
		Header: CommonHeader{
			StructureSize:   uint16(binary.Size(ROMHeader{})),
			FormatRevision:  b.romRev.Major,
			ContentRevision: b.romRev.Minor,
		},
		Signature:             [4]byte{'A', 'T', 'O', 'M'},
		MasterDataTableOffset: testMasterOffset,
	}
	copy(data[testROMHeaderOffset:], mustEncode(rom))

	master := struct {
		Header  CommonHeader
		Offsets [numberOfTables]uint16
	}{
		Header:  CommonHeader{FormatRevision: 1, ContentRevision: 1},
		Offsets: b.tables,
	}
	master.Header.StructureSize = uint16(binary.Size(master))
	copy(data[testMasterOffset:], mustEncode(master))
	return data
}

func (b *imageBuilder) parser(opts ...Option) *Parser {
	p, err := New(b.bytes(), append([]Option{WithLogger(newTestLogger(b.tb))}, opts...)...)
	require.NoError(b.tb, err)
	return p
}

type testLogWriter struct {
	tb testing.TB
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.tb.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func newTestLogger(tb testing.TB) log.Logger {
	return log.New(testLogWriter{tb: tb})
}

// testObject is a row of an object table together with its lists and
// records.
type testObject struct {
	id      ObjectID
	src     []ObjectID
	dst     []ObjectID
	records [][]byte
}

func idListBytes(ids []ObjectID) []byte {
	raw := []byte{uint8(len(ids))}
	for _, id := range ids {
		raw = binary.LittleEndian.AppendUint16(raw, id.BIOS())
	}
	return raw
}

// objects places an Object_Header table. The generic table is only written
// for revisions with a misc table.
func (b *imageBuilder) objects(rev Revision, support DeviceSupport, connectors, encoders, generics []testObject) uint64 {
	headerSize := binary.Size(ObjectHeader{})
	if rev.Major == 1 && rev.Minor >= 3 {
		headerSize = binary.Size(objectHeaderV3{})
	} else {
		require.Empty(b.tb, generics)
	}

	blob := make([]byte, headerSize)
	groups := [][]testObject{connectors, encoders, generics}
	var tableOffsets [3]uint16
	for gi, objs := range groups {
		if objs == nil {
			continue
		}
		tableOffsets[gi] = uint16(len(blob))
		blob = append(blob, uint8(len(objs)), 0, 0, 0)
		blob = append(blob, make([]byte, len(objs)*int(objectRowSize))...)
	}
	for gi, objs := range groups {
		for i, o := range objs {
			row := int(tableOffsets[gi]) + objectTableHeaderSize + i*int(objectRowSize)
			lists := len(blob)
			blob = append(blob, idListBytes(o.src)...)
			blob = append(blob, idListBytes(o.dst)...)
			records := len(blob)
			for _, r := range o.records {
				blob = append(blob, r...)
			}
			blob = append(blob, byte(RecordTypeLast), 0)

			binary.LittleEndian.PutUint16(blob[row:], o.id.BIOS())
			binary.LittleEndian.PutUint16(blob[row+2:], uint16(lists))
			binary.LittleEndian.PutUint16(blob[row+4:], uint16(records))
		}
	}

	h := objectHeaderV3{
		ObjectHeader: ObjectHeader{
			Header: CommonHeader{
				StructureSize:   uint16(len(blob)),
				FormatRevision:  rev.Major,
				ContentRevision: rev.Minor,
			},
			DeviceSupport:              support,
			ConnectorObjectTableOffset: tableOffsets[0],
			EncoderObjectTableOffset:   tableOffsets[1],
		},
		MiscObjectTableOffset: tableOffsets[2],
	}
	copy(blob, mustEncode(h)[:headerSize])
	return b.rawTable(TableObjectHeader, blob)
}

// record encodes a record of type t with a correct size field.
func record(t RecordType, payload ...interface{}) []byte {
	raw := []byte{byte(t), 0}
	for _, v := range payload {
		raw = append(raw, mustEncode(v)...)
	}
	raw[1] = byte(len(raw))
	return raw
}

func i2cRecordBytes(id I2CConfig, addr uint8) []byte {
	return record(RecordTypeI2C, id, addr)
}

func hpdRecordBytes(gpioID, pluggedState uint8) []byte {
	return record(RecordTypeHPDInt, gpioID, pluggedState)
}

// deviceTagRecordBytes reserves room for capacity tags.
func deviceTagRecordBytes(capacity int, tags ...DeviceTag) []byte {
	room := make([]DeviceTag, capacity)
	copy(room, tags)
	return record(RecordTypeConnectorDeviceTag, uint8(len(tags)), uint8(0), room)
}

func hpdPinLUTRecordBytes(lut [MaxExtHPDPinLUTEntries]uint8) []byte {
	return record(RecordTypeConnectorHPDPinLUT, lut)
}

func auxDDCLUTRecordBytes(lut [MaxExtAuxDDCLUTEntries]I2CConfig) []byte {
	return record(RecordTypeConnectorAuxDDCLUT, lut)
}

func encoderCapRecordBytes(caps uint16) []byte {
	return record(RecordTypeEncoderCap, caps)
}

// gpioI2CTable places GPIO_I2C_Info with one line per assignment.
func (b *imageBuilder) gpioI2CTable(lines ...GPIOI2CAssignment) uint64 {
	return b.table(TableGPIOI2CInfo, Revision{Major: 1, Minor: 1}, lines)
}

func connector(id uint8, enum uint8) ObjectID {
	return ObjectID{Type: ObjectTypeConnector, ID: id, Enum: enum}
}

func encoder(id uint8, enum uint8) ObjectID {
	return ObjectID{Type: ObjectTypeEncoder, ID: id, Enum: enum}
}
