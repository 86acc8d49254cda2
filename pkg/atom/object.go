// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"encoding/binary"
	"fmt"
)

// ObjectHeader is ATOM_OBJECT_HEADER (v1.1) extended with the
// miscellaneous object table offset of ATOM_OBJECT_HEADER_V3 (v1.3).
// All offsets are relative to the Object_Header table.
type ObjectHeader struct {
	Header                      CommonHeader
	DeviceSupport               DeviceSupport
	ConnectorObjectTableOffset  uint16
	RouterObjectTableOffset     uint16
	EncoderObjectTableOffset    uint16
	ProtectionObjectTableOffset uint16
	DisplayPathTableOffset      uint16
}

type objectHeaderV3 struct {
	ObjectHeader
	MiscObjectTableOffset uint16
}

// objectRow is ATOM_OBJECT.
type objectRow struct {
	ObjectID          uint16
	SrcDstTableOffset uint16
	RecordOffset      uint16
	Reserved          uint16
}

var objectRowSize = uint64(binary.Size(objectRow{}))

// objectTableHeaderSize covers ucNumberOfObjects and ucPadding[3].
const objectTableHeaderSize = 4

// objectEntry is a row of an object table together with its location.
type objectEntry struct {
	objectRow
	// Offset is the absolute offset of the row.
	Offset uint64
}

// ID decodes the object id of the row.
func (e objectEntry) ID() ObjectID {
	return ObjectIDFromBIOS(e.ObjectID)
}

// objectGraph resolves graphics objects of one image. It is cheap to
// build and is rebuilt whenever the image is replaced.
type objectGraph struct {
	img      *Image
	base     uint64
	revision Revision
	header   ObjectHeader
	misc     uint16
}

func newObjectGraph(img *Image, base uint64) (*objectGraph, error) {
	if base == 0 {
		return nil, fmt.Errorf("%w: no %s table", ErrBadBiosTable, TableObjectHeader)
	}
	g := &objectGraph{img: img, base: base}
	if err := img.Read(base, &g.header); err != nil {
		return nil, fmt.Errorf("unable to read the object header: %w", err)
	}
	g.revision = g.header.Header.Revision()
	switch {
	case g.revision.Major == 1 && g.revision.Minor >= 3:
		var v3 objectHeaderV3
		if err := img.Read(base, &v3); err != nil {
			return nil, fmt.Errorf("unable to read the v1.3 object header: %w", err)
		}
		g.misc = v3.MiscObjectTableOffset
	case g.revision.Major == 1 && g.revision.Minor >= 1:
	default:
		return nil, &ErrUnsupportedTableRevision{Table: TableObjectHeader, Revision: g.revision}
	}
	return g, nil
}

// tableOffset returns the absolute offset of the object table of kind t.
func (g *objectGraph) tableOffset(t ObjectType) (uint64, bool) {
	var rel uint16
	switch t {
	case ObjectTypeEncoder:
		rel = g.header.EncoderObjectTableOffset
	case ObjectTypeConnector:
		rel = g.header.ConnectorObjectTableOffset
	case ObjectTypeRouter:
		rel = g.header.RouterObjectTableOffset
	case ObjectTypeGeneric:
		if g.revision.Minor < 3 {
			return 0, false
		}
		rel = g.misc
	default:
		return 0, false
	}
	if rel == 0 {
		return 0, false
	}
	return g.base + uint64(rel), true
}

// count returns the number of objects in the table at the absolute offset.
func (g *objectGraph) count(tableOffset uint64) (uint8, error) {
	return g.img.U8(tableOffset)
}

// entry reads the i-th row of the table at the absolute offset.
func (g *objectGraph) entry(tableOffset uint64, i uint8) (objectEntry, error) {
	e := objectEntry{Offset: tableOffset + objectTableHeaderSize + uint64(i)*objectRowSize}
	err := g.img.Read(e.Offset, &e.objectRow)
	return e, err
}

// entries reads every row of the object table of kind t.
func (g *objectGraph) entries(t ObjectType) ([]objectEntry, error) {
	offset, ok := g.tableOffset(t)
	if !ok {
		return nil, nil
	}
	n, err := g.count(offset)
	if err != nil {
		return nil, err
	}
	result := make([]objectEntry, 0, n)
	for i := uint8(0); i < n; i++ {
		e, err := g.entry(offset, i)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// resolve finds the table row of id by a linear scan.
func (g *objectGraph) resolve(id ObjectID) (objectEntry, error) {
	offset, ok := g.tableOffset(id.Type)
	if !ok {
		return objectEntry{}, &ErrObjectNotFound{ID: id}
	}
	n, err := g.count(offset)
	if err != nil {
		return objectEntry{}, err
	}
	for i := uint8(0); i < n; i++ {
		e, err := g.entry(offset, i)
		if err != nil {
			return objectEntry{}, err
		}
		if e.ID() == id {
			return e, nil
		}
	}
	return objectEntry{}, &ErrObjectNotFound{ID: id}
}

// srcListOffset returns the absolute offset of the source list of e.
func (g *objectGraph) srcListOffset(e objectEntry) uint64 {
	return g.base + uint64(e.SrcDstTableOffset)
}

// dstListOffset returns the absolute offset of the destination list of e.
// Both lists share one base: a count byte and that many uint16 source ids,
// then a count byte and the destination ids. This is the only place where
// the destination list position is derived.
func (g *objectGraph) dstListOffset(e objectEntry) (uint64, error) {
	src := g.srcListOffset(e)
	n, err := g.img.U8(src)
	if err != nil {
		return 0, err
	}
	return src + 1 + 2*uint64(n), nil
}

// idList reads a count-prefixed list of BIOS object ids.
func (g *objectGraph) idList(offset uint64) ([]uint16, error) {
	n, err := g.img.U8(offset)
	if err != nil {
		return nil, err
	}
	ids := make([]uint16, n)
	if n == 0 {
		return ids, nil
	}
	if err := g.img.Read(offset+1, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func toObjectIDs(raw []uint16) []ObjectID {
	ids := make([]ObjectID, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, ObjectIDFromBIOS(v))
	}
	return ids
}

// sourceList returns the source objects of e.
func (g *objectGraph) sourceList(e objectEntry) ([]ObjectID, error) {
	raw, err := g.idList(g.srcListOffset(e))
	if err != nil {
		return nil, err
	}
	return toObjectIDs(raw), nil
}

// destinationList returns the destination objects of e.
func (g *objectGraph) destinationList(e objectEntry) ([]ObjectID, error) {
	offset, err := g.dstListOffset(e)
	if err != nil {
		return nil, err
	}
	raw, err := g.idList(offset)
	if err != nil {
		return nil, err
	}
	return toObjectIDs(raw), nil
}

// records returns a stream over the record list of e.
func (g *objectGraph) records(e objectEntry) *RecordStream {
	return newRecordStream(g.img, g.base+uint64(e.RecordOffset))
}

// findRecord returns the first record of type t of e which is at least
// minSize bytes long.
func (g *objectGraph) findRecord(e objectEntry, t RecordType, minSize int) (Record, error) {
	r, ok, err := findRecord(g.img, g.base+uint64(e.RecordOffset), t, minSize)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, &ErrRecordNotFound{Object: e.ID(), RecordType: t}
	}
	return r, nil
}

func (g *objectGraph) i2cRecord(e objectEntry) (I2CRecord, Record, error) {
	var rec I2CRecord
	r, err := g.findRecord(e, RecordTypeI2C, i2cRecordSize)
	if err != nil {
		return rec, r, err
	}
	return rec, r, g.img.Read(r.Offset, &rec)
}

func (g *objectGraph) hpdRecord(e objectEntry) (HPDRecord, Record, error) {
	var rec HPDRecord
	r, err := g.findRecord(e, RecordTypeHPDInt, hpdRecordSize)
	if err != nil {
		return rec, r, err
	}
	return rec, r, g.img.Read(r.Offset, &rec)
}

// deviceTagRecord accepts any device tag record large enough for a single
// tag, as the firmware does.
func (g *objectGraph) deviceTagRecord(e objectEntry) (DeviceTagRecord, error) {
	r, err := g.findRecord(e, RecordTypeConnectorDeviceTag, deviceTagSize)
	if err != nil {
		return DeviceTagRecord{}, err
	}
	return readDeviceTagRecord(g.img, r)
}

func (g *objectGraph) encoderCapRecord(e objectEntry) (EncoderCapRecord, error) {
	var rec EncoderCapRecord
	r, err := g.findRecord(e, RecordTypeEncoderCap, encoderCapSize)
	if err != nil {
		return rec, err
	}
	return rec, g.img.Read(r.Offset, &rec)
}

func (g *objectGraph) hpdPinLUTRecord(e objectEntry) (HPDPinLUTRecord, error) {
	var rec HPDPinLUTRecord
	r, err := g.findRecord(e, RecordTypeConnectorHPDPinLUT, hpdPinLUTSize)
	if err != nil {
		return rec, err
	}
	return rec, g.img.Read(r.Offset, &rec)
}

func (g *objectGraph) auxDDCLUTRecord(e objectEntry) (AuxDDCLUTRecord, error) {
	var rec AuxDDCLUTRecord
	r, err := g.findRecord(e, RecordTypeConnectorAuxDDCLUT, auxDDCLUTSize)
	if err != nil {
		return rec, err
	}
	return rec, g.img.Read(r.Offset, &rec)
}
