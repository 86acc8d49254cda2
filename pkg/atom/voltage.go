// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
)

// setVoltageInitMode is the v1 and v2 voltage type of the object which
// carries the regulator I2C line.
const setVoltageInitMode = 5

// atomInitVoltageRegulator is the v3 voltage mode of a regulator which is
// initialized over I2C.
const atomInitVoltageRegulator = 3

// voltageLineXOR converts a voltage object I2C line to an I2C id.
const voltageLineXOR = 0x90

// voltageObjectV1 is the head of ATOM_VOLTAGE_OBJECT.
type voltageObjectV1 struct {
	VoltageType           uint8
	Size                  uint8
	VoltageControlID      uint8
	VoltageControlI2CLine uint8
}

// voltageObjectV3 is the head of ATOM_I2C_VOLTAGE_OBJECT_V3.
type voltageObjectV3 struct {
	VoltageType           uint8
	VoltageMode           uint8
	Size                  uint16
	VoltageRegulatorID    uint8
	VoltageControlI2CLine uint8
}

// VoltageDDCInfo returns the I2C line of the voltage regulator. index
// selects the voltage type for the v3.1 table and is ignored otherwise.
func (p *Parser) VoltageDDCInfo(index uint8) (I2CInfo, error) {
	s := p.load()
	offset := uint64(p.dir.Offset(TableVoltageObjectInfo))
	if offset == 0 {
		return I2CInfo{}, &ErrTableAbsent{Table: TableVoltageObjectInfo}
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return I2CInfo{}, err
	}

	var line uint8
	rev := h.Revision()
	switch {
	case rev.Major == 1 || rev.Major == 2:
		line, err = voltageI2CLineV1(s.img, offset, h)
	case rev == (Revision{Major: 3, Minor: 1}):
		line, err = voltageI2CLineV3(s.img, offset, h, index)
	default:
		return I2CInfo{}, &ErrUnsupportedTableRevision{Table: TableVoltageObjectInfo, Revision: rev}
	}
	if err != nil {
		return I2CInfo{}, err
	}
	return p.gpioI2CInfo(s, I2CRecord{I2CID: I2CConfig(line ^ voltageLineXOR)})
}

func voltageI2CLineV1(img *Image, offset uint64, h CommonHeader) (uint8, error) {
	end := offset + uint64(h.StructureSize)
	for cur := offset + commonHeaderSize; cur < end; {
		var obj voltageObjectV1
		if err := img.Read(cur, &obj); err != nil {
			return 0, err
		}
		if obj.VoltageType == setVoltageInitMode {
			return obj.VoltageControlI2CLine, nil
		}
		if obj.Size == 0 {
			break
		}
		cur += uint64(obj.Size)
	}
	return 0, fmt.Errorf("%w: no init mode voltage object", ErrNoRecord)
}

func voltageI2CLineV3(img *Image, offset uint64, h CommonHeader, index uint8) (uint8, error) {
	end := offset + uint64(h.StructureSize)
	for cur := offset + commonHeaderSize; cur < end; {
		var obj voltageObjectV3
		if err := img.Read(cur, &obj); err != nil {
			return 0, err
		}
		if obj.VoltageMode == atomInitVoltageRegulator && obj.VoltageType == index {
			return obj.VoltageControlI2CLine, nil
		}
		if obj.Size == 0 {
			break
		}
		cur += uint64(obj.Size)
	}
	return 0, fmt.Errorf("%w: no I2C voltage regulator of type %d", ErrNoRecord, index)
}

// ThermalDDCInfo returns the line of the I2C id channel.
func (p *Parser) ThermalDDCInfo(channel I2CConfig) (I2CInfo, error) {
	return p.gpioI2CInfo(p.load(), I2CRecord{I2CID: channel})
}
