// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"encoding/binary"
	"fmt"
)

// GPIOI2CAssignment is ATOM_GPIO_I2C_ASSIGMENT, one line of GPIO_I2C_Info.
type GPIOI2CAssignment struct {
	ClkMaskRegisterIndex  uint16
	ClkEnRegisterIndex    uint16
	ClkYRegisterIndex     uint16
	ClkARegisterIndex     uint16
	DataMaskRegisterIndex uint16
	DataEnRegisterIndex   uint16
	DataYRegisterIndex    uint16
	DataARegisterIndex    uint16
	I2CID                 I2CConfig
	ClkMaskShift          uint8
	ClkEnShift            uint8
	ClkYShift             uint8
	ClkAShift             uint8
	DataMaskShift         uint8
	DataEnShift           uint8
	DataYShift            uint8
	DataAShift            uint8
	Reserved1             uint8
	Reserved2             uint8
}

var gpioI2CAssignmentSize = uint64(binary.Size(GPIOI2CAssignment{}))

// commonHeaderSize is the size of ATOM_COMMON_TABLE_HEADER.
var commonHeaderSize = uint64(binary.Size(CommonHeader{}))

// GPIORegisters is the register set driving an I2C line.
type GPIORegisters struct {
	ClkMaskRegisterIndex  uint32
	ClkEnRegisterIndex    uint32
	ClkYRegisterIndex     uint32
	ClkARegisterIndex     uint32
	DataMaskRegisterIndex uint32
	DataEnRegisterIndex   uint32
	DataYRegisterIndex    uint32
	DataARegisterIndex    uint32

	ClkMaskShift  uint32
	ClkEnShift    uint32
	ClkYShift     uint32
	ClkAShift     uint32
	DataMaskShift uint32
	DataEnShift   uint32
	DataYShift    uint32
	DataAShift    uint32
}

// I2CInfo describes an I2C line of a graphics object.
type I2CInfo struct {
	HWAssist     bool
	Line         uint8
	EngineID     uint8
	SlaveAddress uint8
	GPIO         GPIORegisters
}

// gpioI2CInfo resolves the line of an I2C record through GPIO_I2C_Info.
func (p *Parser) gpioI2CInfo(s *snapshot, rec I2CRecord) (I2CInfo, error) {
	offset := uint64(p.dir.Offset(TableGPIOI2CInfo))
	if offset == 0 {
		return I2CInfo{}, fmt.Errorf("%w: %v", ErrBadBiosTable, &ErrTableAbsent{Table: TableGPIOI2CInfo})
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return I2CInfo{}, fmt.Errorf("%w: %v", ErrBadBiosTable, err)
	}
	if uint64(h.StructureSize) < commonHeaderSize+gpioI2CAssignmentSize {
		return I2CInfo{}, fmt.Errorf("%w: %s is too small: %d bytes", ErrBadBiosTable, TableGPIOI2CInfo, h.StructureSize)
	}
	if h.ContentRevision != 1 {
		return I2CInfo{}, &ErrUnsupportedTableRevision{Table: TableGPIOI2CInfo, Revision: h.Revision()}
	}
	count := (uint64(h.StructureSize) - commonHeaderSize) / gpioI2CAssignmentSize
	line := rec.I2CID.LineMux()
	if uint64(line) >= count {
		return I2CInfo{}, fmt.Errorf("%w: I2C line %d is out of %d lines", ErrBadBiosTable, line, count)
	}

	var a GPIOI2CAssignment
	if err := s.img.Read(offset+commonHeaderSize+uint64(line)*gpioI2CAssignmentSize, &a); err != nil {
		return I2CInfo{}, err
	}
	return I2CInfo{
		HWAssist:     rec.I2CID.HWCapable(),
		Line:         line,
		EngineID:     rec.I2CID.EngineID(),
		SlaveAddress: rec.I2CAddr,
		GPIO: GPIORegisters{
			ClkMaskRegisterIndex:  uint32(a.ClkMaskRegisterIndex),
			ClkEnRegisterIndex:    uint32(a.ClkEnRegisterIndex),
			ClkYRegisterIndex:     uint32(a.ClkYRegisterIndex),
			ClkARegisterIndex:     uint32(a.ClkARegisterIndex),
			DataMaskRegisterIndex: uint32(a.DataMaskRegisterIndex),
			DataEnRegisterIndex:   uint32(a.DataEnRegisterIndex),
			DataYRegisterIndex:    uint32(a.DataYRegisterIndex),
			DataARegisterIndex:    uint32(a.DataARegisterIndex),
			ClkMaskShift:          uint32(a.ClkMaskShift),
			ClkEnShift:            uint32(a.ClkEnShift),
			ClkYShift:             uint32(a.ClkYShift),
			ClkAShift:             uint32(a.ClkAShift),
			DataMaskShift:         uint32(a.DataMaskShift),
			DataEnShift:           uint32(a.DataEnShift),
			DataYShift:            uint32(a.DataYShift),
			DataAShift:            uint32(a.DataAShift),
		},
	}, nil
}

// GPIOPinAssignment is ATOM_GPIO_PIN_ASSIGNMENT.
type GPIOPinAssignment struct {
	GPIOPinAIndex   uint16
	GPIOPinBitShift uint8
	GPIOID          uint8
}

var gpioPinAssignmentSize = uint64(binary.Size(GPIOPinAssignment{}))

// GPIOPinInfo holds the register offsets and masks of a GPIO pin.
type GPIOPinInfo struct {
	Offset     uint32
	OffsetY    uint32
	OffsetEn   uint32
	OffsetMask uint32

	Mask     uint32
	MaskY    uint32
	MaskEn   uint32
	MaskMask uint32
}

// GPIOPinInfo looks up the pin gpioID in GPIO_Pin_LUT.
func (p *Parser) GPIOPinInfo(gpioID uint8) (GPIOPinInfo, error) {
	s := p.load()
	offset := uint64(p.dir.Offset(TableGPIOPinLUT))
	if offset == 0 {
		return GPIOPinInfo{}, fmt.Errorf("%w: %v", ErrBadBiosTable, &ErrTableAbsent{Table: TableGPIOPinLUT})
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return GPIOPinInfo{}, fmt.Errorf("%w: %v", ErrBadBiosTable, err)
	}
	if uint64(h.StructureSize) < commonHeaderSize+gpioPinAssignmentSize {
		return GPIOPinInfo{}, fmt.Errorf("%w: %s is too small: %d bytes", ErrBadBiosTable, TableGPIOPinLUT, h.StructureSize)
	}
	if h.ContentRevision != 1 {
		return GPIOPinInfo{}, &ErrUnsupportedTableRevision{Table: TableGPIOPinLUT, Revision: h.Revision()}
	}

	count := (uint64(h.StructureSize) - commonHeaderSize) / gpioPinAssignmentSize
	for i := uint64(0); i < count; i++ {
		var a GPIOPinAssignment
		if err := s.img.Read(offset+commonHeaderSize+i*gpioPinAssignmentSize, &a); err != nil {
			return GPIOPinInfo{}, err
		}
		if a.GPIOID != gpioID {
			continue
		}
		info := GPIOPinInfo{Offset: uint32(a.GPIOPinAIndex)}
		info.OffsetY = info.Offset + 2
		info.OffsetEn = info.Offset + 1
		info.OffsetMask = info.Offset - 1

		info.Mask = 1 << a.GPIOPinBitShift
		info.MaskY = info.Mask + 2
		info.MaskEn = info.Mask + 1
		info.MaskMask = info.Mask - 1
		return info, nil
	}
	return GPIOPinInfo{}, fmt.Errorf("%w: GPIO pin %d", ErrNoRecord, gpioID)
}
