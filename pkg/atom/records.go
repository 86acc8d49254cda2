// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"encoding/binary"
	"fmt"
)

// I2CConfig is ATOM_I2C_ID_CONFIG_ACCESS.
type I2CConfig uint8

// LineMux returns the GPIO_I2C_Info line index.
func (c I2CConfig) LineMux() uint8 {
	return uint8(c) & 0x0F
}

// EngineID returns the hardware engine id.
func (c I2CConfig) EngineID() uint8 {
	return (uint8(c) >> 4) & 0x07
}

// HWCapable reports whether the line can be driven by a hardware engine.
func (c I2CConfig) HWCapable() bool {
	return c&0x80 != 0
}

func (c I2CConfig) String() string {
	return fmt.Sprintf("line %d, engine %d, hw %t", c.LineMux(), c.EngineID(), c.HWCapable())
}

// I2CRecord is ATOM_I2C_RECORD.
type I2CRecord struct {
	RecordHeader
	I2CID   I2CConfig
	I2CAddr uint8
}

// HPDRecord is ATOM_HPD_INT_RECORD.
type HPDRecord struct {
	RecordHeader
	HPDIntGPIOID    uint8
	PluggedPinState uint8
}

// DeviceTag is ATOM_CONNECTOR_DEVICE_TAG.
type DeviceTag struct {
	ACPIDeviceEnum uint32
	DeviceID       DeviceSupport
	Padding        uint16
}

type deviceTagRecordHeader struct {
	RecordHeader
	NumberOfDevice uint8
	Reserved       uint8
}

// DeviceTagRecord is ATOM_CONNECTOR_DEVICE_TAG_RECORD. Tags holds exactly
// NumberOfDevice entries.
type DeviceTagRecord struct {
	Record
	NumberOfDevice uint8
	Tags           []DeviceTag
}

// EncoderCapRecord is ATOM_ENCODER_CAP_RECORD_V2.
type EncoderCapRecord struct {
	RecordHeader
	EncoderCap uint16
}

// Encoder capability bits.
const (
	EncoderCapMSTEn    = 0x0001
	EncoderCapHBR2En   = 0x0002
	EncoderCapHDMI6GEn = 0x0004
	EncoderCapHBR3En   = 0x0008
)

// Number of entries of the external connector LUT records.
const (
	MaxExtHPDPinLUTEntries = 8
	MaxExtAuxDDCLUTEntries = 8
)

// HPDPinLUTRecord is ATOM_CONNECTOR_HPDPIN_LUT_RECORD.
type HPDPinLUTRecord struct {
	RecordHeader
	HPDPinMap [MaxExtHPDPinLUTEntries]uint8
}

// AuxDDCLUTRecord is ATOM_CONNECTOR_AUXDDC_LUT_RECORD.
type AuxDDCLUTRecord struct {
	RecordHeader
	AuxDDCMap [MaxExtAuxDDCLUTEntries]I2CConfig
}

// Minimal sizes a record must declare to be interpreted.
var (
	i2cRecordSize       = binary.Size(I2CRecord{})
	hpdRecordSize       = binary.Size(HPDRecord{})
	deviceTagSize       = binary.Size(DeviceTag{})
	deviceTagHeaderSize = binary.Size(deviceTagRecordHeader{})
	encoderCapSize      = binary.Size(EncoderCapRecord{})
	hpdPinLUTSize       = binary.Size(HPDPinLUTRecord{})
	auxDDCLUTSize       = binary.Size(AuxDDCLUTRecord{})
)

// readDeviceTagRecord decodes the device tag record r. The number of tags
// is bounded by the count field only.
func readDeviceTagRecord(img *Image, r Record) (DeviceTagRecord, error) {
	var h deviceTagRecordHeader
	if err := img.Read(r.Offset, &h); err != nil {
		return DeviceTagRecord{}, err
	}
	result := DeviceTagRecord{
		Record:         r,
		NumberOfDevice: h.NumberOfDevice,
		Tags:           make([]DeviceTag, h.NumberOfDevice),
	}
	if len(result.Tags) == 0 {
		return result, nil
	}
	if err := img.Read(r.Offset+uint64(deviceTagHeaderSize), result.Tags); err != nil {
		return DeviceTagRecord{}, err
	}
	return result, nil
}

// tagOffset returns the offset of the i-th device tag of the record.
func (r DeviceTagRecord) tagOffset(i uint8) uint64 {
	return r.Offset + uint64(deviceTagHeaderSize) + uint64(i)*uint64(deviceTagSize)
}

// capacity returns how many tags fit into the declared record size.
func (r DeviceTagRecord) capacity() uint8 {
	if int(r.Size) < deviceTagHeaderSize {
		return 0
	}
	return uint8((int(r.Size) - deviceTagHeaderSize) / deviceTagSize)
}
