// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rom

import (
	"fmt"
)

// Refer to: PCI Firmware Specification, Revision 3.0, section 5.1

// OptionROMSignature starts every PCI expansion ROM image.
const OptionROMSignature = 0xAA55

// PCIDataStructureSignature is the signature of the PCI data structure.
var PCIDataStructureSignature = [4]byte{'P', 'C', 'I', 'R'}

// imageUnit is the unit of the size fields of an expansion ROM.
const imageUnit = 512

// OptionROMHeader is the legacy expansion ROM header.
type OptionROMHeader struct {
	Signature uint16
	// Size is the initialization size in units of 512 bytes.
	Size                    uint8
	InitEntryPoint          [3]uint8
	Reserved                [18]uint8
	PCIDataStructurePointer uint16
}

// CodeType is the code type of an expansion ROM image.
type CodeType uint8

// Code types.
const (
	CodeTypeX86          CodeType = 0x00
	CodeTypeOpenFirmware CodeType = 0x01
	CodeTypeHPPA         CodeType = 0x02
	CodeTypeEFI          CodeType = 0x03
)

func (t CodeType) String() string {
	switch t {
	case CodeTypeX86:
		return "x86"
	case CodeTypeOpenFirmware:
		return "Open Firmware"
	case CodeTypeHPPA:
		return "HP PA RISC"
	case CodeTypeEFI:
		return "EFI"
	}
	return fmt.Sprintf("CodeType(0x%02X)", uint8(t))
}

// lastImageIndicator marks the last image of a ROM.
const lastImageIndicator = 0x80

// displayControllerClass is the PCI base class of display controllers.
const displayControllerClass = 0x03

// PCIDataStructure is the PCI data structure ("PCIR") of an image.
type PCIDataStructure struct {
	Signature                      [4]byte
	VendorID                       uint16
	DeviceID                       uint16
	DeviceListPointer              uint16
	Length                         uint16
	Revision                       uint8
	ClassCode                      [3]uint8
	ImageLength                    uint16
	CodeRevision                   uint16
	CodeType                       CodeType
	Indicator                      uint8
	MaxRuntimeImageLength          uint16
	ConfigUtilityCodeHeaderPointer uint16
	DMTFCLPEntryPointPointer       uint16
}

// IsLast reports whether this is the last image of the ROM.
func (p *PCIDataStructure) IsLast() bool {
	return p.Indicator&lastImageIndicator != 0
}

// BaseClass returns the PCI base class code.
func (p *PCIDataStructure) BaseClass() uint8 {
	return p.ClassCode[2]
}

// IsDisplayController reports whether the image belongs to a display
// controller.
func (p *PCIDataStructure) IsDisplayController() bool {
	return p.BaseClass() == displayControllerClass
}

// ImageSize returns the size of the image in bytes.
func (p *PCIDataStructure) ImageSize() uint64 {
	return uint64(p.ImageLength) * imageUnit
}
