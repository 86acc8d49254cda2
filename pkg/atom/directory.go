// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"

	"github.com/linuxboot/vbios/pkg/log"
)

// Table is an index into the master data table.
type Table uint8

// Data tables of the ATOM master data table, in slot order.
const (
	TableUtilityPipeLine Table = iota
	TableMultimediaCapabilityInfo
	TableMultimediaConfigInfo
	TableStandardVESATiming
	TableFirmwareInfo
	TablePaletteData
	TableLCDInfo
	TableDIGTransmitterInfo
	TableAnalogTVInfo
	TableSupportedDevicesInfo
	TableGPIOI2CInfo
	TableVRAMUsageByFirmware
	TableGPIOPinLUT
	TableVESAToInternalModeLUT
	TableComponentVideoInfo
	TablePowerPlayInfo
	TableGPUVirtualizationInfo
	TableSaveRestoreInfo
	TableSSInfo
	TableOemInfo
	TableXTMDSInfo
	TableMclkSSInfo
	TableObjectHeader
	TableIndirectIOAccess
	TableMCInitParameter
	TableASICVDDCInfo
	TableASICInternalSSInfo
	TableTVVideoMode
	TableVRAMInfo
	TableMemoryTrainingInfo
	TableIntegratedSystemInfo
	TableASICProfilingInfo
	TableVoltageObjectInfo
	TablePowerSourceInfo
	TableServiceInfo

	numberOfTables
)

// TableLVDSInfo shares its slot with TableLCDInfo.
const TableLVDSInfo = TableLCDInfo

var tableNames = [numberOfTables]string{
	"UtilityPipeLine",
	"MultimediaCapabilityInfo",
	"MultimediaConfigInfo",
	"StandardVESA_Timing",
	"FirmwareInfo",
	"PaletteData",
	"LCD_Info",
	"DIGTransmitterInfo",
	"AnalogTV_Info",
	"SupportedDevicesInfo",
	"GPIO_I2C_Info",
	"VRAM_UsageByFirmware",
	"GPIO_Pin_LUT",
	"VESA_ToInternalModeLUT",
	"ComponentVideoInfo",
	"PowerPlayInfo",
	"GPUVirtualizationInfo",
	"SaveRestoreInfo",
	"SS_Info",
	"OemInfo",
	"XTMDS_Info",
	"MclkSS_Info",
	"Object_Header",
	"IndirectIOAccess",
	"MC_InitParameter",
	"ASIC_VDDC_Info",
	"ASIC_InternalSS_Info",
	"TV_VideoMode",
	"VRAM_Info",
	"MemoryTrainingInfo",
	"IntegratedSystemInfo",
	"ASIC_ProfilingInfo",
	"VoltageObjectInfo",
	"PowerSourceInfo",
	"ServiceInfo",
}

func (t Table) String() string {
	if t >= numberOfTables {
		return fmt.Sprintf("Table(%d)", uint8(t))
	}
	return tableNames[t]
}

// AllTables returns every slot of the master data table.
func AllTables() []Table {
	tables := make([]Table, 0, numberOfTables)
	for t := Table(0); t < numberOfTables; t++ {
		tables = append(tables, t)
	}
	return tables
}

const (
	romHeaderPointerOffset = 0x48
	romHeaderSignature     = "ATOM"
)

// ROMHeader is ATOM_ROM_HEADER.
type ROMHeader struct {
	Header                    CommonHeader
	Signature                 [4]byte
	BiosRuntimeSegmentAddress uint16
	ProtectedModeInfoOffset   uint16
	ConfigFilenameOffset      uint16
	CRCBlockOffset            uint16
	BootupMessageOffset       uint16
	Int10Offset               uint16
	PCIBusDevInitCode         uint16
	IOBaseAddress             uint16
	SubsystemVendorID         uint16
	SubsystemID               uint16
	PCIInfoOffset             uint16
	MasterCommandTableOffset  uint16
	MasterDataTableOffset     uint16
	ExtendedFunctionCode      uint8
	Reserved                  uint8
}

// Directory holds the resolved data table offsets of an image. It is
// populated once and never changes: the patcher only rewrites bytes inside
// the object tables.
type Directory struct {
	ROMHeaderOffset uint16
	ROMHeader       ROMHeader
	MasterRevision  Revision
	offsets         [numberOfTables]uint16
}

// Offset returns the absolute offset of table t, 0 if it is absent.
func (d *Directory) Offset(t Table) uint16 {
	if t >= numberOfTables {
		return 0
	}
	return d.offsets[t]
}

// Tables returns the tables present in the image.
func (d *Directory) Tables() []Table {
	var result []Table
	for _, t := range AllTables() {
		if d.offsets[t] != 0 {
			result = append(result, t)
		}
	}
	return result
}

// ReadDirectory locates the ROM header and the master data table of img.
func ReadDirectory(img *Image, logger log.Logger) (*Directory, error) {
	if logger == nil {
		logger = log.DefaultLogger
	}

	romHeaderOffset, err := img.U16(romHeaderPointerOffset)
	if err != nil {
		return nil, fmt.Errorf("unable to read the ROM header pointer: %w", err)
	}

	d := &Directory{ROMHeaderOffset: romHeaderOffset}
	if err := img.Read(uint64(romHeaderOffset), &d.ROMHeader); err != nil {
		return nil, fmt.Errorf("unable to read the ROM header at 0x%X: %w", romHeaderOffset, err)
	}
	if string(d.ROMHeader.Signature[:]) != romHeaderSignature {
		logger.Warnf("unexpected ROM header signature %q at 0x%X", d.ROMHeader.Signature[:], romHeaderOffset)
	}

	rev := d.ROMHeader.Header.Revision()
	if rev.Major >= 2 && rev.Minor >= 2 {
		return nil, fmt.Errorf("%w: ROM header revision %s is not an ATOM v1 layout", ErrBadBiosTable, rev)
	}

	masterOffset := uint64(d.ROMHeader.MasterDataTableOffset)
	var master struct {
		Header  CommonHeader
		Offsets [numberOfTables]uint16
	}
	if masterOffset == 0 {
		return nil, fmt.Errorf("%w: no master data table", ErrBadBiosTable)
	}
	if err := img.Read(masterOffset, &master); err != nil {
		return nil, fmt.Errorf("unable to read the master data table at 0x%X: %w", masterOffset, err)
	}
	d.MasterRevision = master.Header.Revision()
	d.offsets = master.Offsets

	return d, nil
}
