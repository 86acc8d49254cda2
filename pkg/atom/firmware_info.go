// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
)

// FirmwareCapability is ATOM_FIRMWARE_CAPABILITY.
type FirmwareCapability uint16

// Firmware capability bits.
const (
	FirmwareCapabilityFirmwarePosted       FirmwareCapability = 0x0001
	FirmwareCapabilityDualCRTCSupport      FirmwareCapability = 0x0002
	FirmwareCapabilityExtendedDesktop      FirmwareCapability = 0x0004
	FirmwareCapabilityMemoryClockSSSupport FirmwareCapability = 0x0008
	FirmwareCapabilityEngineClockSSSupport FirmwareCapability = 0x0010
	FirmwareCapabilityGPUControlsBL        FirmwareCapability = 0x0020
	FirmwareCapabilityWMISupport           FirmwareCapability = 0x0040
	FirmwareCapabilityPPModeAssigned       FirmwareCapability = 0x0080
)

// threePercentOf10000 is reported when the firmware only tells that a
// clock is spread, but not how much.
const threePercentOf10000 = 300

// FirmwareInfoV1_4 is ATOM_FIRMWARE_INFO_V1_4.
type FirmwareInfoV1_4 struct {
	Header                     CommonHeader
	FirmwareRevision           uint32
	DefaultEngineClock         uint32
	DefaultMemoryClock         uint32
	DriverTargetEngineClock    uint32
	DriverTargetMemoryClock    uint32
	MaxEngineClockPLLOutput    uint32
	MaxMemoryClockPLLOutput    uint32
	MaxPixelClockPLLOutput     uint32
	ASICMaxEngineClock         uint32
	ASICMaxMemoryClock         uint32
	ASICMaxTemperature         uint8
	MinAllowedBLLevel          uint8
	BootUpVDDCVoltage          uint16
	LCDMinPixelClockPLLOutput  uint16
	LCDMaxPixelClockPLLOutput  uint16
	Reserved4                  uint32
	MinPixelClockPLLOutput     uint32
	MinEngineClockPLLInput     uint16
	MaxEngineClockPLLInput     uint16
	MinEngineClockPLLOutput    uint16
	MinMemoryClockPLLInput     uint16
	MaxMemoryClockPLLInput     uint16
	MinMemoryClockPLLOutput    uint16
	MaxPixelClock              uint16
	MinPixelClockPLLInput      uint16
	MaxPixelClockPLLInput      uint16
	MinPixelClockPLLOutputLow  uint16
	FirmwareCapability         FirmwareCapability
	ReferenceClock             uint16
	PMRTSLocation              uint16
	PMRTSStreamSize            uint8
	DesignID                   uint8
	MemoryModuleID             uint8
}

// FirmwareInfoV2_1 is ATOM_FIRMWARE_INFO_V2_1.
type FirmwareInfoV2_1 struct {
	Header                    CommonHeader
	FirmwareRevision          uint32
	DefaultEngineClock        uint32
	DefaultMemoryClock        uint32
	Reserved1                 uint32
	Reserved2                 uint32
	MaxEngineClockPLLOutput   uint32
	MaxMemoryClockPLLOutput   uint32
	MaxPixelClockPLLOutput    uint32
	BinaryAlteredInfo         uint32
	DefaultDispEngineClkFreq  uint32
	Reserved3                 uint8
	MinAllowedBLLevel         uint8
	BootUpVDDCVoltage         uint16
	LCDMinPixelClockPLLOutput uint16
	LCDMaxPixelClockPLLOutput uint16
	Reserved4                 uint32
	MinPixelClockPLLOutput    uint32
	MinEngineClockPLLInput    uint16
	MaxEngineClockPLLInput    uint16
	MinEngineClockPLLOutput   uint16
	MinMemoryClockPLLInput    uint16
	MaxMemoryClockPLLInput    uint16
	MinMemoryClockPLLOutput   uint16
	MaxPixelClock             uint16
	MinPixelClockPLLInput     uint16
	MaxPixelClockPLLInput     uint16
	MinPixelClockPLLOutputLow uint16
	FirmwareCapability        FirmwareCapability
	CoreReferenceClock        uint16
	MemoryReferenceClock      uint16
	UniphyDPModeExtClkFreq    uint16
	MemoryModuleID            uint8
	Reserved5                 [3]uint8
}

// FirmwareInfoV2_2 is ATOM_FIRMWARE_INFO_V2_2.
type FirmwareInfoV2_2 struct {
	Header                    CommonHeader
	FirmwareRevision          uint32
	DefaultEngineClock        uint32
	DefaultMemoryClock        uint32
	SPLLOutputFreq            uint32
	GPUPLLOutputFreq          uint32
	Reserved1                 uint32
	Reserved2                 uint32
	MaxPixelClockPLLOutput    uint32
	BinaryAlteredInfo         uint32
	DefaultDispEngineClkFreq  uint32
	Reserved3                 uint8
	MinAllowedBLLevel         uint8
	BootUpVDDCVoltage         uint16
	LCDMinPixelClockPLLOutput uint16
	LCDMaxPixelClockPLLOutput uint16
	Reserved4                 uint32
	MinPixelClockPLLOutput    uint32
	RemoteDisplayConfig       uint8
	Reserved5                 [3]uint8
	Reserved6                 uint32
	Reserved7                 uint32
	Reserved11                uint16
	MinPixelClockPLLInput     uint16
	MaxPixelClockPLLInput     uint16
	BootUpVDDCIVoltage        uint16
	FirmwareCapability        FirmwareCapability
	CoreReferenceClock        uint16
	MemoryReferenceClock      uint16
	UniphyDPModeExtClkFreq    uint16
	MemoryModuleID            uint8
	CoolingSolutionID         uint8
	ProductBranding           uint8
	Reserved9                 uint8
	BootUpMVDDCVoltage        uint16
	BootUpVDDGFXVoltage       uint16
	Reserved10                [3]uint32
}

// PLLInfo describes the pixel clock PLL. Frequencies are in kHz.
type PLLInfo struct {
	CrystalFrequency            uint32
	MinInputPxlClkPLLFrequency  uint32
	MaxInputPxlClkPLLFrequency  uint32
	MinOutputPxlClkPLLFrequency uint32
	MaxOutputPxlClkPLLFrequency uint32
}

// FirmwareFeature holds the spread percentages of the memory and engine
// clocks in 0.01% units.
type FirmwareFeature struct {
	MemoryClkSSPercentage uint32
	EngineClkSSPercentage uint32
}

// FirmwareInfo is the revision independent content of FirmwareInfo.
// Frequencies are in kHz.
type FirmwareInfo struct {
	Revision                          Revision
	PLL                               PLLInfo
	DefaultDisplayEnginePLLFrequency  uint32
	ExternalClockSourceFrequencyForDP uint32
	MinAllowedBLLevel                 uint8
	RemoteDisplayConfig               uint8
	SMUGPUPLLOutputFreq               uint32
	Feature                           FirmwareFeature
}

// FirmwareInfo decodes the FirmwareInfo data table.
func (p *Parser) FirmwareInfo() (*FirmwareInfo, error) {
	s := p.load()
	offset := uint64(p.dir.Offset(TableFirmwareInfo))
	if offset == 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadBiosTable, &ErrTableAbsent{Table: TableFirmwareInfo})
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return nil, err
	}
	rev := h.Revision()
	var info *FirmwareInfo
	switch rev {
	case Revision{Major: 1, Minor: 4}:
		info, err = p.firmwareInfoV1_4(s, offset)
	case Revision{Major: 2, Minor: 1}:
		info, err = p.firmwareInfoV2_1(s, offset)
	case Revision{Major: 2, Minor: 2}:
		info, err = p.firmwareInfoV2_2(s, offset)
	default:
		return nil, &ErrUnsupportedTableRevision{Table: TableFirmwareInfo, Revision: rev}
	}
	if err != nil {
		return nil, err
	}
	info.Revision = rev
	return info, nil
}

func (p *Parser) firmwareInfoV1_4(s *snapshot, offset uint64) (*FirmwareInfo, error) {
	var raw FirmwareInfoV1_4
	if err := s.img.Read(offset, &raw); err != nil {
		return nil, fmt.Errorf("unable to read %s v1.4: %w", TableFirmwareInfo, err)
	}
	info := &FirmwareInfo{
		PLL: PLLInfo{
			CrystalFrequency:            uint32(raw.ReferenceClock) * 10,
			MinInputPxlClkPLLFrequency:  uint32(raw.MinPixelClockPLLInput) * 10,
			MaxInputPxlClkPLLFrequency:  uint32(raw.MaxPixelClockPLLInput) * 10,
			MinOutputPxlClkPLLFrequency: raw.MinPixelClockPLLOutput * 10,
			MaxOutputPxlClkPLLFrequency: raw.MaxPixelClockPLLOutput * 10,
		},
	}
	if raw.FirmwareCapability&FirmwareCapabilityMemoryClockSSSupport != 0 {
		info.Feature.MemoryClkSSPercentage = threePercentOf10000
	}
	if raw.FirmwareCapability&FirmwareCapabilityEngineClockSSSupport != 0 {
		info.Feature.EngineClkSSPercentage = threePercentOf10000
	}
	return info, nil
}

func (p *Parser) firmwareInfoV2_1(s *snapshot, offset uint64) (*FirmwareInfo, error) {
	var raw FirmwareInfoV2_1
	if err := s.img.Read(offset, &raw); err != nil {
		return nil, fmt.Errorf("unable to read %s v2.1: %w", TableFirmwareInfo, err)
	}
	info := &FirmwareInfo{
		PLL: PLLInfo{
			CrystalFrequency:            uint32(raw.CoreReferenceClock) * 10,
			MinInputPxlClkPLLFrequency:  uint32(raw.MinPixelClockPLLInput) * 10,
			MaxInputPxlClkPLLFrequency:  uint32(raw.MaxPixelClockPLLInput) * 10,
			MinOutputPxlClkPLLFrequency: raw.MinPixelClockPLLOutput * 10,
			MaxOutputPxlClkPLLFrequency: raw.MaxPixelClockPLLOutput * 10,
		},
		DefaultDisplayEnginePLLFrequency:  raw.DefaultDispEngineClkFreq * 10,
		ExternalClockSourceFrequencyForDP: uint32(raw.UniphyDPModeExtClkFreq) * 10,
		MinAllowedBLLevel:                 raw.MinAllowedBLLevel,
	}
	info.Feature = p.clockSSFeature(s, raw.FirmwareCapability)
	return info, nil
}

func (p *Parser) firmwareInfoV2_2(s *snapshot, offset uint64) (*FirmwareInfo, error) {
	var raw FirmwareInfoV2_2
	if err := s.img.Read(offset, &raw); err != nil {
		return nil, fmt.Errorf("unable to read %s v2.2: %w", TableFirmwareInfo, err)
	}
	info := &FirmwareInfo{
		PLL: PLLInfo{
			CrystalFrequency:            uint32(raw.CoreReferenceClock) * 10,
			MinInputPxlClkPLLFrequency:  uint32(raw.MinPixelClockPLLInput) * 10,
			MaxInputPxlClkPLLFrequency:  uint32(raw.MaxPixelClockPLLInput) * 10,
			MinOutputPxlClkPLLFrequency: raw.MinPixelClockPLLOutput * 10,
			MaxOutputPxlClkPLLFrequency: raw.MaxPixelClockPLLOutput * 10,
		},
		DefaultDisplayEnginePLLFrequency:  raw.DefaultDispEngineClkFreq * 10,
		ExternalClockSourceFrequencyForDP: uint32(raw.UniphyDPModeExtClkFreq) * 10,
		MinAllowedBLLevel:                 raw.MinAllowedBLLevel,
		RemoteDisplayConfig:               raw.RemoteDisplayConfig,
		SMUGPUPLLOutputFreq:               raw.GPUPLLOutputFreq * 10,
	}
	info.Feature = p.clockSSFeature(s, raw.FirmwareCapability)
	return info, nil
}

// clockSSFeature reports 3% for a clock the firmware marks as spread and
// falls back to the internal spread spectrum table otherwise. There is at
// most one entry per clock: memory at index 0, engine at index 1.
func (p *Parser) clockSSFeature(s *snapshot, capability FirmwareCapability) FirmwareFeature {
	var f FirmwareFeature
	if capability&FirmwareCapabilityMemoryClockSSSupport != 0 {
		f.MemoryClkSSPercentage = threePercentOf10000
	} else {
		f.MemoryClkSSPercentage = p.internalClockSSPercentage(s, ssIDInternalMemory, 0)
	}
	if capability&FirmwareCapabilityEngineClockSSSupport != 0 {
		f.EngineClkSSPercentage = threePercentOf10000
	} else {
		f.EngineClkSSPercentage = p.internalClockSSPercentage(s, ssIDInternalEngine, 1)
	}
	return f
}

// internalClockSSPercentage only consults ASIC_InternalSS_Info v3.1, the
// only layout carrying per clock entries.
func (p *Parser) internalClockSSPercentage(s *snapshot, id ssID, index uint32) uint32 {
	rev := s.img.RevisionAt(uint64(p.dir.Offset(TableASICInternalSSInfo)))
	if rev != (Revision{Major: 3, Minor: 1}) {
		return 0
	}
	ss, err := p.internalSSInfoV3(s, id, index)
	if err != nil {
		return 0
	}
	if ss.Type.CenterMode {
		// round up half of the table value
		return (ss.Percentage + 1) / 2
	}
	return ss.Percentage
}
