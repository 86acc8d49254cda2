// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
	"sort"
)

// Sizes of the IntegratedSystemInfo lists.
const (
	NumberOfDispClkVoltage = 4
	NumberOfAvailableSClk  = 5
	NumberOfNBPStates      = 4
)

// ClkVoltCapability is ATOM_CLK_VOLT_CAPABILITY.
type ClkVoltCapability struct {
	VoltageIndex          uint32
	MaximumSupportedClock uint32
}

// ClkVoltCapabilityV2 is ATOM_CLK_VOLT_CAPABILITY_V2.
type ClkVoltCapabilityV2 struct {
	VoltageLevel          uint16
	MaximumSupportedClock uint32
}

// AvailableSClkList is ATOM_AVAILABLE_SCLK_LIST.
type AvailableSClkList struct {
	SupportedSClk uint32
	VoltageIndex  uint16
	VoltageID     uint16
}

// IntegratedSystemInfoV1_8 is ATOM_INTEGRATED_SYSTEM_INFO_V1_8.
type IntegratedSystemInfoV1_8 struct {
	Header                         CommonHeader
	BootUpEngineClock              uint32
	DentistVCOFreq                 uint32
	BootUpUMAClock                 uint32
	DispClkVoltage                 [NumberOfDispClkVoltage]ClkVoltCapability
	BootUpReqDisplayVector         uint32
	VBIOSMisc                      uint32
	GPUCapInfo                     uint32
	DispClk2Freq                   uint32
	RequestedPWMFreqInHz           uint16
	HtcTmpLmt                      uint8
	HtcHystLmt                     uint8
	Reserved2                      uint32
	SystemConfig                   uint32
	CPUCapInfo                     uint32
	Reserved3                      uint32
	GPUReservedSysMemSize          uint16
	ExtDispConnInfoOffset          uint16
	PanelRefreshRateRange          uint16
	MemoryType                     uint8
	UMAChannelNumber               uint8
	VBIOSMsg                       [40]uint8
	TDPConfig                      uint32
	Reserved                       [19]uint32
	AvailSClk                      [NumberOfAvailableSClk]AvailableSClkList
	GMCRestoreResetTime            uint32
	MinimumNClk                    uint32
	IdleNClk                       uint32
	DDRDLLPowerUpTime              uint32
	DDRPLLPowerUpTime              uint32
	PCIEClkSSPercentage            uint16
	PCIEClkSSType                  uint16
	LVDSSSPercentage               uint16
	LVDSSSpreadRateIn10Hz          uint16
	HDMISSPercentage               uint16
	HDMISSpreadRateIn10Hz          uint16
	DVISSPercentage                uint16
	DVISSpreadRateIn10Hz           uint16
	GPUReservedSysMemBaseAddrLo    uint32
	GPUReservedSysMemBaseAddrHi    uint32
	DispClk5Voltage                ClkVoltCapability
	Reserved5                      uint32
	MaxLVDSPclkFreqInSingleLink    uint16
	LVDSMisc                       uint8
	TravisLVDSVolAdjust            uint8
	LVDSPwrOnSeqDIGONtoDEIn4Ms     uint8
	LVDSPwrOnSeqDEtoVARYBLIn4Ms    uint8
	LVDSPwrOffSeqVARYBLtoDEIn4Ms   uint8
	LVDSPwrOffSeqDEtoDIGONIn4Ms    uint8
	LVDSOffToOnDelayIn4Ms          uint8
	LVDSPwrOnSeqVARYBLtoBLONIn4Ms  uint8
	LVDSPwrOffSeqBLONtoVARYBLIn4Ms uint8
	MinAllowedBLLevel              uint8
	LCDBitDepthControlVal          uint32
	NBPStateMemclkFreq             [NumberOfNBPStates]uint32
	NBP2Voltage                    uint16
	NBP3Voltage                    uint16
	NBPStateNClkFreq               [NumberOfNBPStates]uint32
	NBDPMEnable                    uint8
	Reserved6                      [3]uint8
	DPMState0VclkFid               uint8
	DPMState0DclkFid               uint8
	DPMState1VclkFid               uint8
	DPMState1DclkFid               uint8
	BootUpNBVoltage                uint16
	Reserved7                      uint16
	ExtDispConnInfo                ExtDisplayConnectionInfo
}

// HDMIRetimerRedriverSet is ATOM_HDMI_RETIMER_REDRIVER_SET.
type HDMIRetimerRedriverSet struct {
	I2CRegIndex uint8
	I2CRegVal   uint8
}

// IntegratedSystemInfoV1_9 is ATOM_INTEGRATED_SYSTEM_INFO_V1_9.
type IntegratedSystemInfoV1_9 struct {
	Header                         CommonHeader
	BootUpEngineClock              uint32
	DentistVCOFreq                 uint32
	BootUpUMAClock                 uint32
	DispClkVoltage                 [NumberOfDispClkVoltage]ClkVoltCapability
	BootUpReqDisplayVector         uint32
	VBIOSMisc                      uint32
	GPUCapInfo                     uint32
	DispClk2Freq                   uint32
	RequestedPWMFreqInHz           uint16
	HtcTmpLmt                      uint8
	HtcHystLmt                     uint8
	Reserved2                      uint32
	SystemConfig                   uint32
	CPUCapInfo                     uint32
	Reserved3                      uint32
	GPUReservedSysMemSize          uint16
	ExtDispConnInfoOffset          uint16
	PanelRefreshRateRange          uint16
	MemoryType                     uint8
	UMAChannelNumber               uint8
	VBIOSMsg                       [40]uint8
	TDPConfig                      uint32
	ExtHDMIReDrvSlvAddr            uint8
	ExtHDMIReDrvRegNum             uint8
	ExtHDMIRegSetting              [9]HDMIRetimerRedriverSet
	Reserved                       [2]uint32
	DispClkVoltageMapping          [8]ClkVoltCapabilityV2
	AvailSClk                      [NumberOfAvailableSClk]AvailableSClkList
	GMCRestoreResetTime            uint32
	IdleNClk                       uint32
	DDRDLLPowerUpTime              uint32
	DDRPLLPowerUpTime              uint32
	PCIEClkSSPercentage            uint16
	PCIEClkSSType                  uint16
	LVDSSSPercentage               uint16
	LVDSSSpreadRateIn10Hz          uint16
	HDMISSPercentage               uint16
	HDMISSpreadRateIn10Hz          uint16
	DVISSPercentage                uint16
	DVISSpreadRateIn10Hz           uint16
	GPUReservedSysMemBaseAddrLo    uint32
	GPUReservedSysMemBaseAddrHi    uint32
	Reserved5                      [3]uint32
	MaxLVDSPclkFreqInSingleLink    uint16
	LVDSMisc                       uint8
	TravisLVDSVolAdjust            uint8
	LVDSPwrOnSeqDIGONtoDEIn4Ms     uint8
	LVDSPwrOnSeqDEtoVARYBLIn4Ms    uint8
	LVDSPwrOffSeqVARYBLtoDEIn4Ms   uint8
	LVDSPwrOffSeqDEtoDIGONIn4Ms    uint8
	LVDSOffToOnDelayIn4Ms          uint8
	LVDSPwrOnSeqVARYBLtoBLONIn4Ms  uint8
	LVDSPwrOffSeqBLONtoVARYBLIn4Ms uint8
	MinAllowedBLLevel              uint8
	LCDBitDepthControlVal          uint32
	NBPStateMemclkFreq             [NumberOfNBPStates]uint32
	PSPVersion                     uint32
	NBPStateNClkFreq               [NumberOfNBPStates]uint32
	NBPStateVoltage                [NumberOfNBPStates]uint16
	BootUpNBVoltage                uint16
	EDPv14VSMode                   uint8
	Reserved6                      uint8
	ExtDispConnInfo                ExtDisplayConnectionInfo
}

// ClockVoltage is a display clock level. MaxSupportedClock is in kHz.
type ClockVoltage struct {
	MaxSupportedClock uint32
	VoltageIndex      uint32
}

// AvailableSClk is a system clock level. SupportedSClk is in kHz.
type AvailableSClk struct {
	SupportedSClk uint32
	VoltageIndex  uint16
	VoltageID     uint16
}

// LVDSPowerSequence holds the LVDS power sequencing delays in 4 ms units.
type LVDSPowerSequence struct {
	OnDIGONtoDE     uint8
	OnDEtoVARYBL    uint8
	OnVARYBLtoBLON  uint8
	OffVARYBLtoDE   uint8
	OffDEtoDIGON    uint8
	OffBLONtoVARYBL uint8
	OffToOnDelay    uint8
}

// IntegratedInfo is the revision independent content of
// IntegratedSystemInfo. Clocks are in kHz unless noted otherwise.
type IntegratedInfo struct {
	Revision          Revision
	BootUpEngineClock uint32
	DentistVCOFreq    uint32
	BootUpUMAClock    uint32
	// DispClkVoltage is sorted by MaxSupportedClock, lowest first.
	DispClkVoltage         [NumberOfDispClkVoltage]ClockVoltage
	BootUpReqDisplayVector uint32
	GPUCapInfo             uint32
	SystemConfig           uint32
	CPUCapInfo             uint32
	BootUpNBVoltage        uint16
	ExtDispConnInfoOffset  uint16
	MemoryType             uint8
	UMAChannelNumber       uint8
	GMCRestoreResetTime    uint32
	// MinimumNClk and IdleNClk are in 10 kHz units as stored.
	MinimumNClk                 uint32
	IdleNClk                    uint32
	DDRDLLPowerUpTime           uint32
	DDRPLLPowerUpTime           uint32
	PCIEClkSSType               uint16
	LVDSSSPercentage            uint16
	LVDSSSpreadRateIn10Hz       uint16
	HDMISSPercentage            uint16
	HDMISSpreadRateIn10Hz       uint16
	DVISSPercentage             uint16
	DVISSpreadRateIn10Hz        uint16
	MaxLVDSPclkFreqInSingleLink uint16
	LVDSMisc                    uint8
	LVDSPowerSequence           LVDSPowerSequence
	LVDSBitDepthControlVal      uint32
	AvailSClk                   [NumberOfAvailableSClk]AvailableSClk
	ExtDispConnInfo             ExtDisplayConnInfo
}

// IntegratedInfo decodes IntegratedSystemInfo.
func (p *Parser) IntegratedInfo() (*IntegratedInfo, error) {
	s := p.load()
	offset := uint64(p.dir.Offset(TableIntegratedSystemInfo))
	if offset == 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadBiosTable, &ErrTableAbsent{Table: TableIntegratedSystemInfo})
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBiosTable, err)
	}
	rev := h.Revision()
	var info *IntegratedInfo
	switch rev {
	case Revision{Major: 1, Minor: 8}:
		var raw IntegratedSystemInfoV1_8
		if err := s.img.Read(offset, &raw); err != nil {
			return nil, fmt.Errorf("unable to read %s v1.8: %w", TableIntegratedSystemInfo, err)
		}
		info = raw.info()
	case Revision{Major: 1, Minor: 9}:
		var raw IntegratedSystemInfoV1_9
		if err := s.img.Read(offset, &raw); err != nil {
			return nil, fmt.Errorf("unable to read %s v1.9: %w", TableIntegratedSystemInfo, err)
		}
		info = raw.info()
	default:
		return nil, &ErrUnsupportedTableRevision{Table: TableIntegratedSystemInfo, Revision: rev}
	}
	info.Revision = rev
	sortDispClkVoltage(&info.DispClkVoltage)
	return info, nil
}

func sortDispClkVoltage(levels *[NumberOfDispClkVoltage]ClockVoltage) {
	sort.SliceStable(levels[:], func(i, j int) bool {
		return levels[i].MaxSupportedClock < levels[j].MaxSupportedClock
	})
}

func dispClkVoltage(raw [NumberOfDispClkVoltage]ClkVoltCapability) [NumberOfDispClkVoltage]ClockVoltage {
	var result [NumberOfDispClkVoltage]ClockVoltage
	for i, v := range raw {
		result[i] = ClockVoltage{
			MaxSupportedClock: v.MaximumSupportedClock * 10,
			VoltageIndex:      v.VoltageIndex,
		}
	}
	return result
}

func availSClk(raw [NumberOfAvailableSClk]AvailableSClkList) [NumberOfAvailableSClk]AvailableSClk {
	var result [NumberOfAvailableSClk]AvailableSClk
	for i, v := range raw {
		result[i] = AvailableSClk{
			SupportedSClk: v.SupportedSClk * 10,
			VoltageIndex:  v.VoltageIndex,
			VoltageID:     v.VoltageID,
		}
	}
	return result
}

func minNClk(freqs [NumberOfNBPStates]uint32) uint32 {
	result := freqs[0]
	for _, f := range freqs[1:] {
		if f < result {
			result = f
		}
	}
	return result
}

func (raw *IntegratedSystemInfoV1_8) info() *IntegratedInfo {
	return &IntegratedInfo{
		BootUpEngineClock:           raw.BootUpEngineClock * 10,
		DentistVCOFreq:              raw.DentistVCOFreq * 10,
		BootUpUMAClock:              raw.BootUpUMAClock * 10,
		DispClkVoltage:              dispClkVoltage(raw.DispClkVoltage),
		BootUpReqDisplayVector:      raw.BootUpReqDisplayVector,
		GPUCapInfo:                  raw.GPUCapInfo,
		SystemConfig:                raw.SystemConfig,
		CPUCapInfo:                  raw.CPUCapInfo,
		BootUpNBVoltage:             raw.BootUpNBVoltage,
		ExtDispConnInfoOffset:       raw.ExtDispConnInfoOffset,
		MemoryType:                  raw.MemoryType,
		UMAChannelNumber:            raw.UMAChannelNumber,
		GMCRestoreResetTime:         raw.GMCRestoreResetTime,
		MinimumNClk:                 minNClk(raw.NBPStateNClkFreq),
		IdleNClk:                    raw.IdleNClk,
		DDRDLLPowerUpTime:           raw.DDRDLLPowerUpTime,
		DDRPLLPowerUpTime:           raw.DDRPLLPowerUpTime,
		PCIEClkSSType:               raw.PCIEClkSSType,
		LVDSSSPercentage:            raw.LVDSSSPercentage,
		LVDSSSpreadRateIn10Hz:       raw.LVDSSSpreadRateIn10Hz,
		HDMISSPercentage:            raw.HDMISSPercentage,
		HDMISSpreadRateIn10Hz:       raw.HDMISSpreadRateIn10Hz,
		DVISSPercentage:             raw.DVISSPercentage,
		DVISSpreadRateIn10Hz:        raw.DVISSpreadRateIn10Hz,
		MaxLVDSPclkFreqInSingleLink: raw.MaxLVDSPclkFreqInSingleLink,
		LVDSMisc:                    raw.LVDSMisc,
		LVDSPowerSequence: LVDSPowerSequence{
			OnDIGONtoDE:     raw.LVDSPwrOnSeqDIGONtoDEIn4Ms,
			OnDEtoVARYBL:    raw.LVDSPwrOnSeqDEtoVARYBLIn4Ms,
			OnVARYBLtoBLON:  raw.LVDSPwrOnSeqVARYBLtoBLONIn4Ms,
			OffVARYBLtoDE:   raw.LVDSPwrOffSeqVARYBLtoDEIn4Ms,
			OffDEtoDIGON:    raw.LVDSPwrOffSeqDEtoDIGONIn4Ms,
			OffBLONtoVARYBL: raw.LVDSPwrOffSeqBLONtoVARYBLIn4Ms,
			OffToOnDelay:    raw.LVDSOffToOnDelayIn4Ms,
		},
		LVDSBitDepthControlVal: raw.LCDBitDepthControlVal,
		AvailSClk:              availSClk(raw.AvailSClk),
		ExtDispConnInfo:        raw.ExtDispConnInfo.Decode(),
	}
}

func (raw *IntegratedSystemInfoV1_9) info() *IntegratedInfo {
	return &IntegratedInfo{
		BootUpEngineClock:           raw.BootUpEngineClock * 10,
		DentistVCOFreq:              raw.DentistVCOFreq * 10,
		BootUpUMAClock:              raw.BootUpUMAClock * 10,
		DispClkVoltage:              dispClkVoltage(raw.DispClkVoltage),
		BootUpReqDisplayVector:      raw.BootUpReqDisplayVector,
		GPUCapInfo:                  raw.GPUCapInfo,
		SystemConfig:                raw.SystemConfig,
		CPUCapInfo:                  raw.CPUCapInfo,
		BootUpNBVoltage:             raw.BootUpNBVoltage,
		ExtDispConnInfoOffset:       raw.ExtDispConnInfoOffset,
		MemoryType:                  raw.MemoryType,
		UMAChannelNumber:            raw.UMAChannelNumber,
		GMCRestoreResetTime:         raw.GMCRestoreResetTime,
		MinimumNClk:                 minNClk(raw.NBPStateNClkFreq),
		IdleNClk:                    raw.IdleNClk,
		DDRDLLPowerUpTime:           raw.DDRDLLPowerUpTime,
		DDRPLLPowerUpTime:           raw.DDRPLLPowerUpTime,
		PCIEClkSSType:               raw.PCIEClkSSType,
		LVDSSSPercentage:            raw.LVDSSSPercentage,
		LVDSSSpreadRateIn10Hz:       raw.LVDSSSpreadRateIn10Hz,
		HDMISSPercentage:            raw.HDMISSPercentage,
		HDMISSpreadRateIn10Hz:       raw.HDMISSpreadRateIn10Hz,
		DVISSPercentage:             raw.DVISSPercentage,
		DVISSpreadRateIn10Hz:        raw.DVISSpreadRateIn10Hz,
		MaxLVDSPclkFreqInSingleLink: raw.MaxLVDSPclkFreqInSingleLink,
		LVDSMisc:                    raw.LVDSMisc,
		LVDSPowerSequence: LVDSPowerSequence{
			OnDIGONtoDE:     raw.LVDSPwrOnSeqDIGONtoDEIn4Ms,
			OnDEtoVARYBL:    raw.LVDSPwrOnSeqDEtoVARYBLIn4Ms,
			OnVARYBLtoBLON:  raw.LVDSPwrOnSeqVARYBLtoBLONIn4Ms,
			OffVARYBLtoDE:   raw.LVDSPwrOffSeqVARYBLtoDEIn4Ms,
			OffDEtoDIGON:    raw.LVDSPwrOffSeqDEtoDIGONIn4Ms,
			OffBLONtoVARYBL: raw.LVDSPwrOffSeqBLONtoVARYBLIn4Ms,
			OffToOnDelay:    raw.LVDSOffToOnDelayIn4Ms,
		},
		LVDSBitDepthControlVal: raw.LCDBitDepthControlVal,
		AvailSClk:              availSClk(raw.AvailSClk),
		ExtDispConnInfo:        raw.ExtDispConnInfo.Decode(),
	}
}
