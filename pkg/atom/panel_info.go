// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
)

// ModeMiscInfo is ATOM_MODE_MISC_INFO.
type ModeMiscInfo uint16

// Mode misc bits.
const (
	ModeMiscHorizontalCutOff ModeMiscInfo = 0x0001
	ModeMiscHSyncPolarity    ModeMiscInfo = 0x0002
	ModeMiscVSyncPolarity    ModeMiscInfo = 0x0004
	ModeMiscVerticalCutOff   ModeMiscInfo = 0x0008
	ModeMiscHReplicationBy2  ModeMiscInfo = 0x0010
	ModeMiscVReplicationBy2  ModeMiscInfo = 0x0020
	ModeMiscCompositeSync    ModeMiscInfo = 0x0040
	ModeMiscInterlace        ModeMiscInfo = 0x0080
	ModeMiscDoubleClock      ModeMiscInfo = 0x0100
	ModeMiscRGB888           ModeMiscInfo = 0x0200
)

// DTD is ATOM_DTD_FORMAT, a detailed timing descriptor.
type DTD struct {
	PixClk             uint16
	HActive            uint16
	HBlankingTime      uint16
	VActive            uint16
	VBlankingTime      uint16
	HSyncOffset        uint16
	HSyncWidth         uint16
	VSyncOffset        uint16
	VSyncWidth         uint16
	ImageHSize         uint16
	ImageVSize         uint16
	HBorder            uint8
	VBorder            uint8
	ModeMiscInfo       ModeMiscInfo
	InternalModeNumber uint8
	RefreshRate        uint8
}

// LVDSInfoV12 is ATOM_LVDS_INFO_V12.
type LVDSInfoV12 struct {
	Header                     CommonHeader
	LCDTiming                  DTD
	ExtInfoTableOffset         uint16
	SupportedRefreshRate       uint16
	OffDelayInMs               uint16
	PowerSequenceDigOntoDE     uint8
	PowerSequenceDEtoBLOn      uint8
	LVDSMisc                   uint8
	PanelDefaultRefreshRate    uint8
	PanelIdentification        uint8
	SSID                       uint8
	LCDVendorID                uint16
	LCDProductID               uint16
	LCDPanelSpecialHandlingCap uint8
	PanelInfoSize              uint8
	Reserved                   [2]uint8
}

// LCDInfoV13 is ATOM_LCD_INFO_V13.
type LCDInfoV13 struct {
	Header                          CommonHeader
	LCDTiming                       DTD
	ExtInfoTableOffset              uint16
	SupportedRefreshRate            uint8
	MinRefreshRateForDRR            uint8
	Reserved0                       uint32
	LCDMisc                         uint8
	PanelDefaultRefreshRate         uint8
	PanelIdentification             uint8
	SSID                            uint8
	LCDVendorID                     uint16
	LCDProductID                    uint16
	LCDPanelSpecialHandlingCap      uint8
	PanelInfoSize                   uint8
	BacklightPWM                    uint16
	PowerSequenceDIGONtoDEIn4Ms     uint8
	PowerSequenceDEtoVARYBLIn4Ms    uint8
	PowerSequenceVARYBLtoDEIn4Ms    uint8
	PowerSequenceDEtoDIGONIn4Ms     uint8
	OffDelayIn4Ms                   uint8
	PowerSequenceVARYBLtoBLONIn4Ms  uint8
	PowerSequenceBLONtoVARYBLIn4Ms  uint8
	Reserved1                       uint8
	DPCDeDPConfigurationCap         uint8
	DPCDMaxLinkRate                 uint8
	DPCDMaxLaneCount                uint8
	DPCDMaxDownspread               uint8
	MaxPclkFreqInSingleLink         uint16
	EDPToLVDSRxID                   uint8
	LCDReserved                     uint8
	Reserved                        [2]uint32
}

// Refresh rate bits of the LCD tables.
const (
	lcdRefreshRate30Hz = 0x04
	lcdRefreshRate40Hz = 0x08
	lcdRefreshRate50Hz = 0x10
	lcdRefreshRate60Hz = 0x20
	lcdRefreshRate48Hz = 0x40
)

const lcdPanelCapDRRSupported = 0x02

// LVDS v1.2 misc bits.
const (
	panelMiscDual           = 0x01
	panelMisc888RGB         = 0x02
	panelMiscGreyLevel      = 0x0C
	panelMiscGreyLevelShift = 2
	panelMiscSpatial        = 0x20
	panelMiscTemporal       = 0x40
	panelMiscAPIEnabled     = 0x80
)

// LCD v1.3 misc bits.
const (
	panelMiscV13Dual           = 0x01
	panelMiscV13GreyLevel      = 0x0C
	panelMiscV13GreyLevelShift = 2
	panelMiscV13BitPerColor8   = 0x20
)

// TimingMisc holds the flags of a CRTC timing.
type TimingMisc struct {
	HorizontalCutOff bool
	HSyncPositive    bool
	VSyncPositive    bool
	VerticalCutOff   bool
	HReplicationBy2  bool
	VReplicationBy2  bool
	CompositeSync    bool
	Interlace        bool
	DoubleClock      bool
	RGB888           bool
	GreyLevel        uint8
	Spatial          bool
	Temporal         bool
	APIEnabled       bool
}

// CRTCTiming is the panel timing. PixelClock is in kHz.
type CRTCTiming struct {
	PixelClock             uint32
	HorizontalAddressable  uint32
	HorizontalBlankingTime uint32
	VerticalAddressable    uint32
	VerticalBlankingTime   uint32
	HorizontalSyncOffset   uint32
	HorizontalSyncWidth    uint32
	VerticalSyncOffset     uint32
	VerticalSyncWidth      uint32
	HorizontalBorder       uint32
	VerticalBorder         uint32
	Misc                   TimingMisc
}

// EmbeddedPanelInfo describes the built-in panel.
type EmbeddedPanelInfo struct {
	Revision Revision
	Timing   CRTCTiming
	SSID     uint8
	// SupportedRefreshRate is the lowest supported refresh rate in Hz, 0 if
	// the table reports none.
	SupportedRefreshRate uint32
	DRREnabled           bool
}

func (d DTD) timing() CRTCTiming {
	return CRTCTiming{
		PixelClock:             uint32(d.PixClk) * 10,
		HorizontalAddressable:  uint32(d.HActive),
		HorizontalBlankingTime: uint32(d.HBlankingTime),
		VerticalAddressable:    uint32(d.VActive),
		VerticalBlankingTime:   uint32(d.VBlankingTime),
		HorizontalSyncOffset:   uint32(d.HSyncOffset),
		HorizontalSyncWidth:    uint32(d.HSyncWidth),
		VerticalSyncOffset:     uint32(d.VSyncOffset),
		VerticalSyncWidth:      uint32(d.VSyncWidth),
		HorizontalBorder:       uint32(d.HBorder),
		VerticalBorder:         uint32(d.VBorder),
		Misc: TimingMisc{
			HorizontalCutOff: d.ModeMiscInfo&ModeMiscHorizontalCutOff != 0,
			// the polarity bits are set for negative sync
			HSyncPositive:   d.ModeMiscInfo&ModeMiscHSyncPolarity == 0,
			VSyncPositive:   d.ModeMiscInfo&ModeMiscVSyncPolarity == 0,
			VerticalCutOff:  d.ModeMiscInfo&ModeMiscVerticalCutOff != 0,
			HReplicationBy2: d.ModeMiscInfo&ModeMiscHReplicationBy2 != 0,
			VReplicationBy2: d.ModeMiscInfo&ModeMiscVReplicationBy2 != 0,
			CompositeSync:   d.ModeMiscInfo&ModeMiscCompositeSync != 0,
			Interlace:       d.ModeMiscInfo&ModeMiscInterlace != 0,
			DoubleClock:     d.ModeMiscInfo&ModeMiscDoubleClock != 0,
		},
	}
}

// lowestRefreshRate picks the first supported rate in the order the
// firmware lists its bits.
func lowestRefreshRate(rr uint8) uint32 {
	switch {
	case rr&lcdRefreshRate30Hz != 0:
		return 30
	case rr&lcdRefreshRate40Hz != 0:
		return 40
	case rr&lcdRefreshRate48Hz != 0:
		return 48
	case rr&lcdRefreshRate50Hz != 0:
		return 50
	case rr&lcdRefreshRate60Hz != 0:
		return 60
	}
	return 0
}

// EmbeddedPanelInfo decodes LCD_Info.
func (p *Parser) EmbeddedPanelInfo() (*EmbeddedPanelInfo, error) {
	return p.embeddedPanelInfo(p.load())
}

func (p *Parser) embeddedPanelInfo(s *snapshot) (*EmbeddedPanelInfo, error) {
	offset := uint64(p.dir.Offset(TableLCDInfo))
	if offset == 0 {
		return nil, &ErrTableAbsent{Table: TableLCDInfo}
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBiosTable, err)
	}
	rev := h.Revision()
	if rev.Major == 1 {
		switch rev.Minor {
		case 0, 1, 2:
			return panelInfoV12(s.img, offset, rev)
		case 3:
			return panelInfoV13(s.img, offset, rev)
		}
	}
	return nil, &ErrUnsupportedTableRevision{Table: TableLCDInfo, Revision: rev}
}

func panelInfoV12(img *Image, offset uint64, rev Revision) (*EmbeddedPanelInfo, error) {
	if rev.Minor < 2 {
		return nil, &ErrUnsupportedTableRevision{Table: TableLVDSInfo, Revision: rev}
	}
	var lvds LVDSInfoV12
	if err := img.Read(offset, &lvds); err != nil {
		return nil, fmt.Errorf("unable to read LVDS_Info v1.2: %w", err)
	}
	info := &EmbeddedPanelInfo{
		Revision: rev,
		Timing:   lvds.LCDTiming.timing(),
		SSID:     lvds.SSID,
		// only the low byte carries rate bits
		SupportedRefreshRate: lowestRefreshRate(uint8(lvds.SupportedRefreshRate)),
		DRREnabled:           lvds.LCDPanelSpecialHandlingCap&lcdPanelCapDRRSupported != 0,
	}
	misc := &info.Timing.Misc
	if lvds.LVDSMisc&panelMiscDual != 0 {
		misc.DoubleClock = true
	}
	misc.RGB888 = lvds.LVDSMisc&panelMisc888RGB != 0
	misc.GreyLevel = (lvds.LVDSMisc & panelMiscGreyLevel) >> panelMiscGreyLevelShift
	misc.Spatial = lvds.LVDSMisc&panelMiscSpatial != 0
	misc.Temporal = lvds.LVDSMisc&panelMiscTemporal != 0
	misc.APIEnabled = lvds.LVDSMisc&panelMiscAPIEnabled != 0
	return info, nil
}

func panelInfoV13(img *Image, offset uint64, rev Revision) (*EmbeddedPanelInfo, error) {
	var lcd LCDInfoV13
	if err := img.Read(offset, &lcd); err != nil {
		return nil, fmt.Errorf("unable to read LCD_Info v1.3: %w", err)
	}
	info := &EmbeddedPanelInfo{
		Revision:   rev,
		Timing:     lcd.LCDTiming.timing(),
		SSID:       lcd.SSID,
		DRREnabled: lcd.LCDPanelSpecialHandlingCap&lcdPanelCapDRRSupported != 0,
	}
	if info.DRREnabled {
		if lcd.MinRefreshRateForDRR != 0 {
			info.SupportedRefreshRate = lowestRefreshRate(lcd.MinRefreshRateForDRR)
		} else {
			info.SupportedRefreshRate = lowestRefreshRate(lcd.SupportedRefreshRate)
		}
	}
	misc := &info.Timing.Misc
	if lcd.LCDMisc&panelMiscV13Dual != 0 {
		misc.DoubleClock = true
	}
	misc.RGB888 = lcd.LCDMisc&panelMiscV13BitPerColor8 != 0
	misc.GreyLevel = (lcd.LCDMisc & panelMiscV13GreyLevel) >> panelMiscV13GreyLevelShift
	return info, nil
}
