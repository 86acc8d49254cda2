// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"encoding/binary"
	"fmt"
)

// Signal is the type of signal a clock is spread for.
type Signal uint8

// Signals with spread spectrum entries.
const (
	SignalUnknown Signal = iota
	SignalDVI
	SignalHDMI
	SignalLVDS
	SignalDisplayPort
	SignalGPUPLL
)

var signalNames = [...]string{
	SignalUnknown:     "unknown",
	SignalDVI:         "dvi",
	SignalHDMI:        "hdmi",
	SignalLVDS:        "lvds",
	SignalDisplayPort: "display port",
	SignalGPUPLL:      "gpu pll",
}

func (s Signal) String() string {
	if int(s) < len(signalNames) {
		return signalNames[s]
	}
	return fmt.Sprintf("Signal(%d)", uint8(s))
}

// Signals returns every known signal except SignalUnknown.
func Signals() []Signal {
	return []Signal{SignalDVI, SignalHDMI, SignalLVDS, SignalDisplayPort, SignalGPUPLL}
}

// ssID is the clock indication of the ASIC_InternalSS_Info entries.
type ssID uint8

const (
	ssIDUnknown        ssID = 0
	ssIDInternalMemory ssID = 1
	ssIDInternalEngine ssID = 2
	ssIDTMDS           ssID = 4
	ssIDHDMI           ssID = 5
	ssIDLVDS           ssID = 6
	ssIDDisplayPort    ssID = 7
	ssIDGPUPLL         ssID = 11

	// ssInfoIDDP1 is the SS_Info id of the DisplayPort entry.
	ssInfoIDDP1 ssID = 0xF0
)

func (s Signal) ssID() ssID {
	switch s {
	case SignalDVI:
		return ssIDTMDS
	case SignalHDMI:
		return ssIDHDMI
	case SignalLVDS:
		return ssIDLVDS
	case SignalDisplayPort:
		return ssIDDisplayPort
	case SignalGPUPLL:
		return ssIDGPUPLL
	}
	return ssIDUnknown
}

// Spread spectrum mode bits.
const (
	ssModeCentreSpread    = 0x01
	ssModeExternal        = 0x02
	ssModePercentageBy1K  = 0x10
	ssDefaultDivider      = 100
	ssPercentageDivider1K = 1000
)

// SpreadSpectrumType holds the spread spectrum flags.
type SpreadSpectrumType struct {
	CenterMode       bool
	External         bool
	StepAndDelayInfo bool
}

// StepAndDelayInfo is only filled from the SS_Info table.
type StepAndDelayInfo struct {
	Step              uint8
	Delay             uint8
	RecommendedRefDiv uint8
}

// SpreadSpectrumInfo describes how a clock is spread.
type SpreadSpectrumInfo struct {
	Type SpreadSpectrumType
	// TargetClockRange is in kHz.
	TargetClockRange uint32
	// Percentage is in units of 1/Divider percent.
	Percentage uint32
	Divider    uint32
	// Range is the spread rate in Hz.
	Range        uint32
	StepAndDelay StepAndDelayInfo
}

// ASICSSAssignment is ATOM_ASIC_SS_ASSIGNMENT_V2 and _V3, they share a
// layout.
type ASICSSAssignment struct {
	TargetClockRange         uint32
	SpreadSpectrumPercentage uint16
	SpreadRateIn10Hz         uint16
	ClockIndication          uint8
	SpreadSpectrumMode       uint8
	Reserved                 [2]uint8
}

var asicSSAssignmentSize = uint64(binary.Size(ASICSSAssignment{}))

func (a ASICSSAssignment) info() SpreadSpectrumInfo {
	return SpreadSpectrumInfo{
		Type: SpreadSpectrumType{
			CenterMode: a.SpreadSpectrumMode&ssModeCentreSpread != 0,
			External:   a.SpreadSpectrumMode&ssModeExternal != 0,
		},
		TargetClockRange: a.TargetClockRange * 10,
		Percentage:       uint32(a.SpreadSpectrumPercentage),
		Divider:          ssDefaultDivider,
		Range:            uint32(a.SpreadRateIn10Hz) * 10,
	}
}

// SSAssignment is ATOM_SPREAD_SPECTRUM_ASSIGNMENT of the SS_Info table.
type SSAssignment struct {
	SpreadSpectrumPercentage uint16
	SpreadSpectrumType       uint8
	SSStep                   uint8
	SSDelay                  uint8
	SSID                     uint8
	RecommendedRefDiv        uint8
	SSRange                  uint8
}

var ssAssignmentSize = uint64(binary.Size(SSAssignment{}))

// tableEntries calls fn for every fixed-size entry following the common
// header of the table at offset, until fn returns false.
func tableEntries(img *Image, offset uint64, h CommonHeader, entrySize uint64, entry interface{}, fn func() bool) error {
	if uint64(h.StructureSize) < commonHeaderSize {
		return nil
	}
	count := (uint64(h.StructureSize) - commonHeaderSize) / entrySize
	for i := uint64(0); i < count; i++ {
		if err := img.Read(offset+commonHeaderSize+i*entrySize, entry); err != nil {
			return err
		}
		if !fn() {
			return nil
		}
	}
	return nil
}

// SpreadSpectrumInfo returns the index-th spread spectrum entry of signal.
func (p *Parser) SpreadSpectrumInfo(signal Signal, index uint32) (*SpreadSpectrumInfo, error) {
	s := p.load()
	id := signal.ssID()
	offset := uint64(p.dir.Offset(TableASICInternalSSInfo))
	if offset == 0 {
		if index != 0 {
			return nil, fmt.Errorf("%w: %s has a single spread spectrum entry for %s", ErrNoRecord, TableSSInfo, signal)
		}
		return p.ssInfoTableEntry(s, id)
	}

	rev := s.img.RevisionAt(offset)
	switch rev {
	case Revision{Major: 2, Minor: 1}:
		if index != 0 {
			return nil, fmt.Errorf("%w: %s has a single spread spectrum entry for %s", ErrNoRecord, TableASICInternalSSInfo, signal)
		}
		if id == ssIDDisplayPort || id == ssIDLVDS {
			return p.ssInfoTableEntry(s, id)
		}
		return p.internalSSInfoV2(s, id)
	case Revision{Major: 3, Minor: 1}:
		return p.internalSSInfoV3(s, id, index)
	}
	return nil, &ErrUnsupportedTableRevision{Table: TableASICInternalSSInfo, Revision: rev}
}

func (p *Parser) internalSSInfoV2(s *snapshot, id ssID) (*SpreadSpectrumInfo, error) {
	offset := uint64(p.dir.Offset(TableASICInternalSSInfo))
	h, err := s.img.headerAt(offset)
	if err != nil {
		return nil, err
	}
	var (
		a      ASICSSAssignment
		result *SpreadSpectrumInfo
	)
	err = tableEntries(s.img, offset, h, asicSSAssignmentSize, &a, func() bool {
		if ssID(a.ClockIndication) != id {
			return true
		}
		info := a.info()
		result = &info
		return false
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: no internal spread spectrum entry for clock %d", ErrNoRecord, id)
	}
	return result, nil
}

// internalSSInfoV3 returns the index-th entry of clock id.
func (p *Parser) internalSSInfoV3(s *snapshot, id ssID, index uint32) (*SpreadSpectrumInfo, error) {
	offset := uint64(p.dir.Offset(TableASICInternalSSInfo))
	if offset == 0 {
		return nil, &ErrTableAbsent{Table: TableASICInternalSSInfo}
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return nil, err
	}
	var (
		a       ASICSSAssignment
		matched uint32
		result  *SpreadSpectrumInfo
	)
	err = tableEntries(s.img, offset, h, asicSSAssignmentSize, &a, func() bool {
		if ssID(a.ClockIndication) != id {
			return true
		}
		if matched != index {
			matched++
			return true
		}
		info := a.info()
		if a.SpreadSpectrumMode&ssModePercentageBy1K != 0 {
			info.Divider = ssPercentageDivider1K
		}
		result = &info
		return false
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: no internal spread spectrum entry #%d for clock %d", ErrNoRecord, index, id)
	}
	return result, nil
}

// ssInfoID converts an internal clock id to the SS_Info id. Only DP and
// LVDS have SS_Info entries, the LVDS id comes from the panel table.
func (p *Parser) ssInfoID(s *snapshot, id ssID) ssID {
	switch id {
	case ssIDDisplayPort:
		return ssInfoIDDP1
	case ssIDLVDS:
		panel, err := p.embeddedPanelInfo(s)
		if err != nil {
			return ssIDUnknown
		}
		return ssID(panel.SSID)
	}
	return ssIDUnknown
}

// ssInfoTable validates the SS_Info table and returns its offset and header.
func (p *Parser) ssInfoTable(s *snapshot) (uint64, CommonHeader, error) {
	offset := uint64(p.dir.Offset(TableSSInfo))
	if offset == 0 {
		return 0, CommonHeader{}, &ErrTableAbsent{Table: TableSSInfo}
	}
	h, err := s.img.headerAt(offset)
	if err != nil {
		return 0, CommonHeader{}, err
	}
	if rev := h.Revision(); rev.Major != 1 || rev.Minor < 2 {
		return 0, CommonHeader{}, &ErrUnsupportedTableRevision{Table: TableSSInfo, Revision: rev}
	}
	return offset, h, nil
}

func (p *Parser) ssInfoTableEntry(s *snapshot, id ssID) (*SpreadSpectrumInfo, error) {
	offset, h, err := p.ssInfoTable(s)
	if err != nil {
		return nil, err
	}
	localID := p.ssInfoID(s, id)
	if localID == ssIDUnknown {
		return nil, fmt.Errorf("%w: %s has no entries for clock %d", ErrNoRecord, TableSSInfo, id)
	}

	var (
		a      SSAssignment
		result *SpreadSpectrumInfo
	)
	err = tableEntries(s.img, offset, h, ssAssignmentSize, &a, func() bool {
		if ssID(a.SSID) != localID {
			return true
		}
		result = &SpreadSpectrumInfo{
			Type: SpreadSpectrumType{
				CenterMode:       a.SpreadSpectrumType&ssModeCentreSpread != 0,
				External:         a.SpreadSpectrumType&ssModeExternal != 0,
				StepAndDelayInfo: true,
			},
			Percentage: uint32(a.SpreadSpectrumPercentage),
			Divider:    ssDefaultDivider,
			Range:      uint32(a.SSRange) * 10000,
			StepAndDelay: StepAndDelayInfo{
				Step:              a.SSStep,
				Delay:             a.SSDelay,
				RecommendedRefDiv: a.RecommendedRefDiv,
			},
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s has no entry with id 0x%X", ErrNoRecord, TableSSInfo, localID)
	}
	return result, nil
}

// SSEntryNumber returns how many spread spectrum entries signal has. A
// signal without entries, or a table that cannot be read, counts as 0.
func (p *Parser) SSEntryNumber(signal Signal) uint32 {
	s := p.load()
	id := signal.ssID()
	offset := uint64(p.dir.Offset(TableASICInternalSSInfo))
	if offset == 0 {
		return p.ssInfoTableEntryNumber(s, id)
	}
	switch s.img.RevisionAt(offset) {
	case Revision{Major: 2, Minor: 1}:
		if id == ssIDDisplayPort || id == ssIDLVDS {
			return p.ssInfoTableEntryNumber(s, id)
		}
		if p.internalSSEntryNumber(s, offset, id) > 0 {
			return 1
		}
		return 0
	case Revision{Major: 3, Minor: 1}:
		return p.internalSSEntryNumber(s, offset, id)
	}
	return 0
}

func (p *Parser) internalSSEntryNumber(s *snapshot, offset uint64, id ssID) uint32 {
	h, err := s.img.headerAt(offset)
	if err != nil {
		return 0
	}
	var (
		a      ASICSSAssignment
		number uint32
	)
	err = tableEntries(s.img, offset, h, asicSSAssignmentSize, &a, func() bool {
		if ssID(a.ClockIndication) == id {
			number++
		}
		return true
	})
	if err != nil {
		p.logger.Warnf("unable to count the spread spectrum entries of clock %d: %v", id, err)
	}
	return number
}

func (p *Parser) ssInfoTableEntryNumber(s *snapshot, id ssID) uint32 {
	offset, h, err := p.ssInfoTable(s)
	if err != nil {
		return 0
	}
	localID := p.ssInfoID(s, id)
	if localID == ssIDUnknown {
		return 0
	}
	var (
		a      SSAssignment
		number uint32
	)
	err = tableEntries(s.img, offset, h, ssAssignmentSize, &a, func() bool {
		if ssID(a.SSID) == localID {
			number = 1
			return false
		}
		return true
	})
	if err != nil {
		p.logger.Warnf("unable to count the %s entries of clock %d: %v", TableSSInfo, id, err)
	}
	return number
}
