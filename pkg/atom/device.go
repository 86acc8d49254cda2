// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
	"strings"
)

// DeviceSupport is a bit set of ATOM_DEVICE_*_SUPPORT flags. A device tag
// carries exactly one bit.
type DeviceSupport uint16

// Device support bits.
const (
	DeviceCRT1 DeviceSupport = 0x0001
	DeviceLCD1 DeviceSupport = 0x0002
	DeviceTV1  DeviceSupport = 0x0004
	DeviceDFP1 DeviceSupport = 0x0008
	DeviceCRT2 DeviceSupport = 0x0010
	DeviceLCD2 DeviceSupport = 0x0020
	DeviceDFP6 DeviceSupport = 0x0040
	DeviceDFP2 DeviceSupport = 0x0080
	DeviceCV   DeviceSupport = 0x0100
	DeviceDFP3 DeviceSupport = 0x0200
	DeviceDFP4 DeviceSupport = 0x0400
	DeviceDFP5 DeviceSupport = 0x0800
)

// Device groups.
const (
	DeviceGroupCRT = DeviceCRT1 | DeviceCRT2
	DeviceGroupDFP = DeviceDFP1 | DeviceDFP2 | DeviceDFP3 | DeviceDFP4 | DeviceDFP5 | DeviceDFP6
	DeviceGroupLCD = DeviceLCD1 | DeviceLCD2
	DeviceGroupTV  = DeviceTV1
	DeviceGroupCV  = DeviceCV
)

// DeviceType is the logical display device type.
type DeviceType uint8

// Display device types.
const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeLCD
	DeviceTypeCRT
	DeviceTypeDFP
	DeviceTypeCV
	DeviceTypeTV
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeLCD:
		return "LCD"
	case DeviceTypeCRT:
		return "CRT"
	case DeviceTypeDFP:
		return "DFP"
	case DeviceTypeCV:
		return "CV"
	case DeviceTypeTV:
		return "TV"
	}
	return "Unknown"
}

// DeviceID is a (type, enumeration) pair such as DFP2.
type DeviceID struct {
	Type DeviceType
	Enum uint8
}

func (id DeviceID) String() string {
	if id.Type == DeviceTypeUnknown {
		return "Unknown"
	}
	return fmt.Sprintf("%s%d", id.Type, id.Enum)
}

type deviceMapping struct {
	bit DeviceSupport
	id  DeviceID
}

var deviceMappings = []deviceMapping{
	{DeviceLCD1, DeviceID{DeviceTypeLCD, 1}},
	{DeviceLCD2, DeviceID{DeviceTypeLCD, 2}},
	{DeviceCRT1, DeviceID{DeviceTypeCRT, 1}},
	{DeviceCRT2, DeviceID{DeviceTypeCRT, 2}},
	{DeviceDFP1, DeviceID{DeviceTypeDFP, 1}},
	{DeviceDFP2, DeviceID{DeviceTypeDFP, 2}},
	{DeviceDFP3, DeviceID{DeviceTypeDFP, 3}},
	{DeviceDFP4, DeviceID{DeviceTypeDFP, 4}},
	{DeviceDFP5, DeviceID{DeviceTypeDFP, 5}},
	{DeviceDFP6, DeviceID{DeviceTypeDFP, 6}},
	{DeviceCV, DeviceID{DeviceTypeCV, 1}},
	{DeviceTV1, DeviceID{DeviceTypeTV, 1}},
}

// DeviceID returns the device a single-bit device tag refers to. Device
// tags are never CV or TV, so those bits decode to the unknown device.
func (s DeviceSupport) DeviceID() DeviceID {
	switch s {
	case DeviceCV, DeviceTV1:
		return DeviceID{}
	}
	for _, m := range deviceMappings {
		if m.bit == s {
			return m.id
		}
	}
	return DeviceID{}
}

// SupportMask returns the support bit of id, 0 if it has none.
func (id DeviceID) SupportMask() DeviceSupport {
	for _, m := range deviceMappings {
		if m.id == id {
			return m.bit
		}
	}
	return 0
}

func (s DeviceSupport) String() string {
	if s == 0 {
		return "None"
	}
	var names []string
	for _, m := range deviceMappings {
		if s&m.bit != 0 {
			names = append(names, m.id.String())
		}
	}
	return strings.Join(names, "|")
}

// firstInGroup returns the first device of the group s belongs to.
func (s DeviceSupport) firstInGroup() DeviceSupport {
	switch {
	case s&DeviceGroupCRT != 0:
		return DeviceCRT1
	case s&DeviceGroupDFP != 0:
		return DeviceDFP1
	case s&DeviceGroupLCD != 0:
		return DeviceLCD1
	case s&DeviceGroupTV != 0:
		return DeviceTV1
	case s&DeviceGroupCV != 0:
		return DeviceCV
	}
	return 0
}

// nextInGroup returns the device following s in its group, 0 at the end.
func (s DeviceSupport) nextInGroup() DeviceSupport {
	switch s {
	case DeviceCRT1:
		return DeviceCRT2
	case DeviceLCD1:
		return DeviceLCD2
	case DeviceDFP1:
		return DeviceDFP2
	case DeviceDFP2:
		return DeviceDFP3
	case DeviceDFP3:
		return DeviceDFP4
	case DeviceDFP4:
		return DeviceDFP5
	case DeviceDFP5:
		return DeviceDFP6
	}
	return 0
}
