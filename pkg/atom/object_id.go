// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
)

// ObjectType is the kind of a graphics object.
type ObjectType uint8

// Graphics object types, as encoded in bits 12-14 of a BIOS object id.
const (
	ObjectTypeNone        ObjectType = 0
	ObjectTypeGPU         ObjectType = 1
	ObjectTypeEncoder     ObjectType = 2
	ObjectTypeConnector   ObjectType = 3
	ObjectTypeRouter      ObjectType = 4
	ObjectTypeDisplayPath ObjectType = 6
	ObjectTypeGeneric     ObjectType = 7
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeNone:
		return "None"
	case ObjectTypeGPU:
		return "GPU"
	case ObjectTypeEncoder:
		return "Encoder"
	case ObjectTypeConnector:
		return "Connector"
	case ObjectTypeRouter:
		return "Router"
	case ObjectTypeDisplayPath:
		return "DisplayPath"
	case ObjectTypeGeneric:
		return "Generic"
	}
	return fmt.Sprintf("ObjectType(%d)", uint8(t))
}

// Connector object ids.
const (
	ConnectorNone           uint8 = 0x00
	ConnectorSingleLinkDVII uint8 = 0x01
	ConnectorDualLinkDVII   uint8 = 0x02
	ConnectorSingleLinkDVID uint8 = 0x03
	ConnectorDualLinkDVID   uint8 = 0x04
	ConnectorVGA            uint8 = 0x05
	ConnectorComposite      uint8 = 0x06
	ConnectorSVideo         uint8 = 0x07
	ConnectorYPbPr          uint8 = 0x08
	ConnectorDConnector     uint8 = 0x09
	Connector9PinDIN        uint8 = 0x0A
	ConnectorSCART          uint8 = 0x0B
	ConnectorHDMITypeA      uint8 = 0x0C
	ConnectorHDMITypeB      uint8 = 0x0D
	ConnectorLVDS           uint8 = 0x0E
	Connector7PinDIN        uint8 = 0x0F
	ConnectorPCIE           uint8 = 0x10
	ConnectorCrossfire      uint8 = 0x11
	ConnectorHardcodeDVI    uint8 = 0x12
	ConnectorDisplayPort    uint8 = 0x13
	ConnectorEDP            uint8 = 0x14
	ConnectorMXM            uint8 = 0x15
	ConnectorLVDSeDP        uint8 = 0x16
)

const connectorIDNamesUpperBound = 0x17

var connectorNames = [connectorIDNamesUpperBound]string{
	"None", "SingleLinkDVI-I", "DualLinkDVI-I", "SingleLinkDVI-D", "DualLinkDVI-D",
	"VGA", "Composite", "SVideo", "YPbPr", "DConnector", "9PinDIN", "SCART",
	"HDMITypeA", "HDMITypeB", "LVDS", "7PinDIN", "PCIE", "Crossfire",
	"HardcodeDVI", "DisplayPort", "eDP", "MXM", "LVDS_eDP",
}

// Encoder object ids.
const (
	EncoderNone                uint8 = 0x00
	EncoderInternalLVDS        uint8 = 0x01
	EncoderInternalTMDS1       uint8 = 0x02
	EncoderInternalTMDS2       uint8 = 0x03
	EncoderInternalDAC1        uint8 = 0x04
	EncoderInternalDAC2        uint8 = 0x05
	EncoderInternalSDVOA       uint8 = 0x06
	EncoderInternalSDVOB       uint8 = 0x07
	EncoderSI170B              uint8 = 0x08
	EncoderCH7303              uint8 = 0x09
	EncoderCH7301              uint8 = 0x0A
	EncoderInternalDVO1        uint8 = 0x0B
	EncoderExternalSDVOA       uint8 = 0x0C
	EncoderExternalSDVOB       uint8 = 0x0D
	EncoderTITFP513            uint8 = 0x0E
	EncoderInternalLVTM1       uint8 = 0x0F
	EncoderVT1623              uint8 = 0x10
	EncoderHDMISI1930          uint8 = 0x11
	EncoderHDMIInternal        uint8 = 0x12
	EncoderInternalKLDSCPTMDS1 uint8 = 0x13
	EncoderInternalKLDSCPDVO1  uint8 = 0x14
	EncoderInternalKLDSCPDAC1  uint8 = 0x15
	EncoderInternalKLDSCPDAC2  uint8 = 0x16
	EncoderSI178               uint8 = 0x17
	EncoderMVPUFPGA            uint8 = 0x18
	EncoderInternalDDI         uint8 = 0x19
	EncoderVT1625              uint8 = 0x1A
	EncoderHDMISI1932          uint8 = 0x1B
	EncoderDPAN9801            uint8 = 0x1C
	EncoderDPDP501             uint8 = 0x1D
	EncoderInternalUNIPHY      uint8 = 0x1E
	EncoderInternalKLDSCPLVTMA uint8 = 0x1F
	EncoderInternalUNIPHY1     uint8 = 0x20
	EncoderInternalUNIPHY2     uint8 = 0x21
	EncoderNutmeg              uint8 = 0x22
	EncoderTravis              uint8 = 0x23
	EncoderInternalVCE         uint8 = 0x24
	EncoderInternalUNIPHY3     uint8 = 0x25
	EncoderHDMIANX9805         uint8 = 0x26
	EncoderGeneralExternalDVO  uint8 = 0xFF
)

const encoderIDNamesUpperBound = 0x27

var encoderNames = [encoderIDNamesUpperBound]string{
	"None", "InternalLVDS", "InternalTMDS1", "InternalTMDS2", "InternalDAC1",
	"InternalDAC2", "InternalSDVOA", "InternalSDVOB", "SI170B", "CH7303",
	"CH7301", "InternalDVO1", "ExternalSDVOA", "ExternalSDVOB", "TITFP513",
	"InternalLVTM1", "VT1623", "HDMI_SI1930", "HDMIInternal",
	"InternalKLDSCP_TMDS1", "InternalKLDSCP_DVO1", "InternalKLDSCP_DAC1",
	"InternalKLDSCP_DAC2", "SI178", "MVPU_FPGA", "InternalDDI", "VT1625",
	"HDMI_SI1932", "DP_AN9801", "DP_DP501", "InternalUNIPHY",
	"InternalKLDSCP_LVTMA", "InternalUNIPHY1", "InternalUNIPHY2", "Nutmeg",
	"Travis", "InternalVCE", "InternalUNIPHY3", "HDMI_ANX9805",
}

// Generic object ids.
const (
	GenericNone   uint8 = 0x00
	GenericGLSync uint8 = 0x01
	GenericPX2    uint8 = 0x02
	GenericMXMOPM uint8 = 0x03
	GenericStereo uint8 = 0x04
)

var genericNames = map[uint8]string{
	GenericNone:   "None",
	GenericGLSync: "GLSync",
	GenericPX2:    "PX2NonDrivable",
	GenericMXMOPM: "MXM_OPM",
	GenericStereo: "Stereo",
}

// Bit layout of a BIOS object id.
const (
	objectIDMask    = 0x00FF
	enumIDMask      = 0x0700
	enumIDShift     = 8
	objectTypeMask  = 0x7000
	objectTypeShift = 12
)

// ObjectID identifies a graphics object by kind, id and enumeration index.
// The zero value is the unknown object. ObjectIDs are compared with ==.
type ObjectID struct {
	Type ObjectType
	ID   uint8
	Enum uint8
}

// ObjectIDFromBIOS decodes a BIOS object id. Ids with an unknown type or a
// zero enumeration index decode to the zero ObjectID.
func ObjectIDFromBIOS(v uint16) ObjectID {
	t := ObjectType((v & objectTypeMask) >> objectTypeShift)
	switch t {
	case ObjectTypeGPU, ObjectTypeEncoder, ObjectTypeConnector, ObjectTypeRouter, ObjectTypeGeneric:
	default:
		return ObjectID{}
	}
	enum := uint8((v & enumIDMask) >> enumIDShift)
	if enum == 0 {
		return ObjectID{}
	}
	return ObjectID{Type: t, ID: uint8(v & objectIDMask), Enum: enum}
}

// BIOS encodes the ObjectID back into a BIOS object id.
func (id ObjectID) BIOS() uint16 {
	return uint16(id.Type)<<objectTypeShift&objectTypeMask |
		uint16(id.Enum)<<enumIDShift&enumIDMask |
		uint16(id.ID)
}

// IsMXMConnector reports whether id is an MXM placeholder connector.
func (id ObjectID) IsMXMConnector() bool {
	return id.Type == ObjectTypeConnector && id.ID == ConnectorMXM
}

// Name returns the name of the id within its kind.
func (id ObjectID) Name() string {
	switch id.Type {
	case ObjectTypeConnector:
		if id.ID < connectorIDNamesUpperBound {
			return connectorNames[id.ID]
		}
	case ObjectTypeEncoder:
		if id.ID < encoderIDNamesUpperBound {
			return encoderNames[id.ID]
		}
		if id.ID == EncoderGeneralExternalDVO {
			return "GeneralExternalDVO"
		}
	case ObjectTypeGeneric:
		if name, ok := genericNames[id.ID]; ok {
			return name
		}
	}
	return fmt.Sprintf("0x%02X", id.ID)
}

func (id ObjectID) String() string {
	if id == (ObjectID{}) {
		return "Unknown"
	}
	return fmt.Sprintf("%s/%s#%d", id.Type, id.Name(), id.Enum)
}
