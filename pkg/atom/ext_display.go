// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/linuxboot/vbios/pkg/guid"
)

// MaxExtDisplayPaths is the number of paths of the connection info.
const MaxExtDisplayPaths = 7

// ExtDisplayConnectionInfoGUID identifies a valid connection info.
var ExtDisplayConnectionInfoGUID = *guid.MustParse("09576E91-6D3F-11D2-398E-00A0C969723B")

// ExtDisplayPath is EXT_DISPLAY_PATH, one connector behind the MXM
// output personality module.
type ExtDisplayPath struct {
	DeviceTag         DeviceSupport
	DeviceACPIEnum    uint16
	DeviceConnector   uint16
	ExtAUXDDCLUTIndex uint8
	ExtHPDPinLUTIndex uint8
	ExtEncoderObjID   uint16
	ChannelMapping    uint8
	ChPNInvert        uint8
	Caps              uint16
	Reserved          uint16
}

// ExtDisplayConnectionInfo is ATOM_EXTERNAL_DISPLAY_CONNECTION_INFO. It is
// stored in the OPM EEPROM and embedded in IntegratedSystemInfo.
type ExtDisplayConnectionInfo struct {
	Header              CommonHeader
	GUID                guid.GUID
	Path                [MaxExtDisplayPaths]ExtDisplayPath
	Checksum            uint8
	StereoPinID         uint8
	RemoteDisplayConfig uint8
	EDPToLVDSRxID       uint8
	FixDPVoltageSwing   uint8
	Reserved            [3]uint8
}

// ExtDisplayConnectionInfoSize is the size of the connection info in bytes.
var ExtDisplayConnectionInfoSize = binary.Size(ExtDisplayConnectionInfo{})

// ParseExtDisplayConnectionInfo decodes a connection info without
// validating it.
func ParseExtDisplayConnectionInfo(b []byte) (*ExtDisplayConnectionInfo, error) {
	if len(b) < ExtDisplayConnectionInfoSize {
		return nil, fmt.Errorf("%w: connection info needs %d bytes, got %d", ErrBadInput, ExtDisplayConnectionInfoSize, len(b))
	}
	var info ExtDisplayConnectionInfo
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Bytes encodes the connection info.
func (info *ExtDisplayConnectionInfo) Bytes() []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, info); err != nil {
		// the layout is fixed size and a bytes.Buffer does not fail
		panic(err)
	}
	return buf.Bytes()
}

func checksum8(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum
}

// Validate checks the GUID and that all bytes add up to zero.
func (info *ExtDisplayConnectionInfo) Validate() error {
	if info.GUID != ExtDisplayConnectionInfoGUID {
		return fmt.Errorf("%w: connection info GUID is %s, expected %s", ErrBadBiosTable, info.GUID, ExtDisplayConnectionInfoGUID)
	}
	if sum := checksum8(info.Bytes()); sum != 0 {
		return fmt.Errorf("%w: connection info checksum is off by 0x%02X", ErrBadBiosTable, sum)
	}
	return nil
}

// UpdateChecksum sets Checksum so that Validate accepts the checksum.
func (info *ExtDisplayConnectionInfo) UpdateChecksum() {
	info.Checksum = 0
	info.Checksum = -checksum8(info.Bytes())
}

// pathIndex returns the path an MXM placeholder connector maps to.
func pathIndex(id ObjectID) (int, error) {
	if id.Enum == 0 || int(id.Enum) > MaxExtDisplayPaths {
		return 0, fmt.Errorf("%w: %s has no external display path", ErrPatch, id)
	}
	return int(id.Enum) - 1, nil
}

// pathFor returns the path of the MXM placeholder id. The 0xFFFF connector
// id marks an unused path and is reported as 0.
func (info *ExtDisplayConnectionInfo) pathFor(id ObjectID) (ExtDisplayPath, error) {
	i, err := pathIndex(id)
	if err != nil {
		return ExtDisplayPath{}, err
	}
	path := info.Path[i]
	if path.DeviceConnector == unusedPathConnector {
		path.DeviceConnector = 0
	}
	return path, nil
}

// unusedPathConnector is the connector id of an unused path.
const unusedPathConnector = 0xFFFF

func pathObjectID(v uint16) ObjectID {
	if v == unusedPathConnector {
		return ObjectID{}
	}
	return ObjectIDFromBIOS(v)
}

// ExtDisplayPathInfo is the decoded form of ExtDisplayPath.
type ExtDisplayPathInfo struct {
	DeviceTag         DeviceSupport
	DeviceACPIEnum    uint16
	DeviceConnectorID ObjectID
	ExtAUXDDCLUTIndex uint8
	ExtHPDPinLUTIndex uint8
	ExtEncoderObjID   ObjectID
	ChannelMapping    uint8
}

// ExtDisplayConnInfo is the decoded connection info.
type ExtDisplayConnInfo struct {
	GUID     guid.GUID
	Path     [MaxExtDisplayPaths]ExtDisplayPathInfo
	Checksum uint8
}

// Decode converts the object ids of the paths.
func (info *ExtDisplayConnectionInfo) Decode() ExtDisplayConnInfo {
	result := ExtDisplayConnInfo{
		GUID:     info.GUID,
		Checksum: info.Checksum,
	}
	for i, p := range info.Path {
		result.Path[i] = ExtDisplayPathInfo{
			DeviceTag:         p.DeviceTag,
			DeviceACPIEnum:    p.DeviceACPIEnum,
			DeviceConnectorID: pathObjectID(p.DeviceConnector),
			ExtAUXDDCLUTIndex: p.ExtAUXDDCLUTIndex,
			ExtHPDPinLUTIndex: p.ExtHPDPinLUTIndex,
			ExtEncoderObjID:   pathObjectID(p.ExtEncoderObjID),
			ChannelMapping:    p.ChannelMapping,
		}
	}
	return result
}
