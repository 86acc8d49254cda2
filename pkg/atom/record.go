// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
)

// RecordType is the type tag of an object record.
type RecordType uint8

// Object record types.
const (
	RecordTypeI2C                       RecordType = 1
	RecordTypeHPDInt                    RecordType = 2
	RecordTypeOutputProtection          RecordType = 3
	RecordTypeConnectorDeviceTag        RecordType = 4
	RecordTypeConnectorDVIExtInput      RecordType = 5
	RecordTypeEncoderFPGAControl        RecordType = 6
	RecordTypeConnectorCVTVShareDIN     RecordType = 7
	RecordTypeJTAG                      RecordType = 8
	RecordTypeObjectGPIOCntl            RecordType = 9
	RecordTypeEncoderDVOCF              RecordType = 10
	RecordTypeConnectorCF               RecordType = 11
	RecordTypeConnectorHardcodeDTD      RecordType = 12
	RecordTypeConnectorPCIESubconnector RecordType = 13
	RecordTypeRouterDDCPathSelect       RecordType = 14
	RecordTypeRouterDataClockPathSelect RecordType = 15
	RecordTypeConnectorHPDPinLUT        RecordType = 16
	RecordTypeConnectorAuxDDCLUT        RecordType = 17
	RecordTypeObjectLink                RecordType = 18
	RecordTypeConnectorRemoteCap        RecordType = 19
	RecordTypeEncoderCap                RecordType = 20
	RecordTypeBracketLayout             RecordType = 21
	RecordTypeConnectorForcedTMDSCap    RecordType = 22

	// RecordTypeLast terminates a record list.
	RecordTypeLast RecordType = 0xFF
)

var recordTypeNames = map[RecordType]string{
	RecordTypeI2C:                       "I2C",
	RecordTypeHPDInt:                    "HPDInt",
	RecordTypeOutputProtection:          "OutputProtection",
	RecordTypeConnectorDeviceTag:        "ConnectorDeviceTag",
	RecordTypeConnectorDVIExtInput:      "ConnectorDVIExtInput",
	RecordTypeEncoderFPGAControl:        "EncoderFPGAControl",
	RecordTypeConnectorCVTVShareDIN:     "ConnectorCVTVShareDIN",
	RecordTypeJTAG:                      "JTAG",
	RecordTypeObjectGPIOCntl:            "ObjectGPIOCntl",
	RecordTypeEncoderDVOCF:              "EncoderDVOCF",
	RecordTypeConnectorCF:               "ConnectorCF",
	RecordTypeConnectorHardcodeDTD:      "ConnectorHardcodeDTD",
	RecordTypeConnectorPCIESubconnector: "ConnectorPCIESubconnector",
	RecordTypeRouterDDCPathSelect:       "RouterDDCPathSelect",
	RecordTypeRouterDataClockPathSelect: "RouterDataClockPathSelect",
	RecordTypeConnectorHPDPinLUT:        "ConnectorHPDPinLUT",
	RecordTypeConnectorAuxDDCLUT:        "ConnectorAuxDDCLUT",
	RecordTypeObjectLink:                "ObjectLink",
	RecordTypeConnectorRemoteCap:        "ConnectorRemoteCap",
	RecordTypeEncoderCap:                "EncoderCap",
	RecordTypeBracketLayout:             "BracketLayout",
	RecordTypeConnectorForcedTMDSCap:    "ConnectorForcedTMDSCap",
	RecordTypeLast:                      "Last",
}

func (t RecordType) String() string {
	if name, ok := recordTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RecordType(%d)", uint8(t))
}

// RecordHeader is ATOM_COMMON_RECORD_HEADER.
type RecordHeader struct {
	Type RecordType
	Size uint8
}

// Record is a single entry of a record list.
type Record struct {
	RecordHeader
	// Offset is the absolute image offset of the record header.
	Offset uint64
}

// RecordStream iterates over a record list. It stops at a RecordTypeLast
// or zero-size record. Every step moves forward by at least one byte, so a
// stream never yields more records than the image has bytes.
type RecordStream struct {
	img    *Image
	offset uint64
	done   bool
	err    error
}

func newRecordStream(img *Image, offset uint64) *RecordStream {
	return &RecordStream{img: img, offset: offset}
}

// Next returns the next record, or false when the list is exhausted.
func (s *RecordStream) Next() (Record, bool) {
	if s.done {
		return Record{}, false
	}
	var h RecordHeader
	if err := s.img.Read(s.offset, &h); err != nil {
		s.done = true
		s.err = fmt.Errorf("unable to read record header at 0x%X: %w", s.offset, err)
		return Record{}, false
	}
	if h.Type == RecordTypeLast || h.Size == 0 {
		s.done = true
		return Record{}, false
	}
	r := Record{RecordHeader: h, Offset: s.offset}
	s.offset += uint64(h.Size)
	return r, true
}

// Err returns the error which stopped the stream, if any.
func (s *RecordStream) Err() error {
	return s.err
}

// findRecord returns the first record of type t which is at least minSize
// bytes long. Shorter records of the same type are skipped.
func findRecord(img *Image, offset uint64, t RecordType, minSize int) (Record, bool, error) {
	s := newRecordStream(img, offset)
	for {
		r, ok := s.Next()
		if !ok {
			return Record{}, false, s.Err()
		}
		if r.Type == t && int(r.Size) >= minSize {
			return r, true, nil
		}
	}
}
