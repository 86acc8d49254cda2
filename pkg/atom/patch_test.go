// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// eepromTransport serves a fixed connection info to every read.
type eepromTransport struct {
	data     []byte
	err      error
	lines    []I2CInfo
	payloads [][]I2CPayload
}

func (e *eepromTransport) Perform(line I2CInfo, payloads []I2CPayload) error {
	e.lines = append(e.lines, line)
	e.payloads = append(e.payloads, payloads)
	if e.err != nil {
		return e.err
	}
	for _, p := range payloads {
		if !p.Write {
			copy(p.Data, e.data)
		}
	}
	return nil
}

var (
	testHPDPinLUT = [MaxExtHPDPinLUTEntries]uint8{10, 11, 12, 13, 14, 15, 16, 17}
	testAuxDDCLUT = [MaxExtAuxDDCLUTEntries]I2CConfig{0x90, 0x91, 0x92, 0x90, 0x91, 0x92, 0x90, 0x91}
)

func unusedPath() ExtDisplayPath {
	return ExtDisplayPath{DeviceConnector: 0xFFFF, ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF}
}

func newConnectionInfo(paths map[int]ExtDisplayPath) *ExtDisplayConnectionInfo {
	info := &ExtDisplayConnectionInfo{
		Header: CommonHeader{
			StructureSize:   uint16(ExtDisplayConnectionInfoSize),
			FormatRevision:  1,
			ContentRevision: 1,
		},
		GUID: ExtDisplayConnectionInfoGUID,
	}
	for i := range info.Path {
		info.Path[i] = unusedPath()
	}
	for i, path := range paths {
		info.Path[i] = path
	}
	info.UpdateChecksum()
	return info
}

// mxmConnector is a placeholder connector with room for capacity device
// tags.
func mxmConnector(enum uint8, capacity int, tags ...DeviceTag) testObject {
	return testObject{
		id: connector(ConnectorMXM, enum),
		records: [][]byte{
			i2cRecordBytes(0x92, 0),
			hpdRecordBytes(0, 1),
			deviceTagRecordBytes(capacity, tags...),
		},
	}
}

var (
	testHDMI   = connector(ConnectorHDMITypeA, 1)
	testDP     = connector(ConnectorDisplayPort, 1)
	testDVI    = connector(ConnectorSingleLinkDVID, 1)
	testUniphy = encoder(EncoderInternalUNIPHY, 1)
)

type patchSuite struct {
	suite.Suite
	transport *eepromTransport
	original  []byte
}

func TestPatch(t *testing.T) {
	suite.Run(t, new(patchSuite))
}

func (s *patchSuite) SetupTest() {
	s.transport = &eepromTransport{}
}

// build creates an image with an OPM object and returns a parser over it.
func (s *patchSuite) build(support DeviceSupport, connectors, encoders []testObject, opts ...Option) *Parser {
	b := newImageBuilder(s.T())
	opm := testObject{
		id: OPMObjectID,
		records: [][]byte{
			i2cRecordBytes(0x90, 0xA0),
			hpdPinLUTRecordBytes(testHPDPinLUT),
			auxDDCLUTRecordBytes(testAuxDDCLUT),
		},
	}
	b.objects(Revision{Major: 1, Minor: 3}, support, connectors, encoders, []testObject{opm})
	b.gpioI2CTable(
		GPIOI2CAssignment{I2CID: 0x90, ClkMaskRegisterIndex: 0x10},
		GPIOI2CAssignment{I2CID: 0x91, ClkMaskRegisterIndex: 0x11},
		GPIOI2CAssignment{I2CID: 0x92, ClkMaskRegisterIndex: 0x12},
	)
	s.original = b.bytes()
	return b.parser(append([]Option{WithTransport(s.transport)}, opts...)...)
}

func (s *patchSuite) serve(info *ExtDisplayConnectionInfo) {
	s.transport.data = info.Bytes()
}

func (s *patchSuite) requireTransitions(p *Parser, states ...PatchState) {
	report := p.Report()
	s.Require().NotNil(report)
	s.Require().Equal(states, report.Transitions)
	s.Require().Equal(states[len(states)-1], report.State)
}

func (s *patchSuite) requireConnectors(p *Parser, ids ...ObjectID) {
	n, err := p.ConnectorCount()
	s.Require().NoError(err)
	s.Require().Equal(uint8(len(ids)), n)
	for i, id := range ids {
		got, err := p.ConnectorID(uint8(i))
		s.Require().NoError(err)
		s.Require().Equal(id, got)
	}
}

func (s *patchSuite) requireTags(p *Parser, id ObjectID, tags ...ConnectorDeviceTagInfo) {
	for i, tag := range tags {
		got, err := p.DeviceTag(id, uint8(i))
		s.Require().NoError(err)
		s.Require().Equal(tag, got)
	}
	_, err := p.DeviceTag(id, uint8(len(tags)))
	s.Require().ErrorIs(err, ErrNoRecord)
}

// requireOnlyModified checks that the image differs from the original
// only inside the reported ranges.
func (s *patchSuite) requireOnlyModified(p *Parser) {
	patched := p.Image().Bytes()
	s.Require().Len(patched, len(s.original))
	for i := range patched {
		if patched[i] != s.original[i] {
			s.Require().True(p.Report().Modified.IsIn(uint64(i)), "byte 0x%X changed outside of %s", i, p.Report().Modified)
		}
	}
}

func (s *patchSuite) TestMXMConnectorToDFP1() {
	p := s.build(DeviceDFP1,
		[]testObject{mxmConnector(1, 2, DeviceTag{})},
		[]testObject{{id: testUniphy, dst: []ObjectID{connector(ConnectorMXM, 1)}}},
	)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {
			DeviceTag:         DeviceDFP1,
			DeviceACPIEnum:    0x0100,
			DeviceConnector:   testHDMI.BIOS(),
			ExtAUXDDCLUTIndex: 1,
			ExtHPDPinLUTIndex: 2,
		},
	}))

	p.PostInit()

	s.requireTransitions(p,
		PatchStateUnpatched,
		PatchStateConnectionTableFetched,
		PatchStateValidated,
		PatchStatePatched,
		PatchStateCompacted,
	)
	report := p.Report()
	s.Require().NoError(report.Err)
	s.Require().True(report.MXMConnectorFound)
	s.Require().NotNil(report.ConnectionInfo)
	s.Require().NotEmpty(report.Modified)

	s.requireConnectors(p, testHDMI)
	s.requireTags(p, testHDMI, ConnectorDeviceTagInfo{
		ACPIDevice: 0x0100,
		Device:     DeviceID{Type: DeviceTypeDFP, Enum: 1},
	})

	hpd, err := p.HPDInfo(testHDMI)
	s.Require().NoError(err)
	s.Require().Equal(testHPDPinLUT[2], hpd.GPIOID)

	i2c, err := p.I2CInfo(testHDMI)
	s.Require().NoError(err)
	s.Require().Equal(uint8(1), i2c.Line)
	s.Require().Equal(uint32(0x11), i2c.GPIO.ClkMaskRegisterIndex)

	dst, err := p.DstObject(testUniphy, 0)
	s.Require().NoError(err)
	s.Require().Equal(testHDMI, dst)

	s.Require().Len(s.transport.payloads, 1)
	payloads := s.transport.payloads[0]
	s.Require().Len(payloads, 2)
	s.Require().Equal(I2CPayload{Address: 0x50, Write: true, Data: []byte{0, 0}}, payloads[0])
	s.Require().Equal(uint8(0x50), payloads[1].Address)
	s.Require().False(payloads[1].Write)
	s.Require().Len(payloads[1].Data, ExtDisplayConnectionInfoSize)
	s.Require().Equal(uint8(0), s.transport.lines[0].Line)
	s.Require().Equal(uint8(0xA0), s.transport.lines[0].SlaveAddress)

	s.requireOnlyModified(p)
}

func (s *patchSuite) TestCorruptedChecksum() {
	p := s.build(DeviceDFP1,
		[]testObject{{}, mxmConnector(1, 2)},
		nil,
	)
	info := newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	})
	info.Checksum++
	s.serve(info)

	p.PostInit()

	s.requireTransitions(p,
		PatchStateUnpatched,
		PatchStateConnectionTableFetched,
		PatchStateValidationFailed,
		PatchStateCompacted,
	)
	s.Require().ErrorIs(p.Report().Err, ErrBadBiosTable)
	s.Require().True(p.Report().NullEntryFound)
	s.Require().Equal(uint8(2), p.Report().ConnectorsBefore)
	s.Require().Equal(uint8(1), p.Report().ConnectorsAfter)

	mxm := connector(ConnectorMXM, 1)
	s.requireConnectors(p, mxm)
	hpd, err := p.HPDInfo(mxm)
	s.Require().NoError(err)
	s.Require().Equal(uint8(0), hpd.GPIOID)
	s.requireOnlyModified(p)
}

func (s *patchSuite) TestFlippedGUID() {
	p := s.build(DeviceDFP1, []testObject{mxmConnector(1, 2)}, nil)
	info := newConnectionInfo(nil)
	info.GUID[3] ^= 0x01
	info.UpdateChecksum()
	s.serve(info)

	p.PostInit()

	s.requireTransitions(p,
		PatchStateUnpatched,
		PatchStateConnectionTableFetched,
		PatchStateValidationFailed,
		PatchStateCompacted,
	)
	s.Require().ErrorIs(p.Report().Err, ErrBadBiosTable)
	s.requireConnectors(p, connector(ConnectorMXM, 1))
	s.Require().Empty(p.Report().Modified)
	s.Require().Equal(s.original, p.Image().Bytes())
}

func (s *patchSuite) TestTransportFailure() {
	p := s.build(DeviceDFP1, []testObject{mxmConnector(1, 2), {}}, nil)
	s.transport.err = errors.New("nack")

	p.PostInit()

	s.requireTransitions(p, PatchStateUnpatched, PatchStateFetchFailed, PatchStateCompacted)
	s.Require().ErrorIs(p.Report().Err, ErrTransport)
	s.Require().Nil(p.Report().ConnectionInfo)
	s.requireConnectors(p, connector(ConnectorMXM, 1))
}

func (s *patchSuite) TestNoTransport() {
	b := newImageBuilder(s.T())
	b.objects(Revision{Major: 1, Minor: 3}, DeviceDFP1, []testObject{mxmConnector(1, 1)}, nil, []testObject{{id: OPMObjectID}})
	p := b.parser()

	p.PostInit()

	s.requireTransitions(p, PatchStateUnpatched, PatchStateFetchFailed, PatchStateCompacted)
	s.Require().ErrorIs(p.Report().Err, ErrTransport)
}

func (s *patchSuite) TestNoOPMObject() {
	b := newImageBuilder(s.T())
	b.objects(Revision{Major: 1, Minor: 1}, DeviceDFP1, []testObject{mxmConnector(1, 1)}, nil, nil)
	p := b.parser(WithTransport(s.transport))

	p.PostInit()

	s.requireTransitions(p, PatchStateUnpatched, PatchStateFetchFailed, PatchStateCompacted)
	s.Require().ErrorIs(p.Report().Err, ErrNotFound)
	s.Require().Empty(s.transport.payloads)
}

func (s *patchSuite) TestNothingToDo() {
	p := s.build(DeviceDFP1, []testObject{{id: testHDMI}, {id: testDP}}, nil)
	before := p.Image()

	p.PostInit()

	s.requireTransitions(p, PatchStateUnpatched)
	s.Require().Same(before, p.Image())
	s.Require().Empty(s.transport.payloads)
	s.requireConnectors(p, testHDMI, testDP)
}

func (s *patchSuite) TestCompactOnly() {
	p := s.build(DeviceDFP1, []testObject{{}, {id: testHDMI}, {}, {id: testDP}}, nil)

	p.PostInit()

	s.requireTransitions(p, PatchStateUnpatched, PatchStateCompacted)
	s.Require().NoError(p.Report().Err)
	s.Require().Empty(s.transport.payloads)
	s.requireConnectors(p, testHDMI, testDP)
	s.requireOnlyModified(p)
}

func (s *patchSuite) TestPostInitRunsOnce() {
	p := s.build(DeviceDFP1, []testObject{mxmConnector(1, 2)}, nil)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))
	s.Require().Nil(p.Report())

	p.PostInit()
	report := p.Report()
	p.PostInit()

	s.Require().Same(report, p.Report())
	s.Require().Len(s.transport.payloads, 1)
	s.requireConnectors(p, testHDMI)
}

func (s *patchSuite) TestMergeConnectors() {
	p := s.build(DeviceDFP1|DeviceDFP2,
		[]testObject{mxmConnector(1, 2), mxmConnector(2, 2)},
		[]testObject{{id: testUniphy, dst: []ObjectID{connector(ConnectorMXM, 1), connector(ConnectorMXM, 2)}}},
	)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceACPIEnum: 0x0100, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
		1: {DeviceTag: DeviceDFP2, DeviceACPIEnum: 0x0101, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))

	p.PostInit()

	s.Require().NoError(p.Report().Err)
	s.Require().Equal(PatchStateCompacted, p.Report().State)
	s.requireConnectors(p, testHDMI)
	s.requireTags(p, testHDMI,
		ConnectorDeviceTagInfo{ACPIDevice: 0x0100, Device: DeviceID{Type: DeviceTypeDFP, Enum: 1}},
		ConnectorDeviceTagInfo{ACPIDevice: 0x0101, Device: DeviceID{Type: DeviceTypeDFP, Enum: 2}},
	)
	dst, err := p.DestinationObjects(testUniphy)
	s.Require().NoError(err)
	s.Require().Equal([]ObjectID{testHDMI, testHDMI}, dst)
	s.requireOnlyModified(p)
}

func (s *patchSuite) TestTagDoesNotFit() {
	p := s.build(DeviceDFP1|DeviceDFP3,
		[]testObject{mxmConnector(1, 1, DeviceTag{ACPIDeviceEnum: 0x0300, DeviceID: DeviceDFP3})},
		nil,
	)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))

	p.PostInit()

	s.requireTransitions(p,
		PatchStateUnpatched,
		PatchStateConnectionTableFetched,
		PatchStateValidated,
		PatchStatePatchFailed,
		PatchStateCompacted,
	)
	s.Require().ErrorIs(p.Report().Err, ErrPatch)
	s.requireConnectors(p, connector(ConnectorMXM, 1))
	s.Require().Equal(s.original, p.Image().Bytes())
}

func (s *patchSuite) TestMissingHPDRecord() {
	mxm := mxmConnector(1, 2)
	mxm.records = mxm.records[:1]
	p := s.build(DeviceDFP1, []testObject{mxm}, nil)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 3},
	}))

	p.PostInit()

	s.Require().Equal(PatchStateCompacted, p.Report().State)
	s.Require().Contains(p.Report().Transitions, PatchStatePatchFailed)
	s.Require().ErrorIs(p.Report().Err, ErrPatch)
	s.requireConnectors(p, connector(ConnectorMXM, 1))
}

func (s *patchSuite) TestHPDPinOnly() {
	p := s.build(DeviceDFP1, []testObject{mxmConnector(1, 2)}, nil)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 4},
	}))

	p.PostInit()

	s.Require().NoError(p.Report().Err)
	hpd, err := p.HPDInfo(testHDMI)
	s.Require().NoError(err)
	s.Require().Equal(testHPDPinLUT[4], hpd.GPIOID)
	i2c, err := p.I2CInfo(testHDMI)
	s.Require().NoError(err)
	s.Require().Equal(uint8(2), i2c.Line)
}

func (s *patchSuite) TestUnusedPathIsRemoved() {
	p := s.build(DeviceDFP1, []testObject{mxmConnector(1, 2), mxmConnector(7, 2)}, nil)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))
	p.PostInit()
	s.Require().NoError(p.Report().Err)
	// path 7 is unused, so its connector is zeroed and compacted away
	s.requireConnectors(p, testHDMI)
}

func (s *patchSuite) TestRemapDeviceTags() {
	dp := testObject{
		id:      testDP,
		records: [][]byte{deviceTagRecordBytes(1, DeviceTag{ACPIDeviceEnum: 0x0200, DeviceID: DeviceDFP1})},
	}
	p := s.build(DeviceDFP1|DeviceDFP2|DeviceDFP3,
		[]testObject{dp, mxmConnector(1, 1), mxmConnector(2, 1)},
		nil,
		WithRemapDeviceTags(true),
	)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceACPIEnum: 0x0100, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
		1: {DeviceTag: DeviceDFP1, DeviceACPIEnum: 0x0101, DeviceConnector: testDVI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))

	p.PostInit()

	s.Require().NoError(p.Report().Err)
	s.requireConnectors(p, testDP, testHDMI, testDVI)
	s.requireTags(p, testHDMI, ConnectorDeviceTagInfo{ACPIDevice: 0x0100, Device: DeviceID{Type: DeviceTypeDFP, Enum: 2}})
	s.requireTags(p, testDVI, ConnectorDeviceTagInfo{ACPIDevice: 0x0101, Device: DeviceID{Type: DeviceTypeDFP, Enum: 3}})

	seen := map[DeviceID]ObjectID{}
	for _, id := range []ObjectID{testDP, testHDMI, testDVI} {
		tag, err := p.DeviceTag(id, 0)
		s.Require().NoError(err)
		other, dup := seen[tag.Device]
		s.Require().False(dup, "%s is assigned to %s and %s", tag.Device, other, id)
		seen[tag.Device] = id
	}
}

func (s *patchSuite) TestFallbackSkipsUsedTag() {
	dp := testObject{
		id:      testDP,
		records: [][]byte{deviceTagRecordBytes(1, DeviceTag{ACPIDeviceEnum: 0x0200, DeviceID: DeviceDFP1})},
	}
	p := s.build(DeviceDFP1|DeviceDFP2, []testObject{dp, mxmConnector(1, 1)}, nil)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceACPIEnum: 0x0100, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))

	p.PostInit()

	s.Require().NoError(p.Report().Err)
	s.requireConnectors(p, testDP, testHDMI)
	s.requireTags(p, testHDMI)
	s.requireTags(p, testDP, ConnectorDeviceTagInfo{ACPIDevice: 0x0200, Device: DeviceID{Type: DeviceTypeDFP, Enum: 1}})
}

func (s *patchSuite) TestQueriesAreConcurrentSafeAfterPostInit() {
	p := s.build(DeviceDFP1, []testObject{mxmConnector(1, 2)}, nil)
	s.serve(newConnectionInfo(map[int]ExtDisplayPath{
		0: {DeviceTag: DeviceDFP1, DeviceConnector: testHDMI.BIOS(), ExtAUXDDCLUTIndex: 0xFF, ExtHPDPinLUTIndex: 0xFF},
	}))
	p.PostInit()

	done := make(chan ObjectID)
	for i := 0; i < 8; i++ {
		go func() {
			id, _ := p.ConnectorID(0)
			done <- id
		}()
	}
	for i := 0; i < 8; i++ {
		s.Require().Equal(testHDMI, <-done)
	}
}

func TestPatchStateString(t *testing.T) {
	for state, name := range map[PatchState]string{
		PatchStateUnpatched:        "Unpatched",
		PatchStateValidationFailed: "ValidationFailed",
		PatchState(42):             "PatchState(42)",
	} {
		if got := state.String(); got != name {
			t.Errorf("%d: got %q, expected %q", state, got, name)
		}
	}
}
