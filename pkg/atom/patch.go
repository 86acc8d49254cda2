// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/xaionaro-go/bytesextra"

	pkgbytes "github.com/linuxboot/vbios/pkg/bytes"
)

// PatchState is a state of the external connection patcher.
type PatchState uint8

// Patcher states. A run ends in PatchStateUnpatched when there is nothing
// to do and in PatchStateCompacted otherwise.
const (
	PatchStateUnpatched PatchState = iota
	PatchStateConnectionTableFetched
	PatchStateValidated
	PatchStatePatched
	PatchStateCompacted
	PatchStateFetchFailed
	PatchStateValidationFailed
	PatchStatePatchFailed
)

func (s PatchState) String() string {
	switch s {
	case PatchStateUnpatched:
		return "Unpatched"
	case PatchStateConnectionTableFetched:
		return "ConnectionTableFetched"
	case PatchStateValidated:
		return "Validated"
	case PatchStatePatched:
		return "Patched"
	case PatchStateCompacted:
		return "Compacted"
	case PatchStateFetchFailed:
		return "FetchFailed"
	case PatchStateValidationFailed:
		return "ValidationFailed"
	case PatchStatePatchFailed:
		return "PatchFailed"
	}
	return fmt.Sprintf("PatchState(%d)", uint8(s))
}

// PatchReport describes what PostInit did to the image.
type PatchReport struct {
	State PatchState
	// Transitions lists every state the patcher went through, in order.
	Transitions []PatchState

	MXMConnectorFound bool
	NullEntryFound    bool

	// ConnectionInfo is the connection info read from the OPM, nil if the
	// read failed.
	ConnectionInfo *ExtDisplayConnectionInfo

	ConnectorsBefore uint8
	ConnectorsAfter  uint8

	// Modified are the byte ranges which differ from the original image.
	Modified pkgbytes.Ranges

	// Err is the reason the patch fell back to the unpatched image.
	Err error
}

func (r *PatchReport) transition(s PatchState) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// patcher rewrites the connector table of a private copy of the image with
// the connection info of an MXM output personality module.
type patcher struct {
	p      *Parser
	orig   *snapshot
	work   *snapshot
	buf    []byte
	w      io.WriteSeeker
	report *PatchReport

	// used holds the device ids which are already taken by a connector.
	used DeviceSupport
}

// patch runs the patcher over s. It returns s itself when the connector
// table needs no changes.
func (p *Parser) patch(s *snapshot) (*snapshot, *PatchReport) {
	report := &PatchReport{}
	report.transition(PatchStateUnpatched)

	connectors, err := s.graph.entries(ObjectTypeConnector)
	if err != nil {
		p.logger.Warnf("unable to read the connector table: %v", err)
		report.Err = err
		return s, report
	}
	report.ConnectorsBefore = uint8(len(connectors))
	report.ConnectorsAfter = report.ConnectorsBefore
	for _, e := range connectors {
		id := e.ID()
		if id.IsMXMConnector() {
			report.MXMConnectorFound = true
			break
		}
		if id.Type != ObjectTypeConnector {
			report.NullEntryFound = true
		}
	}
	if !report.MXMConnectorFound && !report.NullEntryFound {
		return s, report
	}

	pt := &patcher{p: p, orig: s, report: report}
	if err := pt.reset(); err != nil {
		p.logger.Errorf("unable to copy the image: %v", err)
		report.Err = err
		return s, report
	}

	if report.MXMConnectorFound {
		if err := pt.patch(); err != nil {
			p.logger.Warnf("unable to apply the external display connection info, keeping the original connectors: %v", err)
			report.Err = err
			if err := pt.reset(); err != nil {
				p.logger.Errorf("unable to restore the image: %v", err)
				return s, report
			}
		}
	}

	count, err := pt.compact()
	if err != nil {
		p.logger.Errorf("unable to compact the connector table: %v", err)
		report.Err = err
		return s, report
	}
	report.ConnectorsAfter = count
	report.transition(PatchStateCompacted)
	report.Modified.SortAndMerge()
	return pt.work, report
}

// reset replaces the working copy with a fresh copy of the original image.
func (pt *patcher) reset() error {
	pt.buf = pt.orig.img.clone()
	pt.w = bytesextra.NewReadWriteSeeker(pt.buf)
	work, err := newSnapshot(newImageFromBytes(pt.buf), pt.orig.graph.base)
	if err != nil {
		return err
	}
	pt.work = work
	pt.report.Modified = nil
	pt.used = 0
	return nil
}

// write encodes v at offset of the working copy.
func (pt *patcher) write(offset uint64, v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		return fmt.Errorf("%w: %T has no fixed size", ErrBadInput, v)
	}
	if err := pt.work.img.check(offset, uint64(size)); err != nil {
		return err
	}
	if _, err := pt.w.Seek(int64(offset), io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(pt.w, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("unable to write %T at 0x%X: %w", v, offset, err)
	}
	pt.report.Modified = append(pt.report.Modified, pkgbytes.Range{Offset: offset, Length: uint64(size)})
	return nil
}

// OPMObjectID is the MXM output personality module holding the connection
// info EEPROM.
var OPMObjectID = ObjectID{Type: ObjectTypeGeneric, ID: GenericMXMOPM, Enum: 1}

func (pt *patcher) patch() error {
	g := pt.work.graph
	opm, err := g.resolve(OPMObjectID)
	if err != nil {
		pt.report.transition(PatchStateFetchFailed)
		return fmt.Errorf("no output personality module: %w", err)
	}

	info, err := pt.fetch(opm)
	if err != nil {
		pt.report.transition(PatchStateFetchFailed)
		return err
	}
	pt.report.ConnectionInfo = info
	pt.report.transition(PatchStateConnectionTableFetched)

	if err := info.Validate(); err != nil {
		pt.report.transition(PatchStateValidationFailed)
		return err
	}
	pt.report.transition(PatchStateValidated)

	if err := pt.apply(opm, info); err != nil {
		pt.report.transition(PatchStatePatchFailed)
		return err
	}
	pt.report.transition(PatchStatePatched)
	return nil
}

// fetch reads the connection info from the EEPROM behind the I2C line of
// the OPM object.
func (pt *patcher) fetch(opm objectEntry) (*ExtDisplayConnectionInfo, error) {
	if pt.p.transport == nil {
		return nil, fmt.Errorf("%w: no transport configured", ErrTransport)
	}
	rec, _, err := pt.work.graph.i2cRecord(opm)
	if err != nil {
		return nil, fmt.Errorf("unable to find the I2C record of %s: %w", OPMObjectID, err)
	}
	line, err := pt.p.gpioI2CInfo(pt.work, rec)
	if err != nil {
		return nil, fmt.Errorf("unable to get the I2C line of %s: %w", OPMObjectID, err)
	}

	payloads := connectionInfoTransaction(rec.I2CAddr)
	if err := pt.p.transport.Perform(line, payloads); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return ParseExtDisplayConnectionInfo(payloads[len(payloads)-1].Data)
}

func (pt *patcher) apply(opm objectEntry, info *ExtDisplayConnectionInfo) error {
	g := pt.work.graph
	auxLUT, err := g.auxDDCLUTRecord(opm)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPatch, err)
	}
	hpdLUT, err := g.hpdPinLUTRecord(opm)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPatch, err)
	}

	tableOffset, ok := g.tableOffset(ObjectTypeConnector)
	if !ok {
		return fmt.Errorf("%w: no connector table", ErrPatch)
	}
	n, err := g.count(tableOffset)
	if err != nil {
		return err
	}

	for i := uint8(0); i < n; i++ {
		e, err := g.entry(tableOffset, i)
		if err != nil {
			return err
		}
		id := e.ID()
		if id.Type != ObjectTypeConnector || id.IsMXMConnector() {
			continue
		}
		tags, err := g.deviceTagRecord(e)
		if errors.Is(err, ErrNoRecord) {
			continue
		}
		if err != nil {
			return err
		}
		for _, tag := range tags.Tags {
			pt.used |= tag.DeviceID
		}
	}

	for i := uint8(0); i < n; i++ {
		e, err := g.entry(tableOffset, i)
		if err != nil {
			return err
		}
		id := e.ID()
		if !id.IsMXMConnector() {
			continue
		}
		path, err := info.pathFor(id)
		if err != nil {
			return err
		}

		if err := pt.write(e.Offset, path.DeviceConnector); err != nil {
			return err
		}
		if err := pt.addDeviceTag(e, path); err != nil {
			return err
		}

		if path.ExtHPDPinLUTIndex < MaxExtHPDPinLUTEntries {
			_, r, err := g.hpdRecord(e)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPatch, err)
			}
			if err := pt.write(r.Offset+2, hpdLUT.HPDPinMap[path.ExtHPDPinLUTIndex]); err != nil {
				return err
			}
		}
		if path.ExtAUXDDCLUTIndex < MaxExtAuxDDCLUTEntries {
			_, r, err := g.i2cRecord(e)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPatch, err)
			}
			if err := pt.write(r.Offset+2, auxLUT.AuxDDCMap[path.ExtAUXDDCLUTIndex]); err != nil {
				return err
			}
		}

		// merge the following placeholders that lead to the same connector
		for j := i + 1; j < n; j++ {
			next, err := g.entry(tableOffset, j)
			if err != nil {
				return err
			}
			nextID := next.ID()
			if !nextID.IsMXMConnector() {
				continue
			}
			nextPath, err := info.pathFor(nextID)
			if err != nil {
				return err
			}
			if path.DeviceConnector == 0 || nextPath.DeviceConnector != path.DeviceConnector {
				continue
			}
			if err := pt.write(next.Offset, uint16(0)); err != nil {
				return err
			}
			if err := pt.addDeviceTag(e, nextPath); err != nil {
				return err
			}
		}
	}

	return pt.patchEncoders(info)
}

// addDeviceTag appends the device of path to the device tag record of e.
// Objects without a device tag record are left alone.
func (pt *patcher) addDeviceTag(e objectEntry, path ExtDisplayPath) error {
	if path.DeviceTag == 0 {
		return nil
	}
	rec, err := pt.work.graph.deviceTagRecord(e)
	if errors.Is(err, ErrNoRecord) {
		return nil
	}
	if err != nil {
		return err
	}

	count := rec.NumberOfDevice
	if count == 1 && rec.Tags[0].DeviceID == 0 {
		// a single empty tag means no tags at all
		count = 0
	}

	id := pt.selectDevice(path.DeviceTag)
	if id == 0 {
		if count != rec.NumberOfDevice {
			return pt.write(rec.Offset+2, count)
		}
		return nil
	}
	if count >= rec.capacity() {
		return fmt.Errorf("%w: device tag record of %s at 0x%X holds at most %d tags",
			ErrPatch, e.ID(), rec.Offset, rec.capacity())
	}

	tag := DeviceTag{
		ACPIDeviceEnum: uint32(path.DeviceACPIEnum),
		DeviceID:       id,
	}
	if err := pt.write(rec.tagOffset(count), tag); err != nil {
		return err
	}
	if err := pt.write(rec.Offset+2, count+1); err != nil {
		return err
	}
	pt.used |= id
	return nil
}

// selectDevice picks the device id a path is tagged with, 0 if none is
// available. Remapping picks the first supported and unused device of the
// group of tag. Otherwise tag itself is used unless it is taken.
func (pt *patcher) selectDevice(tag DeviceSupport) DeviceSupport {
	if !pt.p.remap {
		if tag&pt.used != 0 {
			pt.p.logger.Warnf("device %s is already assigned, skipping the tag", tag)
			return 0
		}
		return tag
	}
	available := pt.work.graph.header.DeviceSupport &^ pt.used
	for id := tag.firstInGroup(); id != 0; id = id.nextInGroup() {
		if available&id != 0 {
			return id
		}
	}
	pt.p.logger.Warnf("no supported device is left in the group of %s", tag)
	return 0
}

// patchEncoders replaces placeholder destinations of every encoder with
// the real connector ids.
func (pt *patcher) patchEncoders(info *ExtDisplayConnectionInfo) error {
	g := pt.work.graph
	encoders, err := g.entries(ObjectTypeEncoder)
	if err != nil {
		return err
	}
	for _, e := range encoders {
		offset, err := g.dstListOffset(e)
		if err != nil {
			return err
		}
		dst, err := g.idList(offset)
		if err != nil {
			return err
		}
		for k, raw := range dst {
			id := ObjectIDFromBIOS(raw)
			if !id.IsMXMConnector() {
				continue
			}
			path, err := info.pathFor(id)
			if err != nil {
				return err
			}
			if err := pt.write(offset+1+2*uint64(k), path.DeviceConnector); err != nil {
				return err
			}
		}
	}
	return nil
}

// compact moves the connector rows to the front of the connector table and
// updates its count.
func (pt *patcher) compact() (uint8, error) {
	g := pt.work.graph
	tableOffset, ok := g.tableOffset(ObjectTypeConnector)
	if !ok {
		return 0, nil
	}
	n, err := g.count(tableOffset)
	if err != nil {
		return 0, err
	}

	var kept uint8
	for i := uint8(0); i < n; i++ {
		e, err := g.entry(tableOffset, i)
		if err != nil {
			return 0, err
		}
		if e.ID().Type != ObjectTypeConnector {
			continue
		}
		if i != kept {
			dst := tableOffset + objectTableHeaderSize + uint64(kept)*objectRowSize
			if err := pt.write(dst, e.objectRow); err != nil {
				return 0, err
			}
		}
		kept++
	}
	if kept != n {
		if err := pt.write(tableOffset, kept); err != nil {
			return 0, err
		}
	}
	return kept, nil
}
