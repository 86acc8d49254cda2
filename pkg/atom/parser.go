// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/linuxboot/vbios/pkg/log"
)

// snapshot is an image together with the object graph over it. A snapshot
// is never modified once it is published.
type snapshot struct {
	img   *Image
	graph *objectGraph
}

func newSnapshot(img *Image, objectHeaderOffset uint64) (*snapshot, error) {
	graph, err := newObjectGraph(img, objectHeaderOffset)
	if err != nil {
		return nil, err
	}
	return &snapshot{img: img, graph: graph}, nil
}

// Parser answers queries about the display hardware described by a video
// BIOS image.
//
// A Parser is created by New and patched once by PostInit. Queries may be
// issued concurrently after PostInit returns.
type Parser struct {
	dir       *Directory
	logger    log.Logger
	transport Transport
	remap     bool

	postInit sync.Once
	state    atomic.Pointer[snapshot]
	report   atomic.Pointer[PatchReport]
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger, log.DefaultLogger is used by default.
func WithLogger(logger log.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithTransport sets the I2C transport used to read the connection info of
// an output personality module. Without a transport PostInit only compacts
// the connector table.
func WithTransport(t Transport) Option {
	return func(p *Parser) {
		p.transport = t
	}
}

// WithRemapDeviceTags makes the patcher assign the first supported unused
// device of the group of an external path, instead of the device the path
// names.
func WithRemapDeviceTags(remap bool) Option {
	return func(p *Parser) {
		p.remap = remap
	}
}

// New parses the ROM header, the master data table and the object header
// of data.
func New(data []byte, opts ...Option) (*Parser, error) {
	p := &Parser{logger: log.DefaultLogger}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = log.DefaultLogger
	}

	img, err := NewImage(data)
	if err != nil {
		return nil, err
	}
	dir, err := ReadDirectory(img, p.logger)
	if err != nil {
		return nil, fmt.Errorf("unable to read the data table directory: %w", err)
	}
	s, err := newSnapshot(img, uint64(dir.Offset(TableObjectHeader)))
	if err != nil {
		return nil, fmt.Errorf("unable to parse the object header: %w", err)
	}
	p.dir = dir
	p.state.Store(s)
	return p, nil
}

func (p *Parser) load() *snapshot {
	return p.state.Load()
}

// PostInit patches the connector table with the connection info of an MXM
// output personality module, if there is one, and removes the empty
// connector slots. Only the first call has an effect. Failures are logged
// and reported by Report; the image is then left unpatched but compacted.
func (p *Parser) PostInit() {
	p.postInit.Do(func() {
		s, report := p.patch(p.load())
		p.state.Store(s)
		p.report.Store(report)
	})
}

// Report returns the result of PostInit, nil if PostInit was not called.
func (p *Parser) Report() *PatchReport {
	return p.report.Load()
}

// Directory returns the data table directory.
func (p *Parser) Directory() *Directory {
	return p.dir
}

// ROMHeaderRevision returns the revision of the ROM header.
func (p *Parser) ROMHeaderRevision() Revision {
	return p.dir.ROMHeader.Header.Revision()
}

// ObjectHeaderRevision returns the revision of the object header.
func (p *Parser) ObjectHeaderRevision() Revision {
	return p.load().graph.revision
}

// Image returns the current image, which is the patched one after
// PostInit.
func (p *Parser) Image() *Image {
	return p.load().img
}

// Objects returns the ids of all rows of the object table of kind t.
func (p *Parser) Objects(t ObjectType) ([]ObjectID, error) {
	entries, err := p.load().graph.entries(t)
	if err != nil {
		return nil, err
	}
	ids := make([]ObjectID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID())
	}
	return ids, nil
}

func (p *Parser) objectCount(t ObjectType) (uint8, error) {
	g := p.load().graph
	offset, ok := g.tableOffset(t)
	if !ok {
		return 0, nil
	}
	return g.count(offset)
}

func (p *Parser) objectID(t ObjectType, i uint8) (ObjectID, error) {
	g := p.load().graph
	offset, ok := g.tableOffset(t)
	if !ok {
		return ObjectID{}, fmt.Errorf("%w: no %s table", ErrNoRecord, t)
	}
	n, err := g.count(offset)
	if err != nil {
		return ObjectID{}, err
	}
	if i >= n {
		return ObjectID{}, fmt.Errorf("%w: %s index %d is out of %d", ErrBadInput, t, i, n)
	}
	e, err := g.entry(offset, i)
	if err != nil {
		return ObjectID{}, err
	}
	return e.ID(), nil
}

// ConnectorCount returns the number of rows of the connector table.
func (p *Parser) ConnectorCount() (uint8, error) {
	return p.objectCount(ObjectTypeConnector)
}

// EncoderCount returns the number of rows of the encoder table.
func (p *Parser) EncoderCount() (uint8, error) {
	return p.objectCount(ObjectTypeEncoder)
}

// ConnectorID returns the id of the i-th connector.
func (p *Parser) ConnectorID(i uint8) (ObjectID, error) {
	return p.objectID(ObjectTypeConnector, i)
}

// EncoderID returns the id of the i-th encoder.
func (p *Parser) EncoderID(i uint8) (ObjectID, error) {
	return p.objectID(ObjectTypeEncoder, i)
}

// SourceObjects returns the objects feeding id.
func (p *Parser) SourceObjects(id ObjectID) ([]ObjectID, error) {
	g := p.load().graph
	e, err := g.resolve(id)
	if err != nil {
		return nil, err
	}
	return g.sourceList(e)
}

// DestinationObjects returns the objects id feeds.
func (p *Parser) DestinationObjects(id ObjectID) ([]ObjectID, error) {
	g := p.load().graph
	e, err := g.resolve(id)
	if err != nil {
		return nil, err
	}
	return g.destinationList(e)
}

// DstNumber returns the number of destinations of id.
func (p *Parser) DstNumber(id ObjectID) (uint8, error) {
	dst, err := p.DestinationObjects(id)
	if err != nil {
		return 0, err
	}
	return uint8(len(dst)), nil
}

// SrcObject returns the i-th source of id.
func (p *Parser) SrcObject(id ObjectID, i uint8) (ObjectID, error) {
	src, err := p.SourceObjects(id)
	if err != nil {
		return ObjectID{}, err
	}
	if int(i) >= len(src) {
		return ObjectID{}, fmt.Errorf("%w: %s has %d sources, index %d", ErrBadInput, id, len(src), i)
	}
	return src[i], nil
}

// DstObject returns the i-th destination of id.
func (p *Parser) DstObject(id ObjectID, i uint8) (ObjectID, error) {
	dst, err := p.DestinationObjects(id)
	if err != nil {
		return ObjectID{}, err
	}
	if int(i) >= len(dst) {
		return ObjectID{}, fmt.Errorf("%w: %s has %d destinations, index %d", ErrBadInput, id, len(dst), i)
	}
	return dst[i], nil
}

// I2CInfo returns the first I2C line of id which resolves through
// GPIO_I2C_Info.
func (p *Parser) I2CInfo(id ObjectID) (I2CInfo, error) {
	s := p.load()
	e, err := s.graph.resolve(id)
	if err != nil {
		return I2CInfo{}, err
	}
	records := s.graph.records(e)
	for {
		r, ok := records.Next()
		if !ok {
			break
		}
		if r.Type != RecordTypeI2C || int(r.Size) < i2cRecordSize {
			continue
		}
		var rec I2CRecord
		if err := s.img.Read(r.Offset, &rec); err != nil {
			return I2CInfo{}, err
		}
		info, err := p.gpioI2CInfo(s, rec)
		if err != nil {
			p.logger.Warnf("I2C record of %s at 0x%X does not resolve: %v", id, r.Offset, err)
			continue
		}
		return info, nil
	}
	if err := records.Err(); err != nil {
		return I2CInfo{}, err
	}
	return I2CInfo{}, &ErrRecordNotFound{Object: id, RecordType: RecordTypeI2C}
}

// HPDInfo describes the hot plug detect pin of a connector.
type HPDInfo struct {
	GPIOID uint8
	// Active is the pin state of a plugged display.
	Active uint8
}

// HPDInfo returns the hot plug detect pin of id.
func (p *Parser) HPDInfo(id ObjectID) (HPDInfo, error) {
	g := p.load().graph
	e, err := g.resolve(id)
	if err != nil {
		return HPDInfo{}, err
	}
	rec, _, err := g.hpdRecord(e)
	if err != nil {
		return HPDInfo{}, err
	}
	return HPDInfo{GPIOID: rec.HPDIntGPIOID, Active: rec.PluggedPinState}, nil
}

// ConnectorDeviceTagInfo is a decoded device tag of a connector.
type ConnectorDeviceTagInfo struct {
	ACPIDevice uint32
	Device     DeviceID
}

// DeviceTag returns the i-th device tag of the connector id.
func (p *Parser) DeviceTag(id ObjectID, i uint8) (ConnectorDeviceTagInfo, error) {
	if id.Type != ObjectTypeConnector {
		return ConnectorDeviceTagInfo{}, fmt.Errorf("%w: %s is not a connector", ErrBadInput, id)
	}
	g := p.load().graph
	e, err := g.resolve(id)
	if err != nil {
		return ConnectorDeviceTagInfo{}, err
	}
	rec, err := g.deviceTagRecord(e)
	if err != nil {
		return ConnectorDeviceTagInfo{}, err
	}
	if i >= rec.NumberOfDevice {
		return ConnectorDeviceTagInfo{}, fmt.Errorf("%w: %s has %d device tags, index %d", ErrNoRecord, id, rec.NumberOfDevice, i)
	}
	tag := rec.Tags[i]
	return ConnectorDeviceTagInfo{
		ACPIDevice: tag.ACPIDeviceEnum,
		Device:     tag.DeviceID.DeviceID(),
	}, nil
}

// DeviceSupport returns the device support mask of the object header.
func (p *Parser) DeviceSupport() DeviceSupport {
	return p.load().graph.header.DeviceSupport
}

// IsDeviceIDSupported reports whether the object header lists id as
// supported.
func (p *Parser) IsDeviceIDSupported(id DeviceID) bool {
	mask := id.SupportMask()
	return mask != 0 && p.DeviceSupport()&mask != 0
}
