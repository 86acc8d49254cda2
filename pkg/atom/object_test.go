// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectIDBIOS(t *testing.T) {
	for _, id := range []ObjectID{
		connector(ConnectorHDMITypeA, 1),
		connector(ConnectorMXM, 7),
		encoder(EncoderInternalUNIPHY2, 2),
		{Type: ObjectTypeRouter, ID: 1, Enum: 1},
		{Type: ObjectTypeGeneric, ID: GenericMXMOPM, Enum: 1},
		{Type: ObjectTypeGPU, ID: 1, Enum: 1},
	} {
		t.Run(id.String(), func(t *testing.T) {
			require.Equal(t, id, ObjectIDFromBIOS(id.BIOS()))
		})
	}

	assert.Equal(t, uint16(0x310C), connector(ConnectorHDMITypeA, 1).BIOS())
	assert.Equal(t, uint16(0x221E), encoder(EncoderInternalUNIPHY, 2).BIOS())
	assert.Equal(t, ObjectID{}, ObjectIDFromBIOS(0))
	// enum 0 and object type 5 are not valid
	assert.Equal(t, ObjectID{}, ObjectIDFromBIOS(0x300C))
	assert.Equal(t, ObjectID{}, ObjectIDFromBIOS(0x510C))
	assert.True(t, connector(ConnectorMXM, 3).IsMXMConnector())
	assert.False(t, encoder(ConnectorMXM, 3).IsMXMConnector())
	assert.Equal(t, "Connector/HDMITypeA#1", connector(ConnectorHDMITypeA, 1).String())
	assert.Equal(t, "Generic/MXM_OPM#1", ObjectID{Type: ObjectTypeGeneric, ID: GenericMXMOPM, Enum: 1}.String())
	assert.Equal(t, "Unknown", ObjectID{}.String())
}

func buildTopology(t *testing.T, rev Revision) *imageBuilder {
	b := newImageBuilder(t)
	hdmi := connector(ConnectorHDMITypeA, 1)
	dp := connector(ConnectorDisplayPort, 1)
	uniphy := encoder(EncoderInternalUNIPHY, 1)
	uniphy1 := encoder(EncoderInternalUNIPHY1, 1)
	var generics []testObject
	if rev.Minor >= 3 {
		generics = []testObject{{id: ObjectID{Type: ObjectTypeGeneric, ID: GenericStereo, Enum: 1}}}
	}
	b.objects(rev, DeviceDFP1|DeviceDFP2|DeviceCRT1,
		[]testObject{
			{
				id:  hdmi,
				src: []ObjectID{uniphy},
				records: [][]byte{
					i2cRecordBytes(0x91, 0xA0),
					hpdRecordBytes(3, 1),
					deviceTagRecordBytes(1, DeviceTag{ACPIDeviceEnum: 0x0100, DeviceID: DeviceDFP1}),
				},
			},
			{
				id:  dp,
				src: []ObjectID{uniphy1},
				records: [][]byte{
					deviceTagRecordBytes(2,
						DeviceTag{ACPIDeviceEnum: 0x0210, DeviceID: DeviceDFP2},
						DeviceTag{ACPIDeviceEnum: 0x0211, DeviceID: DeviceCRT1},
					),
				},
			},
		},
		[]testObject{
			{id: uniphy, dst: []ObjectID{hdmi}, records: [][]byte{encoderCapRecordBytes(EncoderCapHBR2En | EncoderCapHDMI6GEn)}},
			{id: uniphy1, src: []ObjectID{{Type: ObjectTypeGPU, ID: 1, Enum: 1}}, dst: []ObjectID{dp, hdmi}},
		},
		generics,
	)
	b.gpioI2CTable(GPIOI2CAssignment{I2CID: 0x90, ClkMaskRegisterIndex: 0x1234}, GPIOI2CAssignment{I2CID: 0x91, ClkMaskRegisterIndex: 0x5678})
	return b
}

func TestObjectQueries(t *testing.T) {
	p := buildTopology(t, Revision{Major: 1, Minor: 3}).parser()
	hdmi := connector(ConnectorHDMITypeA, 1)
	dp := connector(ConnectorDisplayPort, 1)
	uniphy := encoder(EncoderInternalUNIPHY, 1)
	uniphy1 := encoder(EncoderInternalUNIPHY1, 1)

	n, err := p.ConnectorCount()
	require.NoError(t, err)
	require.Equal(t, uint8(2), n)
	n, err = p.EncoderCount()
	require.NoError(t, err)
	require.Equal(t, uint8(2), n)

	id, err := p.ConnectorID(1)
	require.NoError(t, err)
	require.Equal(t, dp, id)
	id, err = p.EncoderID(0)
	require.NoError(t, err)
	require.Equal(t, uniphy, id)
	_, err = p.ConnectorID(2)
	require.ErrorIs(t, err, ErrBadInput)

	t.Run("links", func(t *testing.T) {
		dst, err := p.DstNumber(uniphy1)
		require.NoError(t, err)
		require.Equal(t, uint8(2), dst)

		id, err := p.DstObject(uniphy1, 1)
		require.NoError(t, err)
		require.Equal(t, hdmi, id)
		_, err = p.DstObject(uniphy1, 2)
		require.ErrorIs(t, err, ErrBadInput)

		id, err = p.SrcObject(uniphy1, 0)
		require.NoError(t, err)
		require.Equal(t, ObjectID{Type: ObjectTypeGPU, ID: 1, Enum: 1}, id)

		id, err = p.SrcObject(dp, 0)
		require.NoError(t, err)
		require.Equal(t, uniphy1, id)

		dst, err = p.DstNumber(hdmi)
		require.NoError(t, err)
		require.Zero(t, dst)
	})

	t.Run("resolve_round_trip", func(t *testing.T) {
		for _, kind := range []ObjectType{ObjectTypeConnector, ObjectTypeEncoder, ObjectTypeGeneric} {
			ids, err := p.Objects(kind)
			require.NoError(t, err)
			require.NotEmpty(t, ids)
			for _, id := range ids {
				e, err := p.load().graph.resolve(id)
				require.NoError(t, err)
				require.Equal(t, id, e.ID())
			}
		}
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := p.HPDInfo(connector(ConnectorVGA, 1))
		require.ErrorIs(t, err, ErrNotFound)
		_, err = p.SrcObject(ObjectID{Type: ObjectTypeRouter, ID: 1, Enum: 1}, 0)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("hpd", func(t *testing.T) {
		hpd, err := p.HPDInfo(hdmi)
		require.NoError(t, err)
		require.Equal(t, HPDInfo{GPIOID: 3, Active: 1}, hpd)

		_, err = p.HPDInfo(dp)
		require.ErrorIs(t, err, ErrNoRecord)
	})

	t.Run("i2c", func(t *testing.T) {
		info, err := p.I2CInfo(hdmi)
		require.NoError(t, err)
		require.True(t, info.HWAssist)
		require.Equal(t, uint8(1), info.Line)
		require.Equal(t, uint8(1), info.EngineID)
		require.Equal(t, uint8(0xA0), info.SlaveAddress)
		require.Equal(t, uint32(0x5678), info.GPIO.ClkMaskRegisterIndex)

		_, err = p.I2CInfo(dp)
		require.ErrorIs(t, err, ErrNoRecord)
	})

	t.Run("device_tags", func(t *testing.T) {
		tag, err := p.DeviceTag(dp, 1)
		require.NoError(t, err)
		require.Equal(t, ConnectorDeviceTagInfo{
			ACPIDevice: 0x0211,
			Device:     DeviceID{Type: DeviceTypeCRT, Enum: 1},
		}, tag)

		_, err = p.DeviceTag(dp, 2)
		require.ErrorIs(t, err, ErrNoRecord)
		_, err = p.DeviceTag(uniphy, 0)
		require.ErrorIs(t, err, ErrBadInput)
	})

	t.Run("encoder_cap", func(t *testing.T) {
		caps, err := p.EncoderCapInfo(uniphy)
		require.NoError(t, err)
		require.Equal(t, EncoderCapInfo{DPHBR2Enabled: true, HDMI6GEnabled: true}, caps)

		_, err = p.EncoderCapInfo(uniphy1)
		require.ErrorIs(t, err, ErrNoRecord)
	})

	t.Run("device_support", func(t *testing.T) {
		require.True(t, p.IsDeviceIDSupported(DeviceID{Type: DeviceTypeDFP, Enum: 2}))
		require.True(t, p.IsDeviceIDSupported(DeviceID{Type: DeviceTypeCRT, Enum: 1}))
		require.False(t, p.IsDeviceIDSupported(DeviceID{Type: DeviceTypeLCD, Enum: 1}))
		require.False(t, p.IsDeviceIDSupported(DeviceID{}))
	})
}

func TestObjectHeaderRevisions(t *testing.T) {
	t.Run("v1.1_has_no_generic_table", func(t *testing.T) {
		p := buildTopology(t, Revision{Major: 1, Minor: 1}).parser()
		require.Equal(t, Revision{Major: 1, Minor: 1}, p.ObjectHeaderRevision())
		_, err := p.load().graph.resolve(OPMObjectID)
		require.ErrorIs(t, err, ErrNotFound)

		ids, err := p.Objects(ObjectTypeGeneric)
		require.NoError(t, err)
		require.Empty(t, ids)
	})

	for _, rev := range []Revision{{Major: 1, Minor: 0}, {Major: 2, Minor: 1}} {
		t.Run("unsupported_"+rev.String(), func(t *testing.T) {
			b := newImageBuilder(t)
			b.objects(rev, 0, nil, nil, nil)
			_, err := New(b.bytes(), WithLogger(newTestLogger(t)))
			require.ErrorIs(t, err, ErrUnsupportedRevision)
		})
	}
}

func TestRecordStream(t *testing.T) {
	t.Run("zero_size_terminates", func(t *testing.T) {
		b := newImageBuilder(t)
		offset := b.alloc([]byte{
			byte(RecordTypeI2C), 4, 0x90, 0xA0,
			byte(RecordTypeHPDInt), 0, 1, 1,
			byte(RecordTypeHPDInt), 4, 1, 1,
			byte(RecordTypeLast), 0,
		})
		img, err := NewImage(b.bytes())
		require.NoError(t, err)

		s := newRecordStream(img, offset)
		r, ok := s.Next()
		require.True(t, ok)
		require.Equal(t, RecordTypeI2C, r.Type)
		require.Equal(t, offset, r.Offset)
		_, ok = s.Next()
		require.False(t, ok)
		_, ok = s.Next()
		require.False(t, ok)
		require.NoError(t, s.Err())

		_, found, err := findRecord(img, offset, RecordTypeHPDInt, hpdRecordSize)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("short_records_are_skipped", func(t *testing.T) {
		b := newImageBuilder(t)
		offset := b.alloc([]byte{
			byte(RecordTypeI2C), 3, 0x90,
			byte(RecordTypeI2C), 4, 0x91, 0xA2,
			byte(RecordTypeLast), 0,
		})
		img, err := NewImage(b.bytes())
		require.NoError(t, err)

		r, found, err := findRecord(img, offset, RecordTypeI2C, i2cRecordSize)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, offset+3, r.Offset)
	})

	t.Run("runs_off_the_image", func(t *testing.T) {
		b := newImageBuilder(t)
		b.data[testImageSize-2] = byte(RecordTypeI2C)
		b.data[testImageSize-1] = 0x10
		img, err := NewImage(b.bytes())
		require.NoError(t, err)

		s := newRecordStream(img, testImageSize-2)
		_, ok := s.Next()
		require.True(t, ok)
		_, ok = s.Next()
		require.False(t, ok)
		require.ErrorIs(t, s.Err(), ErrOutOfBounds)
	})
}
