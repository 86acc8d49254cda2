// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testDispClkVoltage = [NumberOfDispClkVoltage]ClkVoltCapability{
	{VoltageIndex: 1, MaximumSupportedClock: 60000},
	{VoltageIndex: 2, MaximumSupportedClock: 30000},
	{VoltageIndex: 3, MaximumSupportedClock: 30000},
	{VoltageIndex: 4, MaximumSupportedClock: 45000},
}

var sortedDispClkVoltage = [NumberOfDispClkVoltage]ClockVoltage{
	{VoltageIndex: 2, MaxSupportedClock: 300000},
	{VoltageIndex: 3, MaxSupportedClock: 300000},
	{VoltageIndex: 4, MaxSupportedClock: 450000},
	{VoltageIndex: 1, MaxSupportedClock: 600000},
}

func TestIntegratedInfoV1_8(t *testing.T) {
	b := newImageBuilder(t)
	b.emptyObjects()
	raw := IntegratedSystemInfoV1_8{
		BootUpEngineClock:              20000,
		DispClkVoltage:                 testDispClkVoltage,
		SystemConfig:                   0x11,
		MemoryType:                     3,
		UMAChannelNumber:               2,
		NBPStateNClkFreq:               [NumberOfNBPStates]uint32{800, 300, 500, 400},
		IdleNClk:                       250,
		LVDSPwrOnSeqDIGONtoDEIn4Ms:     1,
		LVDSPwrOffSeqBLONtoVARYBLIn4Ms: 6,
		BootUpNBVoltage:                0x55,
		ExtDispConnInfo: *newConnectionInfo(map[int]ExtDisplayPath{
			2: {DeviceTag: DeviceDFP3, DeviceConnector: testDP.BIOS(), ExtEncoderObjID: testUniphy.BIOS(), ExtAUXDDCLUTIndex: 1, ExtHPDPinLUTIndex: 2},
		}),
	}
	raw.AvailSClk[0] = AvailableSClkList{SupportedSClk: 20000, VoltageIndex: 1, VoltageID: 5}
	b.fixedTable(TableIntegratedSystemInfo, Revision{Major: 1, Minor: 8}, raw)

	info, err := b.parser().IntegratedInfo()
	require.NoError(t, err)
	require.Equal(t, Revision{Major: 1, Minor: 8}, info.Revision)
	require.Equal(t, uint32(200000), info.BootUpEngineClock)
	require.Equal(t, sortedDispClkVoltage, info.DispClkVoltage)
	require.Equal(t, uint32(0x11), info.SystemConfig)
	require.Equal(t, uint8(3), info.MemoryType)
	require.Equal(t, uint32(300), info.MinimumNClk)
	require.Equal(t, uint32(250), info.IdleNClk)
	require.Equal(t, uint16(0x55), info.BootUpNBVoltage)
	require.Equal(t, LVDSPowerSequence{OnDIGONtoDE: 1, OffBLONtoVARYBL: 6}, info.LVDSPowerSequence)
	require.Equal(t, AvailableSClk{SupportedSClk: 200000, VoltageIndex: 1, VoltageID: 5}, info.AvailSClk[0])

	require.Equal(t, ExtDisplayConnectionInfoGUID, info.ExtDispConnInfo.GUID)
	path := info.ExtDispConnInfo.Path[2]
	require.Equal(t, DeviceDFP3, path.DeviceTag)
	require.Equal(t, testDP, path.DeviceConnectorID)
	require.Equal(t, testUniphy, path.ExtEncoderObjID)
	require.Equal(t, uint8(2), path.ExtHPDPinLUTIndex)
	require.Equal(t, ObjectID{}, info.ExtDispConnInfo.Path[0].DeviceConnectorID)
}

func TestIntegratedInfoV1_9(t *testing.T) {
	b := newImageBuilder(t)
	b.emptyObjects()
	b.fixedTable(TableIntegratedSystemInfo, Revision{Major: 1, Minor: 9}, IntegratedSystemInfoV1_9{
		DentistVCOFreq:   360000,
		DispClkVoltage:   testDispClkVoltage,
		NBPStateNClkFreq: [NumberOfNBPStates]uint32{700, 700, 600, 900},
		GPUCapInfo:       0x8,
		LVDSMisc:         0x4,
	})

	info, err := b.parser().IntegratedInfo()
	require.NoError(t, err)
	require.Equal(t, uint32(3600000), info.DentistVCOFreq)
	require.Equal(t, sortedDispClkVoltage, info.DispClkVoltage)
	require.Equal(t, uint32(600), info.MinimumNClk)
	require.Equal(t, uint32(0x8), info.GPUCapInfo)
	require.Equal(t, uint8(0x4), info.LVDSMisc)
}

func TestIntegratedInfoErrors(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		b := newImageBuilder(t)
		b.emptyObjects()
		b.fixedTable(TableIntegratedSystemInfo, Revision{Major: 1, Minor: 7}, IntegratedSystemInfoV1_8{})
		_, err := b.parser().IntegratedInfo()
		require.ErrorIs(t, err, ErrUnsupportedRevision)
	})
	t.Run("absent", func(t *testing.T) {
		b := newImageBuilder(t)
		b.emptyObjects()
		_, err := b.parser().IntegratedInfo()
		require.ErrorIs(t, err, ErrBadBiosTable)
	})
	t.Run("truncated", func(t *testing.T) {
		b := newImageBuilder(t)
		b.emptyObjects()
		// a header claiming v1.8 at the very end of the image
		b.next = testImageSize - 8
		b.tables[TableIntegratedSystemInfo] = uint16(b.alloc(CommonHeader{FormatRevision: 1, ContentRevision: 8}))
		_, err := b.parser().IntegratedInfo()
		require.ErrorIs(t, err, ErrOutOfBounds)
	})
}
