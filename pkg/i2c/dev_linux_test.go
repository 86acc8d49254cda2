// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package i2c

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linuxboot/vbios/pkg/atom"
)

func TestMessages(t *testing.T) {
	read := make([]byte, 140)
	msgs := messages([]atom.I2CPayload{
		{Address: 0x50, Write: true, Data: []byte{0, 0}},
		{Address: 0x50, Data: read},
	})
	require.Len(t, msgs, 2)
	require.Equal(t, uint16(0x50), msgs[0].addr)
	require.Zero(t, msgs[0].flags)
	require.Equal(t, uint16(2), msgs[0].len)
	require.Equal(t, uint16(i2cMRead), msgs[1].flags)
	require.Equal(t, uint16(140), msgs[1].len)
	require.Same(t, &read[0], msgs[1].buf)
}
