// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package i2c

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/linuxboot/vbios/pkg/atom"
)

// From include/uapi/linux/i2c-dev.h and include/uapi/linux/i2c.h.
const (
	i2cRDWR  = 0x0707
	i2cMRead = 0x0001
)

// i2cMsg is struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// i2cRDWRIoctlData is struct i2c_rdwr_ioctl_data.
type i2cRDWRIoctlData struct {
	msgs  *i2cMsg
	nmsgs uint32
}

func messages(payloads []atom.I2CPayload) []i2cMsg {
	msgs := make([]i2cMsg, len(payloads))
	for i, p := range payloads {
		msgs[i] = i2cMsg{
			addr: uint16(p.Address),
			len:  uint16(len(p.Data)),
			buf:  &p.Data[0],
		}
		if !p.Write {
			msgs[i].flags = i2cMRead
		}
	}
	return msgs
}

func perform(path string, payloads []atom.I2CPayload) error {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", path, err)
	}
	defer unix.Close(fd)

	msgs := messages(payloads)
	data := i2cRDWRIoctlData{msgs: &msgs[0], nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cRDWR, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	runtime.KeepAlive(payloads)
	if errno != 0 {
		return fmt.Errorf("I2C_RDWR on %s: %w", path, errno)
	}
	return nil
}
