// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package i2c

import (
	"errors"
	"fmt"

	"github.com/linuxboot/vbios/pkg/atom"
)

// ErrUnsupported means the platform has no i2c-dev interface.
var ErrUnsupported = errors.New("i2c-dev is not supported on this platform")

// maxMessages is the I2C_RDWR_IOCTL_MAX_MSGS limit of the kernel.
const maxMessages = 42

// DevicePath maps an I2C line of the video BIOS to an i2c-dev node.
type DevicePath func(line atom.I2CInfo) string

// DefaultDevicePath uses the line number as the adapter number.
func DefaultDevicePath(line atom.I2CInfo) string {
	return fmt.Sprintf("/dev/i2c-%d", line.Line)
}

// DevTransport performs transactions through the Linux i2c-dev interface
// with the I2C_RDWR ioctl. Each transaction opens the adapter node.
type DevTransport struct {
	path DevicePath
}

// NewDevTransport returns a transport using path to find the adapter of a
// line. A nil path selects DefaultDevicePath.
func NewDevTransport(path DevicePath) *DevTransport {
	if path == nil {
		path = DefaultDevicePath
	}
	return &DevTransport{path: path}
}

// Perform implements atom.Transport.
func (t *DevTransport) Perform(line atom.I2CInfo, payloads []atom.I2CPayload) error {
	if len(payloads) == 0 {
		return nil
	}
	if len(payloads) > maxMessages {
		return fmt.Errorf("a transaction holds at most %d messages, got %d", maxMessages, len(payloads))
	}
	for i, p := range payloads {
		if len(p.Data) == 0 || len(p.Data) > 0xFFFF {
			return fmt.Errorf("message %d has an invalid length of %d bytes", i, len(p.Data))
		}
		if p.Address > 0x7F {
			return fmt.Errorf("message %d has an invalid 7-bit address 0x%X", i, p.Address)
		}
	}
	return perform(t.path(line), payloads)
}
