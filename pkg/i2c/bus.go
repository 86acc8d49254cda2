// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package i2c provides transports for the I2C transactions issued by the
// video BIOS parser: a simulated bus with EEPROM devices and the Linux
// i2c-dev interface.
package i2c

import (
	"errors"
	"fmt"
	"sync"

	"github.com/linuxboot/vbios/pkg/atom"
	"github.com/linuxboot/vbios/pkg/log"
)

// ErrNACK means no device acknowledged the address.
var ErrNACK = errors.New("no acknowledge")

// Device is a target on a simulated bus.
type Device interface {
	// Write receives the data of a write message.
	Write(data []byte) error
	// Read fills data.
	Read(data []byte) error
}

type busKey struct {
	line    uint8
	address uint8
}

// Bus is a simulated set of I2C lines. Devices are attached by line and
// 7-bit address. It is safe for concurrent use.
type Bus struct {
	mu      sync.Mutex
	devices map[busKey]Device
	logger  log.Logger
}

// NewBus returns an empty bus. A nil logger disables logging.
func NewBus(logger log.Logger) *Bus {
	return &Bus{devices: map[busKey]Device{}, logger: logger}
}

// Attach places dev on line at the 7-bit address.
func (b *Bus) Attach(line uint8, address uint8, dev Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[busKey{line: line, address: address}] = dev
}

// Perform implements atom.Transport.
func (b *Bus) Perform(line atom.I2CInfo, payloads []atom.I2CPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, p := range payloads {
		dev, ok := b.devices[busKey{line: line.Line, address: p.Address}]
		if !ok {
			return fmt.Errorf("%w: line %d, address 0x%02X, message %d", ErrNACK, line.Line, p.Address, i)
		}
		var err error
		if p.Write {
			err = dev.Write(p.Data)
		} else {
			err = dev.Read(p.Data)
		}
		if err != nil {
			return fmt.Errorf("line %d, address 0x%02X, message %d: %w", line.Line, p.Address, i, err)
		}
		if b.logger != nil {
			b.logger.Infof("i2c line %d: %s %d bytes at 0x%02X", line.Line, direction(p.Write), len(p.Data), p.Address)
		}
	}
	return nil
}

func direction(write bool) string {
	if write {
		return "wrote"
	}
	return "read"
}
