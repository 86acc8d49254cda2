// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package i2c

import (
	"fmt"
)

// EEPROM simulates a serial EEPROM with a big-endian word address, such as
// the one on an MXM output personality module. A write sets the address
// pointer from its first AddressBytes bytes and stores the remaining
// bytes. A read returns bytes from the pointer on and wraps around at the
// end of the memory.
type EEPROM struct {
	Memory       []byte
	AddressBytes int
	ReadOnly     bool

	pointer int
}

// NewEEPROM returns an EEPROM holding a copy of contents with 16-bit
// addressing.
func NewEEPROM(contents []byte) *EEPROM {
	return &EEPROM{
		Memory:       append([]byte{}, contents...),
		AddressBytes: 2,
	}
}

// Write implements Device.
func (e *EEPROM) Write(data []byte) error {
	if len(e.Memory) == 0 {
		return fmt.Errorf("%w: empty EEPROM", ErrNACK)
	}
	if len(data) < e.AddressBytes {
		return fmt.Errorf("write of %d bytes is shorter than the %d-byte address", len(data), e.AddressBytes)
	}
	var addr int
	for _, b := range data[:e.AddressBytes] {
		addr = addr<<8 | int(b)
	}
	e.pointer = addr % len(e.Memory)

	payload := data[e.AddressBytes:]
	if len(payload) == 0 {
		return nil
	}
	if e.ReadOnly {
		return fmt.Errorf("%w: EEPROM is write protected", ErrNACK)
	}
	for _, b := range payload {
		e.Memory[e.pointer] = b
		e.pointer = (e.pointer + 1) % len(e.Memory)
	}
	return nil
}

// Read implements Device.
func (e *EEPROM) Read(data []byte) error {
	if len(e.Memory) == 0 {
		return fmt.Errorf("%w: empty EEPROM", ErrNACK)
	}
	for i := range data {
		data[i] = e.Memory[e.pointer]
		e.pointer = (e.pointer + 1) % len(e.Memory)
	}
	return nil
}
