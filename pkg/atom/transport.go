// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

// I2CPayload is a single message of an I2C transaction. Address is the
// 7-bit address of the target. For reads Data is filled by the Transport
// and its length is the number of bytes to read.
type I2CPayload struct {
	Address uint8
	Write   bool
	Data    []byte
}

// Transport executes I2C transactions on the line described by I2CInfo.
// The payloads are executed in order as one combined transaction.
type Transport interface {
	Perform(line I2CInfo, payloads []I2CPayload) error
}

// TransportFunc is an adapter to use an ordinary function as a Transport.
type TransportFunc func(line I2CInfo, payloads []I2CPayload) error

// Perform implements Transport.
func (f TransportFunc) Perform(line I2CInfo, payloads []I2CPayload) error {
	return f(line, payloads)
}

// connectionInfoTransaction builds the transaction which reads the
// connection info from the OPM EEPROM at the 8-bit address addr: an
// offset 0 write followed by a read of the whole structure.
func connectionInfoTransaction(addr uint8) []I2CPayload {
	return []I2CPayload{
		{Address: addr >> 1, Write: true, Data: []byte{0, 0}},
		{Address: addr >> 1, Data: make([]byte, ExtDisplayConnectionInfoSize)},
	}
}
