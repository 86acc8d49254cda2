// Copyright 2018 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guid implements the mixed-endian GUID layout used by firmware
// tables (the first three fields are little-endian, the rest is a byte
// string).
package guid

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Size represents number of bytes in a GUID
	Size = 16
	// UExample is a example of a string GUID
	UExample  = "01234567-89AB-CDEF-0123-456789ABCDEF"
	strFormat = "%02X%02X%02X%02X-%02X%02X-%02X%02X-%02X%02X-%02X%02X%02X%02X%02X%02X"
)

// fields lists the widths of the GUID parts which are stored little-endian.
var fields = [...]int{4, 2, 2}

// GUID represents a unique identifier as it is laid out in memory.
type GUID [Size]byte

func swapFields(u *GUID) {
	i := 0
	for _, fieldlen := range fields {
		b := u[i : i+fieldlen]
		for l, r := 0, len(b)-1; l < r; l, r = l+1, r-1 {
			b[l], b[r] = b[r], b[l]
		}
		i += fieldlen
	}
}

// Parse parses a guid string in the canonical text form (hyphens are
// optional).
func Parse(s string) (*GUID, error) {
	decoded, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return nil, fmt.Errorf("guid string not correct, need string of the format %v, got %v", UExample, s)
	}
	if len(decoded) != Size {
		return nil, fmt.Errorf("guid string has incorrect length, need string of the format %v, got %v", UExample, s)
	}

	var u GUID
	copy(u[:], decoded)
	swapFields(&u)
	return &u, nil
}

// MustParse parses a guid string or panics.
func MustParse(s string) *GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// FromBytes copies the in-memory representation of a GUID from b.
func FromBytes(b []byte) (*GUID, error) {
	if len(b) < Size {
		return nil, fmt.Errorf("need %d bytes for a GUID, got %d", Size, len(b))
	}
	var u GUID
	copy(u[:], b)
	return &u, nil
}

// Bytes returns the in-memory representation.
func (u GUID) Bytes() []byte {
	return append([]byte(nil), u[:]...)
}

func (u GUID) String() string {
	// Not a pointer receiver so we don't have to manually copy.
	swapFields(&u)
	b := make([]interface{}, Size)
	for i := range u[:] {
		b[i] = u[i]
	}
	return fmt.Sprintf(strFormat, b...)
}

// MarshalText implements encoding.TextMarshaler.
func (u GUID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *GUID) UnmarshalText(b []byte) error {
	g, err := Parse(string(b))
	if err != nil {
		return err
	}
	*u = *g
	return nil
}
