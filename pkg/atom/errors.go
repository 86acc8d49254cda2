// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"errors"
	"fmt"

	pkgbytes "github.com/linuxboot/vbios/pkg/bytes"
)

// Sentinel errors. Every error returned by this package matches one of
// them through errors.Is.
var (
	// ErrBadInput means the caller passed an invalid argument.
	ErrBadInput = errors.New("bad input")
	// ErrOutOfBounds means a structure does not fit into the image.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrBadBiosTable means the image is structurally invalid.
	ErrBadBiosTable = errors.New("bad BIOS table")
	// ErrUnsupportedRevision means a known table has an unhandled revision.
	ErrUnsupportedRevision = errors.New("unsupported table revision")
	// ErrNoRecord means the data is well formed but has no matching entry.
	ErrNoRecord = errors.New("no record")
	// ErrNotFound means an object id does not resolve to a table entry.
	ErrNotFound = errors.New("object not found")
	// ErrTransport means the I2C transaction failed.
	ErrTransport = errors.New("I2C transport failure")
	// ErrPatch means the external connection patch could not be applied.
	ErrPatch = errors.New("patch failure")
)

// ErrReadOutOfBounds is returned when a read at Range does not fit into an
// image of ImageSize bytes. Err carries the detailed bounds check result.
type ErrReadOutOfBounds struct {
	Range     pkgbytes.Range
	ImageSize uint64
	Err       error
}

func (err *ErrReadOutOfBounds) Error() string {
	return fmt.Sprintf("read %s is out of image bounds (size 0x%X): %v", err.Range, err.ImageSize, err.Err)
}

// Unwrap implements errors.Unwrap.
func (err *ErrReadOutOfBounds) Unwrap() []error {
	return []error{ErrOutOfBounds, err.Err}
}

// ErrUnsupportedTableRevision means the decoder of Table has no layout for
// Revision.
type ErrUnsupportedTableRevision struct {
	Table    Table
	Revision Revision
}

func (err *ErrUnsupportedTableRevision) Error() string {
	return fmt.Sprintf("table %s: unsupported revision %s", err.Table, err.Revision)
}

// Unwrap implements errors.Unwrap.
func (err *ErrUnsupportedTableRevision) Unwrap() error {
	return ErrUnsupportedRevision
}

// ErrTableAbsent means the master data table has no entry for Table.
type ErrTableAbsent struct {
	Table Table
}

func (err *ErrTableAbsent) Error() string {
	return fmt.Sprintf("table %s is absent", err.Table)
}

// Unwrap implements errors.Unwrap.
func (err *ErrTableAbsent) Unwrap() error {
	return ErrNoRecord
}

// ErrRecordNotFound means Object has no record of the given type.
type ErrRecordNotFound struct {
	Object     ObjectID
	RecordType RecordType
}

func (err *ErrRecordNotFound) Error() string {
	return fmt.Sprintf("object %s has no %s record", err.Object, err.RecordType)
}

// Unwrap implements errors.Unwrap.
func (err *ErrRecordNotFound) Unwrap() error {
	return ErrNoRecord
}

// ErrObjectNotFound means ID is not present in its object table.
type ErrObjectNotFound struct {
	ID ObjectID
}

func (err *ErrObjectNotFound) Error() string {
	return fmt.Sprintf("object %s not found", err.ID)
}

// Unwrap implements errors.Unwrap.
func (err *ErrObjectNotFound) Unwrap() error {
	return ErrNotFound
}
