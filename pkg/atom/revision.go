// Copyright 2023 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package atom

import (
	"fmt"
)

// Revision is the (format, content) revision pair of a table.
// (0, 0) is never a valid revision and marks an absent table.
type Revision struct {
	Major uint8
	Minor uint8
}

// IsValid returns false for the (0, 0) sentinel.
func (r Revision) IsValid() bool {
	return r.Major != 0 || r.Minor != 0
}

func (r Revision) String() string {
	return fmt.Sprintf("%d.%d", r.Major, r.Minor)
}

// CommonHeader is ATOM_COMMON_TABLE_HEADER, the first 4 bytes of every
// data table.
type CommonHeader struct {
	StructureSize   uint16
	FormatRevision  uint8
	ContentRevision uint8
}

// Revision returns the revision stored in the header.
func (h CommonHeader) Revision() Revision {
	return Revision{Major: h.FormatRevision, Minor: h.ContentRevision}
}

// headerAt reads the common table header at offset.
func (img *Image) headerAt(offset uint64) (CommonHeader, error) {
	var h CommonHeader
	err := img.Read(offset, &h)
	return h, err
}

// RevisionAt returns the revision of the table at offset, or (0, 0) if the
// offset is zero or the header cannot be read.
func (img *Image) RevisionAt(offset uint64) Revision {
	if offset == 0 {
		return Revision{}
	}
	h, err := img.headerAt(offset)
	if err != nil {
		return Revision{}
	}
	return h.Revision()
}
