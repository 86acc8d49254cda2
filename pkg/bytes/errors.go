// Copyright 2017-2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytes

import (
	"fmt"
)

// ErrLengthOverflow means offset+length does not fit into uint64.
type ErrLengthOverflow struct {
	Range Range
}

func (err *ErrLengthOverflow) Error() string {
	return fmt.Sprintf("range overflows: offset 0x%X, length 0x%X", err.Range.Offset, err.Range.Length)
}

// ErrOffsetGreaterThanLength means the range starts outside of the buffer.
type ErrOffsetGreaterThanLength struct {
	Offset uint64
	Length uint64
}

func (err *ErrOffsetGreaterThanLength) Error() string {
	return fmt.Sprintf("offset is outside of the bounds: 0x%X > 0x%X", err.Offset, err.Length)
}

// ErrEndGreaterThanLength means the range ends outside of the buffer.
type ErrEndGreaterThanLength struct {
	End    uint64
	Length uint64
}

func (err *ErrEndGreaterThanLength) Error() string {
	return fmt.Sprintf("end offset is outside of the bounds: 0x%X > 0x%X", err.End, err.Length)
}
