// Copyright 2017-2021 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytes

import (
	"github.com/hashicorp/go-multierror"
)

// CheckRange verifies that r lies inside a buffer of `length` bytes:
// * r.Offset + r.Length does not overflow
// * r.Offset <= length
// * r.Offset + r.Length <= length
func CheckRange(length uint64, r Range) error {
	var result *multierror.Error
	end := r.End()
	if end < r.Offset {
		result = multierror.Append(result, &ErrLengthOverflow{Range: r})
	}
	if r.Offset > length {
		result = multierror.Append(result, &ErrOffsetGreaterThanLength{Offset: r.Offset, Length: length})
	}
	if end >= r.Offset && end > length {
		result = multierror.Append(result, &ErrEndGreaterThanLength{End: end, Length: length})
	}

	return result.ErrorOrNil()
}
