// Copyright 2019 the LinuxBoot Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytes describes regions of a firmware image and checks them
// against the image bounds.
package bytes

import (
	"fmt"
	"sort"
	"strings"
)

// Range is a region of an image: Length bytes starting at Offset.
type Range struct {
	Offset uint64
	Length uint64
}

// End returns the exclusive end offset of the range.
func (r Range) End() uint64 {
	return r.Offset + r.Length
}

func (r Range) String() string {
	return fmt.Sprintf("[0x%04X:0x%04X]", r.Offset, r.End())
}

// Ranges is a helper to manipulate multiple `Range`-s at once
type Ranges []Range

func (s Ranges) String() string {
	r := make([]string, 0, len(s))
	for _, oneRange := range s {
		r = append(r, oneRange.String())
	}
	return strings.Join(r, " ")
}

// Sort sorts the slice by field Offset
func (s Ranges) Sort() {
	sort.Slice(s, func(i, j int) bool {
		return s[i].Offset < s[j].Offset
	})
}

// mergeSorted joins touching or overlapping neighbours. `in` must be sorted.
func mergeSorted(in Ranges) Ranges {
	if len(in) < 2 {
		return in
	}

	result := make(Ranges, 0, len(in))
	entry := in[0]
	for _, next := range in[1:] {
		if entry.End() >= next.Offset {
			if next.End() > entry.End() {
				entry.Length = next.End() - entry.Offset
			}
			continue
		}
		result = append(result, entry)
		entry = next
	}
	return append(result, entry)
}

// SortAndMerge sorts the slice (by field Offset) and then merges ranges
// which touch or overlap.
func (s *Ranges) SortAndMerge() {
	if len(*s) < 2 {
		return
	}
	s.Sort()
	*s = mergeSorted(*s)
}

// Total returns the amount of bytes covered, assuming no overlaps.
func (s Ranges) Total() uint64 {
	var total uint64
	for _, r := range s {
		total += r.Length
	}
	return total
}

// Compile returns the bytes from `b` which are referenced by `Range`-s `s`.
// Ranges (or their parts) beyond len(b) are ignored.
func (s Ranges) Compile(b []byte) []byte {
	var result []byte
	for _, r := range s {
		if r.Offset >= uint64(len(b)) {
			continue
		}
		end := r.End()
		if end > uint64(len(b)) {
			end = uint64(len(b))
		}
		result = append(result, b[r.Offset:end]...)
	}
	return result
}

// IsIn returns if the index is covered by this ranges
func (s Ranges) IsIn(index uint64) bool {
	for _, r := range s {
		// `Offset` is inclusive, while `End()` is exclusive.
		if r.Offset <= index && index < r.End() {
			return true
		}
	}
	return false
}
