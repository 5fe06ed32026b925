// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package space

import "fmt"

// A Range is a half-open, axis-aligned sub-box of a Space: From is
// inclusive, To is exclusive, per dimension. The invariant
// From[d] <= To[d] <= Space.Size(d) is the caller's responsibility;
// no Range operation checks it or returns an error.
type Range struct {
	Space *Space
	From  Index
	To    Index
}

// NewRange1D returns the Range [from, to) over a 1-D space.
func NewRange1D(s *Space, from, to int64) Range {
	return Range{Space: s, From: NewIndex1D(from), To: NewIndex1D(to)}
}

// Size returns the number of indices in the range: the product of
// (To[d]-From[d]) over all dimensions of the range's space.
func (r Range) Size() int64 {
	n := int64(1)
	for d := 0; d < r.Space.Dims(); d++ {
		n *= r.To.At(d) - r.From.At(d)
	}
	return n
}

// Empty reports whether the range contains no indices.
func (r Range) Empty() bool {
	for d := 0; d < r.Space.Dims(); d++ {
		if r.To.At(d) <= r.From.At(d) {
			return true
		}
	}
	return false
}

// Contains reports whether r wholly contains other: r ⊇ other.
func (r Range) Contains(other Range) bool {
	for d := 0; d < r.Space.Dims(); d++ {
		if other.From.At(d) < r.From.At(d) || other.To.At(d) > r.To.At(d) {
			return false
		}
	}
	return true
}

// ContainsIndex reports whether r contains idx.
func (r Range) ContainsIndex(idx Index) bool {
	for d := 0; d < r.Space.Dims(); d++ {
		if idx.At(d) < r.From.At(d) || idx.At(d) >= r.To.At(d) {
			return false
		}
	}
	return true
}

// Equal reports whether r and other describe the same sub-box of the
// same space.
func (r Range) Equal(other Range) bool {
	return r.Space == other.Space && r.From.Equal(other.From) && r.To.Equal(other.To)
}

// Intersect returns the intersection of r and other, and whether the
// intersection is non-empty. Both ranges must be over the same space.
func (r Range) Intersect(other Range) (Range, bool) {
	out := Range{Space: r.Space}
	for d := 0; d < r.Space.Dims(); d++ {
		from := r.From.At(d)
		if other.From.At(d) > from {
			from = other.From.At(d)
		}
		to := r.To.At(d)
		if other.To.At(d) < to {
			to = other.To.At(d)
		}
		out.From = out.From.SetAt(d, from)
		out.To = out.To.SetAt(d, to)
	}
	return out, !out.Empty()
}

// Next advances idx to its lexicographic successor within r, and
// reports whether the successor is still within r (i.e. whether idx
// was not r.To's predecessor). The innermost dimension (the last
// dimension of the space) varies fastest.
//
// Layouts in this package only ever walk 1-D ranges (per spec, the
// dense/sparse 1-D layouts are 1-D-only); Next's multi-dimensional
// path exists so that Space/Range genuinely support up to 3
// dimensions, matching original_source's next_idx, whose
// multi-dimensional fallthrough was a known stub (always returning
// false). This implementation completes the general case instead.
func (r Range) Next(idx *Index) bool {
	dims := r.Space.Dims()
	for d := dims - 1; d >= 0; d-- {
		v := idx.At(d) + 1
		if v < r.To.At(d) {
			*idx = idx.SetAt(d, v)
			return true
		}
		if d == 0 {
			return false
		}
		*idx = idx.SetAt(d, r.From.At(d))
	}
	return false
}

func (r Range) String() string {
	return fmt.Sprintf("[%s,%s)", r.From, r.To)
}
