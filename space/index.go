// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package space

import "fmt"

// An Index addresses a single element of a Space. Unused dimensions
// (beyond a Space's Dims) are always zero.
type Index struct {
	I0, I1, I2 int64
}

// NewIndex1D returns the Index (i, 0, 0).
func NewIndex1D(i int64) Index { return Index{I0: i} }

// NewIndex2D returns the Index (i0, i1, 0).
func NewIndex2D(i0, i1 int64) Index { return Index{I0: i0, I1: i1} }

// NewIndex3D returns the Index (i0, i1, i2).
func NewIndex3D(i0, i1, i2 int64) Index { return Index{I0: i0, I1: i1, I2: i2} }

// At returns the d'th component of the index.
func (idx Index) At(d int) int64 {
	switch d {
	case 0:
		return idx.I0
	case 1:
		return idx.I1
	case 2:
		return idx.I2
	default:
		panic(fmt.Sprintf("space: dimension out of range: %d", d))
	}
}

// SetAt returns a copy of idx with its d'th component set to v.
func (idx Index) SetAt(d int, v int64) Index {
	switch d {
	case 0:
		idx.I0 = v
	case 1:
		idx.I1 = v
	case 2:
		idx.I2 = v
	default:
		panic(fmt.Sprintf("space: dimension out of range: %d", d))
	}
	return idx
}

// Equal reports whether idx and other are the same index.
func (idx Index) Equal(other Index) bool {
	return idx.I0 == other.I0 && idx.I1 == other.I1 && idx.I2 == other.I2
}

func (idx Index) String() string {
	return fmt.Sprintf("(%d,%d,%d)", idx.I0, idx.I1, idx.I2)
}
