// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package space implements the index-space and range algebra (spec
// §4.A): immutable 1-, 2-, or 3-dimensional index spaces, and the
// half-open axis-aligned ranges over them. It is kept as its own leaf
// package (rather than folded into the root laik package) because
// both laik and laik/layout need these types without either package
// importing the other.
package space

import "fmt"

// A Space is an immutable 1-, 2-, or 3-dimensional index space. Its
// index set is the product [0, Size[0)) x ... x [0, Size[Dims-1)).
// Spaces are created once and shared by many containers and
// partitionings; there is no explicit destructor, as Go's garbage
// collector reclaims a Space once no dependent (Partitioning, Data)
// retains a reference to it.
type Space struct {
	dims int
	size [3]int64
}

// New1D returns a new 1-dimensional space of the given size.
func New1D(size int64) (*Space, error) {
	return newSpace(1, size, 1, 1)
}

// New2D returns a new 2-dimensional space of size0 x size1.
func New2D(size0, size1 int64) (*Space, error) {
	return newSpace(2, size0, size1, 1)
}

// New3D returns a new 3-dimensional space of size0 x size1 x size2.
func New3D(size0, size1, size2 int64) (*Space, error) {
	return newSpace(3, size0, size1, size2)
}

func newSpace(dims int, s0, s1, s2 int64) (*Space, error) {
	for _, s := range []int64{s0, s1, s2}[:dims] {
		if s <= 0 {
			return nil, fmt.Errorf("space: zero or negative extent: %d", s)
		}
	}
	return &Space{dims: dims, size: [3]int64{s0, s1, s2}}, nil
}

// Dims returns the number of dimensions of the space (1, 2, or 3).
func (s *Space) Dims() int { return s.dims }

// Size returns the extent of the space along dimension d.
func (s *Space) Size(d int) int64 {
	if d < 0 || d >= s.dims {
		panic(fmt.Sprintf("space: dimension out of range: %d", d))
	}
	return s.size[d]
}

// FullRange returns the Range covering the entire space.
func (s *Space) FullRange() Range {
	var to Index
	for d := 0; d < s.dims; d++ {
		to = to.SetAt(d, s.size[d])
	}
	return Range{Space: s, From: Index{}, To: to}
}

func (s *Space) String() string {
	switch s.dims {
	case 1:
		return fmt.Sprintf("Space(%d)", s.size[0])
	case 2:
		return fmt.Sprintf("Space(%d,%d)", s.size[0], s.size[1])
	default:
		return fmt.Sprintf("Space(%d,%d,%d)", s.size[0], s.size[1], s.size[2])
	}
}
