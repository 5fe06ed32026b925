// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import "github.com/grailbio/laik/space"

// Space, Index, and Range are aliases for the corresponding types in
// laik/space. They live in their own leaf package (rather than in
// laik itself) so that laik/layout can depend on them without laik
// depending on laik/layout creating an import cycle; laik re-exports
// them here so callers write laik.Space, laik.Index, laik.Range as if
// they were native to this package.
type (
	Space = space.Space
	Index = space.Index
	Range = space.Range
)

// NewSpace1D returns a new 1-dimensional space of the given size.
func NewSpace1D(size int64) (*Space, error) { return space.New1D(size) }

// NewSpace2D returns a new 2-dimensional space of size0 x size1.
func NewSpace2D(size0, size1 int64) (*Space, error) { return space.New2D(size0, size1) }

// NewSpace3D returns a new 3-dimensional space of size0 x size1 x size2.
func NewSpace3D(size0, size1, size2 int64) (*Space, error) { return space.New3D(size0, size1, size2) }

// NewIndex1D returns the Index (i, 0, 0).
func NewIndex1D(i int64) Index { return space.NewIndex1D(i) }

// NewIndex2D returns the Index (i0, i1, 0).
func NewIndex2D(i0, i1 int64) Index { return space.NewIndex2D(i0, i1) }

// NewIndex3D returns the Index (i0, i1, i2).
func NewIndex3D(i0, i1, i2 int64) Index { return space.NewIndex3D(i0, i1, i2) }

// NewRange1D returns the Range [from, to) over a 1-D space.
func NewRange1D(s *Space, from, to int64) Range { return space.NewRange1D(s, from, to) }
